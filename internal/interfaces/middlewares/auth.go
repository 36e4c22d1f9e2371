package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"

	resp "cqrskit/internal/pkg/response"
)

const (
	TokenHeader = "Authorization"
	SubjectKey  = "cqrskit.subject"
)

func verifyToken(secret []byte, tokenString string) (*jwt.StandardClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.StandardClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*jwt.StandardClaims)
	if !ok || !token.Valid {
		return nil, errors.New("token verification failed")
	}
	return claims, nil
}

// Auth accepts an HMAC-signed bearer token and stores its subject under SubjectKey.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader(TokenHeader), "Bearer "))
		if token == "" {
			resp.SetCtxResponse(c, nil, http.StatusUnauthorized, "Token must be not empty")
			c.Abort()
			return
		}

		claims, err := verifyToken(key, token)
		if err != nil {
			resp.SetCtxResponse(c, nil, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}
		c.Set(SubjectKey, claims.Subject)
		c.Next()
	}
}
