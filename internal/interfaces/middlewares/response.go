package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "cqrskit/internal/pkg/response"
)

// Response writes the envelope recorded by resp.SetCtxResponse once the
// handlers return. Handlers that wrote the body themselves are left alone.
func Response() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Written() {
			return
		}

		code, exists := resp.GetCtxResponseStatusCode(c)
		if !exists {
			c.JSON(http.StatusInternalServerError, resp.Envelope{
				Code:    http.StatusInternalServerError,
				Message: "internal server error",
			})
			return
		}
		message, _ := resp.GetCtxResponseMessage(c)
		data, _ := resp.GetCtxResponseData(c)
		c.JSON(code, resp.Envelope{
			Code:    code,
			Message: message,
			Data:    data,
		})
	}
}
