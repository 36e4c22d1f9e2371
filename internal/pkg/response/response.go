package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cqrskit/internal/infra/cqrs"
	"cqrskit/internal/infra/kernel"
)

const (
	ResponseKey        = "cqrskit.response"
	ResponseCodeKey    = "cqrskit.response.code"
	ResponseMessageKey = "cqrskit.response.message"
	ValidatedDataKey   = "cqrskit.validated"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func SetCtxResponse(c *gin.Context, response any, code int, message string) {
	c.Set(ResponseKey, response)
	c.Set(ResponseCodeKey, code)
	c.Set(ResponseMessageKey, message)
}

// SetCtxError records err with the status StatusOf picks.
func SetCtxError(c *gin.Context, err error) {
	code := StatusOf(err)
	var data any
	var de *cqrs.DomainError
	if errors.As(err, &de) {
		data = de
	}
	SetCtxResponse(c, data, code, err.Error())
}

func SetCtxValidatedData(c *gin.Context, dto any) {
	c.Set(ValidatedDataKey, dto)
}

func GetCtxResponseStatusCode(c *gin.Context) (int, bool) {
	v, exists := c.Get(ResponseCodeKey)
	if !exists {
		return 0, false
	}
	code, ok := v.(int)
	return code, ok
}

func GetCtxResponseMessage(c *gin.Context) (string, bool) {
	v, exists := c.Get(ResponseMessageKey)
	if !exists {
		return "", false
	}
	message, ok := v.(string)
	return message, ok
}

func GetCtxResponseData(c *gin.Context) (any, bool) {
	return c.Get(ResponseKey)
}

func GetCtxValidatedData(c *gin.Context) (any, bool) {
	return c.Get(ValidatedDataKey)
}

// StatusOf maps dispatch failures to HTTP statuses.
func StatusOf(err error) int {
	var de *cqrs.DomainError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &de):
		if de.Code >= 400 && de.Code < 600 {
			return de.Code
		}
		return http.StatusUnprocessableEntity
	case errors.Is(err, kernel.ErrFiltered), errors.Is(err, kernel.ErrRoutingUndefined):
		return http.StatusBadRequest
	case errors.Is(err, kernel.ErrHandlerNotFound):
		return http.StatusNotFound
	case errors.Is(err, kernel.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, kernel.ErrRejected):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
