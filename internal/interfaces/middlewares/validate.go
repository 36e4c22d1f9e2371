package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	resp "cqrskit/internal/pkg/response"
)

// ValidationMessage joins validator failures into one line. Other errors pass through.
func ValidationMessage(err error) string {
	var validateErrors validator.ValidationErrors
	if !errors.As(err, &validateErrors) {
		return err.Error()
	}

	var errMsgs []string
	for _, e := range validateErrors {
		msg := fmt.Sprintf("%s failed on '%s' validation", e.Field(), e.Tag())
		if e.Param() != "" {
			msg += fmt.Sprintf(" (param=%s)", e.Param())
		}
		errMsgs = append(errMsgs, msg)
	}
	return strings.Join(errMsgs, "; ")
}

// Validate binds a fresh DTO from newDTO per request and stores it for the handler.
func Validate(newDTO func() any) gin.HandlerFunc {
	return func(c *gin.Context) {
		dto := newDTO()
		if err := c.ShouldBind(dto); err != nil {
			resp.SetCtxResponse(c, nil, http.StatusBadRequest, ValidationMessage(err))
			c.Abort()
			return
		}

		resp.SetCtxValidatedData(c, dto)
		c.Next()
	}
}
