package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cqrskit/internal/domain/greeting"
	"cqrskit/internal/pkg/response"
)

type GreetingHandler struct {
	greetingService *greeting.GreetingService
}

func NewGreetingHandler(greetingService *greeting.GreetingService) *GreetingHandler {
	return &GreetingHandler{
		greetingService: greetingService,
	}
}

// Greet expects a *greeting.SayHelloRequest stored by the Validate middleware.
func (h *GreetingHandler) Greet(c *gin.Context) {
	req, _ := response.GetCtxValidatedData(c)
	msg, err := h.greetingService.Greet(c.Request.Context(), req.(*greeting.SayHelloRequest).Name)
	if err != nil {
		response.SetCtxError(c, err)
		return
	}
	response.SetCtxResponse(c, msg, http.StatusCreated, "greeted")
}

func (h *GreetingHandler) Count(c *gin.Context) {
	count, err := h.greetingService.Count(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.SetCtxError(c, err)
		return
	}
	response.SetCtxResponse(c, count, http.StatusOK, "ok")
}

func (h *GreetingHandler) Audit(c *gin.Context) {
	audit, err := h.greetingService.Audit(c.Request.Context())
	if err != nil {
		response.SetCtxError(c, err)
		return
	}
	response.SetCtxResponse(c, audit, http.StatusOK, "ok")
}
