package router

import (
	"cqrskit/internal/domain/greeting"
	"cqrskit/internal/infra/gnest"
	"cqrskit/internal/interfaces/handlers"
	"cqrskit/internal/interfaces/middlewares"
)

func setupGreetingRouter(app *gnest.App, h *handlers.GreetingHandler) {
	g := app.Group("/greetings")
	{
		g.POST("", middlewares.Validate(func() any { return &greeting.SayHelloRequest{} }), h.Greet)
		g.GET("/audit", h.Audit)
		g.GET("/:name", h.Count)
	}
}
