package router

import (
	"github.com/gin-gonic/gin"

	"cqrskit/internal/infra/gnest"
	"cqrskit/internal/interfaces/handlers"
)

func setupActionRouter(app *gnest.App, h *handlers.ActionHandler, guards []gin.HandlerFunc) {
	api := app.Group("/", guards...)
	{
		api.POST("/commands/:name", h.Command)
		api.POST("/queries/:name", h.Query)
		api.POST("/events/:name", h.Event)
	}

	app.Engine.GET("/actions", h.Catalog)
	app.Engine.GET("/stats", h.Stats)
}
