package router

import (
	"github.com/gin-gonic/gin"

	"cqrskit/internal/infra/gnest"
	"cqrskit/internal/interfaces/handlers"
	"cqrskit/internal/interfaces/middlewares"
)

type Routes struct {
	Actions   *handlers.ActionHandler
	Greetings *handlers.GreetingHandler
	// AuthSecret enables bearer-token auth on the action routes when set.
	AuthSecret string
}

func Setup(app *gnest.App, r Routes) {
	var guards []gin.HandlerFunc
	if r.AuthSecret != "" {
		guards = append(guards, middlewares.Auth(r.AuthSecret))
	}
	setupActionRouter(app, r.Actions, guards)
	setupGreetingRouter(app, r.Greetings)
}
