package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cqrskit/internal/config"
	"cqrskit/internal/domain/greeting"
	"cqrskit/internal/infra/cqrs"
	"cqrskit/internal/infra/gnest"
	"cqrskit/internal/infra/kernel"
	"cqrskit/internal/infra/logger"
	"cqrskit/internal/infra/redis"
	"cqrskit/internal/infra/telemetry"
	"cqrskit/internal/interfaces/handlers"
	"cqrskit/internal/interfaces/interceptors"
	"cqrskit/internal/interfaces/middlewares"
	"cqrskit/internal/router"
)

// App is the composition root: engine, gateways and the HTTP host around them.
type App struct {
	Config   *config.Config
	Logger   *logger.LoggerService
	Executor *kernel.Executor
	Router   *cqrs.Router
	Commands *cqrs.CommandGateway
	Queries  *cqrs.QueryGateway
	Events   *cqrs.EventGateway
	Greeting *greeting.GreetingService
	Store    greeting.Store
	Server   *gnest.App
}

// Setup loads configuration from configPath (see config.LoadConfig) and wires everything.
func Setup(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.NewLoggerService(cfg.Logger)
	if err != nil {
		return nil, err
	}
	return New(cfg, log)
}

// New wires the application from an already loaded config.
func New(cfg *config.Config, log *logger.LoggerService) (*App, error) {
	// 1. tracing
	tp, err := telemetry.Setup(context.Background(), cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	// 2. executor and its interceptor chain
	executor, err := kernel.NewExecutor(
		kernel.WithInterceptors(
			interceptors.NewTracingInterceptor(tp),
			interceptors.NewLoggingInterceptor(log.Log.Named("task")),
		),
		kernel.WithOrderOverrides(cfg.Interceptors.Order),
		kernel.WithBackgroundWorkers(cfg.Executor.BackgroundWorkers),
		kernel.WithIOWorkers(cfg.Executor.IOWorkers),
		kernel.WithExecutorQueueSize(cfg.Executor.QueueSize),
		kernel.WithExecutorLogger(log.Log.Named("executor")),
	)
	if err != nil {
		return nil, err
	}

	// 3. dispatch
	var filters []kernel.Filter
	if cfg.Filters.Validate {
		filters = append(filters, kernel.NewValidationFilter())
	}
	actionRouter := cqrs.NewRouter()
	uow := kernel.NewUnitOfWork(actionRouter, executor,
		kernel.WithFilters(filters...),
		kernel.WithLogger(log.Log.Named("uow")),
	)
	gw := cqrs.NewGateway(uow,
		cqrs.WithTimeout(cfg.Gateway.Timeout),
		cqrs.WithDefaultHeaders(kernel.Headers{"app": cfg.App.Name}),
		cqrs.WithGatewayLogger(log.Log.Named("gateway")),
	)
	commands, queries := cqrs.NewCommandGateway(gw), cqrs.NewQueryGateway(gw)
	events := cqrs.NewEventGateway(gw, log.Log.Named("events"))

	// 4. domain
	var store greeting.Store = greeting.NewRepository()
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = greeting.NewRedisRepository(redisClient, cfg.Redis.Prefix)
	}
	greetingService := greeting.NewGreetingService(store, commands, queries, events, log.Log.Named("greeting"))
	if err := greetingService.Register(actionRouter); err != nil {
		_ = executor.Stop(context.Background())
		return nil, err
	}
	catalog, err := newCatalog()
	if err != nil {
		_ = executor.Stop(context.Background())
		return nil, err
	}

	// 5. HTTP host; shutdown runs in reverse: redis, executor, tracer, logger
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := gnest.New(
		gnest.WithLogger(log.Log.Named("http")),
		gnest.WithShutdownTimeout(cfg.HTTP.ShutdownTimeout),
	)
	server.Provide(log, tp, executor)
	if redisClient != nil {
		server.Provide(redisClient)
	}
	server.Use(
		middlewares.Logger(log.Log.Named("access")),
		middlewares.Recovery(log.Log),
		middlewares.CORS(cfg.HTTP.CORSOrigins...),
		middlewares.Response(),
	)

	routes := router.Routes{
		Actions:   handlers.NewActionHandler(catalog, commands, queries, events, executor),
		Greetings: handlers.NewGreetingHandler(greetingService),
	}
	if cfg.Auth.Enabled {
		routes.AuthSecret = cfg.Auth.SecretKey
	}
	router.Setup(server, routes)

	log.Log.Info("application wired",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Int("routes", len(actionRouter.Registrations())),
		zap.Bool("redis", redisClient != nil),
	)
	return &App{
		Config:   cfg,
		Logger:   log,
		Executor: executor,
		Router:   actionRouter,
		Commands: commands,
		Queries:  queries,
		Events:   events,
		Greeting: greetingService,
		Store:    store,
		Server:   server,
	}, nil
}

func newCatalog() (*handlers.Catalog, error) {
	c := handlers.NewCatalog()
	entries := []struct {
		name    string
		factory func() any
	}{
		{"say-hello", func() any { return &greeting.SayHello{} }},
		{"farewell", func() any { return &greeting.Farewell{} }},
		{"count-greetings", func() any { return &greeting.CountGreetings{} }},
		{"slow", func() any { return &greeting.SlowQuery{} }},
		{"greeted", func() any { return &greeting.Greeted{} }},
	}
	for _, e := range entries {
		if err := c.Add(e.name, e.factory); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Run serves on addr until SIGINT or SIGTERM.
func (a *App) Run(addr string) error {
	return a.Server.ListenAndServe(addr)
}
