package gnest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ==========================================
// 1. Lifecycle hooks
// ==========================================

// OnApplicationBootstrap runs before the server accepts connections. An error aborts startup.
type OnApplicationBootstrap interface {
	OnApplicationBootstrap(ctx context.Context) error
}

// BeforeApplicationShutdown runs once a stop signal arrives, before connections drain.
type BeforeApplicationShutdown interface {
	BeforeApplicationShutdown(reason string)
}

// OnApplicationShutdown runs after the server stopped, in reverse registration order.
type OnApplicationShutdown interface {
	OnApplicationShutdown(ctx context.Context) error
}

// ==========================================
// 2. App
// ==========================================

type App struct {
	Engine          *gin.Engine
	components      []any
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

type Option func(*App)

func WithLogger(l *zap.Logger) Option {
	return func(app *App) {
		if l != nil {
			app.logger = l
		}
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(app *App) {
		if d > 0 {
			app.shutdownTimeout = d
		}
	}
}

// New builds a bare engine; middlewares come in through Use.
func New(opts ...Option) *App {
	app := &App{
		Engine:          gin.New(),
		logger:          zap.NewNop(),
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Provide registers components whose lifecycle hooks the app drives.
func (app *App) Provide(cs ...any) *App {
	app.components = concat(app.components, cs)
	return app
}

func (app *App) Use(ms ...gin.HandlerFunc) *App {
	app.Engine.Use(ms...)
	return app
}

func (app *App) Group(path string, ms ...gin.HandlerFunc) *gin.RouterGroup {
	return app.Engine.Group(path, ms...)
}

// SetMode sets the gin mode (gin.ReleaseMode / gin.DebugMode / gin.TestMode).
func (app *App) SetMode(mode string) *App {
	gin.SetMode(mode)
	return app
}

func (app *App) NoRoute(hs ...gin.HandlerFunc) *App {
	app.Engine.NoRoute(hs...)
	return app
}

// ==========================================
// 3. Serving
// ==========================================

// ListenAndServe serves addr until SIGINT or SIGTERM, then shuts down gracefully.
func (app *App) ListenAndServe(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return app.Serve(ctx, ln)
}

// Serve runs the bootstrap hooks, serves ln until ctx is done, then runs the
// shutdown sequence. Every shutdown failure is reported.
func (app *App) Serve(ctx context.Context, ln net.Listener) error {
	// 1. bootstrap
	for _, c := range app.components {
		if h, ok := c.(OnApplicationBootstrap); ok {
			if err := h.OnApplicationBootstrap(ctx); err != nil {
				_ = ln.Close()
				return multierr.Append(fmt.Errorf("bootstrap %T: %w", c, err), app.shutdown("bootstrap failed"))
			}
		}
	}

	// 2. serve
	srv := &http.Server{Handler: app.Engine, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	app.logger.Info("server started", zap.String("addr", ln.Addr().String()))

	var reason string
	var err error
	select {
	case <-ctx.Done():
		reason = context.Cause(ctx).Error()
	case err = <-serveErr:
		reason = "server error"
	}

	// 3. shutdown
	for _, c := range app.components {
		if h, ok := c.(BeforeApplicationShutdown); ok {
			h.BeforeApplicationShutdown(reason)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
	defer cancel()
	if e := srv.Shutdown(shutdownCtx); e != nil {
		err = multierr.Append(err, fmt.Errorf("http shutdown: %w", e))
	}
	err = multierr.Append(err, app.shutdown(reason))
	app.logger.Info("shutdown finished", zap.String("reason", reason), zap.Error(err))
	return err
}

func (app *App) shutdown(reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
	defer cancel()

	var err error
	for i := len(app.components) - 1; i >= 0; i-- {
		c := app.components[i]
		if h, ok := c.(OnApplicationShutdown); ok {
			if e := h.OnApplicationShutdown(ctx); e != nil {
				err = multierr.Append(err, fmt.Errorf("shutdown %T: %w", c, e))
			}
		}
	}
	app.logger.Debug("components stopped", zap.String("reason", reason), zap.Int("components", len(app.components)))
	return err
}

func concat[T any](ss ...[]T) []T {
	var r []T
	for _, s := range ss {
		r = append(r, s...)
	}
	return r
}
