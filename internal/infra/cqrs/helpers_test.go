package cqrs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"cqrskit/internal/infra/kernel"
)

type sayHello struct {
	CommandBase
	Name string
}

type unrouted struct {
	CommandBase
}

type slowQuery struct {
	QueryBase
	Delay time.Duration
}

type greetingCount struct {
	QueryBase
}

type orderPlaced struct {
	DomainEventBase
	ID string
}

type mailSent struct {
	ApplicationEventBase
	To string
}

type notAnAction struct{}

type confused struct {
	CommandBase
	QueryBase
}

type bus struct {
	router   *Router
	gateway  *Gateway
	commands *CommandGateway
	queries  *QueryGateway
	events   *EventGateway
	logs     *observer.ObservedLogs
}

func newBus(t *testing.T) *bus {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	exec, err := kernel.NewExecutor(kernel.WithBackgroundWorkers(4), kernel.WithIOWorkers(2), kernel.WithExecutorLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Stop(context.Background()) })

	router := NewRouter()
	gw := NewGateway(kernel.NewUnitOfWork(router, exec, kernel.WithLogger(logger)), WithGatewayLogger(logger))
	return &bus{
		router:   router,
		gateway:  gw,
		commands: NewCommandGateway(gw),
		queries:  NewQueryGateway(gw),
		events:   NewEventGateway(gw, logger),
		logs:     logs,
	}
}

func awaitFuture(t *testing.T, f *kernel.Future[any]) (any, error) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("future did not settle in time")
	}
	return f.Await()
}
