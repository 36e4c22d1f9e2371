package kernel

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// UnitOfWork is the dispatch entry point: filters, routing, scheduling.
type UnitOfWork struct {
	filters  []Filter
	router   Router
	executor *Executor
	logger   *zap.Logger
}

type UnitOfWorkOption func(*UnitOfWork)

// WithFilters appends global filters; they run in the given order.
func WithFilters(fs ...Filter) UnitOfWorkOption {
	return func(u *UnitOfWork) { u.filters = append(u.filters, fs...) }
}

func WithLogger(l *zap.Logger) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		if l != nil {
			u.logger = l
		}
	}
}

func NewUnitOfWork(router Router, executor *Executor, opts ...UnitOfWorkOption) *UnitOfWork {
	u := &UnitOfWork{router: router, executor: executor, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *UnitOfWork) Executor() *Executor { return u.executor }

// Process dispatches msg. The returned future always settles: rejections by a
// filter or the router fail it before any task is scheduled. The executing task
// found in ctx, if any, becomes the new task's parent.
func (u *UnitOfWork) Process(ctx context.Context, msg *Message, mode Mode, state map[string]any) *Future[any] {
	if ctx == nil {
		ctx = context.Background()
	}

	// 1. filters, on the caller goroutine
	if err := runFilters(ctx, u.filters, msg); err != nil {
		u.logger.Debug("message filtered", zap.String("message_id", msg.ID()), zap.Error(err))
		return FailedFuture[any](err)
	}

	// 2. routing
	handler, ok, err := u.router.Match(msg)
	if err != nil {
		return FailedFuture[any](err)
	}
	if !ok || handler == nil {
		return FailedFuture[any](&HandlerNotFoundError{Payload: fmt.Sprintf("%T", msg.Payload()), MessageID: msg.ID()})
	}

	// 3. scheduling
	task := NewTask(msg, handler, TaskFromContext(ctx), state)
	u.logger.Debug("task scheduled",
		zap.String("task_id", task.ID()),
		zap.String("message_id", msg.ID()),
		zap.Stringer("mode", mode),
		zap.Int("depth", task.Depth()),
	)
	return u.executor.Submit(ctx, task, mode)
}
