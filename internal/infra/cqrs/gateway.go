package cqrs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cqrskit/internal/infra/kernel"
)

// ActionMessageFactory classifies the payload and stamps its ActionType header.
type ActionMessageFactory struct {
	Delegate kernel.MessageFactory
}

func (f ActionMessageFactory) Pack(payload any, headers kernel.Headers) (*kernel.Message, error) {
	if payload == nil {
		return nil, kernel.ErrNilPayload
	}
	kind, err := Classify(payload)
	if err != nil {
		return nil, err
	}
	delegate := f.Delegate
	if delegate == nil {
		delegate = kernel.DefaultMessageFactory{}
	}
	return delegate.Pack(payload, headers.Merge(kernel.Headers{kernel.HeaderActionType: kind.String()}))
}

// =======================================================
// Gateway
// =======================================================

const DefaultTimeout = 5 * time.Second

// ApplyOption adjusts a single dispatch.
type ApplyOption func(*applyOptions)

type applyOptions struct {
	headers kernel.Headers
	state   map[string]any
	mode    *kernel.Mode
}

// WithHeaders adds message headers; later options win.
func WithHeaders(h kernel.Headers) ApplyOption {
	return func(o *applyOptions) { o.headers = o.headers.Merge(h) }
}

// WithState supplies explicit task state, merged over any inherited state.
func WithState(s map[string]any) ApplyOption {
	return func(o *applyOptions) {
		if o.state == nil {
			o.state = map[string]any{}
		}
		for k, v := range s {
			o.state[k] = v
		}
	}
}

// WithMode overrides the pool used by the AndWait and Async variants.
func WithMode(m kernel.Mode) ApplyOption {
	return func(o *applyOptions) { o.mode = &m }
}

type GatewayOption func(*Gateway)

func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithMessageFactory(f kernel.MessageFactory) GatewayOption {
	return func(g *Gateway) { g.factory = f }
}

// WithDefaultHeaders sets headers stamped on every message before per-call ones.
func WithDefaultHeaders(h kernel.Headers) GatewayOption {
	return func(g *Gateway) { g.headers = h.Clone() }
}

func WithGatewayLogger(l *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// Gateway is the synchronous/asynchronous front door to the UnitOfWork.
type Gateway struct {
	uow     *kernel.UnitOfWork
	factory kernel.MessageFactory
	headers kernel.Headers
	timeout time.Duration
	logger  *zap.Logger
}

func NewGateway(uow *kernel.UnitOfWork, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		uow:     uow,
		factory: ActionMessageFactory{},
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Timeout() time.Duration { return g.timeout }

func (g *Gateway) dispatch(ctx context.Context, action any, mode kernel.Mode, opts []ApplyOption) *kernel.Future[any] {
	o := applyOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.mode != nil && mode != kernel.Posting {
		mode = *o.mode
	}
	msg, err := g.factory.Pack(action, g.headers.Merge(o.headers))
	if err != nil {
		return kernel.FailedFuture[any](err)
	}
	return g.uow.Process(ctx, msg, mode, o.state)
}

// ApplyNow runs action on the calling goroutine and returns its value. Any
// failure, a Left result included, comes back as *kernel.ExecutionError.
func (g *Gateway) ApplyNow(ctx context.Context, action any, opts ...ApplyOption) (any, error) {
	v, err := g.dispatch(ctx, action, kernel.Posting, opts).AwaitContext(ctx)
	return unwrap(v, err)
}

// ApplyAndWait runs action on a pool and waits up to timeout (zero means the
// gateway default). On timeout it returns kernel.ErrTimeout and the task keeps
// running.
func (g *Gateway) ApplyAndWait(ctx context.Context, action any, timeout time.Duration, opts ...ApplyOption) (any, error) {
	v, err := g.wait(ctx, action, timeout, opts)
	if errors.Is(err, kernel.ErrTimeout) {
		return nil, err
	}
	return unwrap(v, err)
}

// ApplyEitherNow is ApplyNow that hands domain errors back as data.
func (g *Gateway) ApplyEitherNow(ctx context.Context, action any, opts ...ApplyOption) (Either, error) {
	return eitherOf(g.dispatch(ctx, action, kernel.Posting, opts).AwaitContext(ctx))
}

// ApplyAndWaitEither is ApplyAndWait that hands domain errors back as data.
func (g *Gateway) ApplyAndWaitEither(ctx context.Context, action any, timeout time.Duration, opts ...ApplyOption) (Either, error) {
	v, err := g.wait(ctx, action, timeout, opts)
	if errors.Is(err, kernel.ErrTimeout) {
		return Either{}, err
	}
	return eitherOf(v, err)
}

// ApplyAsync schedules action on the background pool and returns at once.
func (g *Gateway) ApplyAsync(ctx context.Context, action any, opts ...ApplyOption) *kernel.Future[any] {
	return g.dispatch(ctx, action, kernel.Background, opts)
}

func (g *Gateway) wait(ctx context.Context, action any, timeout time.Duration, opts []ApplyOption) (any, error) {
	if timeout <= 0 {
		timeout = g.timeout
	}
	if ctx == nil {
		ctx = context.Background()
	}
	f := g.dispatch(ctx, action, kernel.Background, opts)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-f.Done():
		return f.Await()
	case <-waitCtx.Done():
		if f.IsDone() {
			return f.Await()
		}
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			g.logger.Warn("gave up waiting for action",
				zap.String("payload", fmt.Sprintf("%T", action)),
				zap.Duration("timeout", timeout),
			)
			return nil, fmt.Errorf("%w after %s", kernel.ErrTimeout, timeout)
		}
		return nil, waitCtx.Err()
	}
}

func unwrap(v any, err error) (any, error) {
	if err != nil {
		return nil, kernel.NewExecutionError("", err)
	}
	e := asEither(v)
	if e.IsLeft() {
		return nil, kernel.NewExecutionError("", e.Err())
	}
	return e.Value(), nil
}

// eitherOf treats a *DomainError returned as the handler error as a Left.
func eitherOf(v any, err error) (Either, error) {
	if err != nil {
		var de *DomainError
		if errors.As(err, &de) {
			return Left(de), nil
		}
		return Either{}, kernel.NewExecutionError("", err)
	}
	return asEither(v), nil
}

// As converts an untyped gateway result.
func As[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("result is %T, not %T", v, zero)
	}
	return t, nil
}
