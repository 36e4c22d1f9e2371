package cqrs

import (
	"context"
	"fmt"
	"time"

	"cqrskit/internal/infra/kernel"
)

func rejectKind(action any, want ActionType) error {
	kind, err := Classify(action)
	if err != nil {
		return err
	}
	if kind != want {
		return fmt.Errorf("%T is a %s, not a %s", action, kind, want)
	}
	return nil
}

// CommandGateway accepts Commands only.
type CommandGateway struct {
	gw *Gateway
}

func NewCommandGateway(gw *Gateway) *CommandGateway { return &CommandGateway{gw: gw} }

func (c *CommandGateway) Send(ctx context.Context, cmd Command, opts ...ApplyOption) (any, error) {
	if err := rejectKind(cmd, CommandType); err != nil {
		return nil, err
	}
	return c.gw.ApplyNow(ctx, cmd, opts...)
}

func (c *CommandGateway) SendEither(ctx context.Context, cmd Command, opts ...ApplyOption) (Either, error) {
	if err := rejectKind(cmd, CommandType); err != nil {
		return Either{}, err
	}
	return c.gw.ApplyEitherNow(ctx, cmd, opts...)
}

func (c *CommandGateway) SendAndWait(ctx context.Context, cmd Command, timeout time.Duration, opts ...ApplyOption) (any, error) {
	if err := rejectKind(cmd, CommandType); err != nil {
		return nil, err
	}
	return c.gw.ApplyAndWait(ctx, cmd, timeout, opts...)
}

func (c *CommandGateway) SendAndWaitEither(ctx context.Context, cmd Command, timeout time.Duration, opts ...ApplyOption) (Either, error) {
	if err := rejectKind(cmd, CommandType); err != nil {
		return Either{}, err
	}
	return c.gw.ApplyAndWaitEither(ctx, cmd, timeout, opts...)
}

func (c *CommandGateway) SendAsync(ctx context.Context, cmd Command, opts ...ApplyOption) *kernel.Future[any] {
	if err := rejectKind(cmd, CommandType); err != nil {
		return kernel.FailedFuture[any](err)
	}
	return c.gw.ApplyAsync(ctx, cmd, opts...)
}
