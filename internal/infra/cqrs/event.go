package cqrs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cqrskit/internal/infra/kernel"
)

// EventGateway publishes events. Domain events run synchronously and their
// failures reach the publisher; application events are fire-and-forget.
// An event nobody handles is logged and dropped.
type EventGateway struct {
	gw     *Gateway
	logger *zap.Logger
}

func NewEventGateway(gw *Gateway, logger *zap.Logger) *EventGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventGateway{gw: gw, logger: logger}
}

func (e *EventGateway) Publish(ctx context.Context, event any, opts ...ApplyOption) error {
	kind, err := Classify(event)
	if err != nil {
		return err
	}

	switch kind {
	case DomainEventType:
		v, err := e.gw.dispatch(ctx, event, kernel.Posting, opts).AwaitContext(ctx)
		if unhandled(event, err) {
			e.noHandler(event)
			return nil
		}
		_, err = unwrap(v, err)
		return err

	case ApplicationEventType:
		e.gw.ApplyAsync(ctx, event, opts...).OnComplete(func(_ any, err error) {
			switch {
			case err == nil:
			case unhandled(event, err):
				e.noHandler(event)
			default:
				e.logger.Error("application event handler failed",
					zap.String("event", fmt.Sprintf("%T", event)),
					zap.Error(err),
				)
			}
		})
		return nil
	}
	return fmt.Errorf("%T is a %s, not an event", event, kind)
}

// unhandled reports whether err is the dispatcher's own not-found for event.
// A not-found coming back from a nested dispatch inside a handler arrives
// wrapped in an ExecutionError and is a handler failure.
func unhandled(event any, err error) bool {
	nf, ok := err.(*kernel.HandlerNotFoundError)
	return ok && nf.Payload == fmt.Sprintf("%T", event)
}

func (e *EventGateway) noHandler(event any) {
	e.logger.Warn(fmt.Sprintf("event type [ %T ] doesn't have handler.", event))
}
