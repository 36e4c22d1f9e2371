package interceptors

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cqrskit/internal/infra/kernel"
)

const (
	TracingName  = "tracing"
	OrderTracing = -2000

	tracerName = "cqrskit/kernel"
)

// TracingInterceptor opens one span per task. It runs ahead of argument
// resolution so a handler binding Ctx() dispatches nested actions under the
// task's span.
type TracingInterceptor struct {
	tracer trace.Tracer
}

// NewTracingInterceptor uses tp, or the global provider when tp is nil.
func NewTracingInterceptor(tp trace.TracerProvider) *TracingInterceptor {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TracingInterceptor{tracer: tp.Tracer(tracerName)}
}

func (t *TracingInterceptor) Name() string { return TracingName }
func (t *TracingInterceptor) Order() int   { return OrderTracing }

func (t *TracingInterceptor) Intercept(ctx context.Context, task *kernel.Task, chain *kernel.Chain) (any, error) {
	msg := task.Message()
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("%T", msg.Payload()),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cqrskit.task_id", task.ID()),
			attribute.String("cqrskit.message_id", msg.ID()),
			attribute.String("cqrskit.mode", task.Mode().String()),
			attribute.String("cqrskit.action_type", msg.HeaderString(kernel.HeaderActionType)),
			attribute.Int("cqrskit.depth", task.Depth()),
		),
	)

	defer func() {
		if r := recover(); r != nil {
			endSpan(span, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	result, err := chain.Next(ctx)

	if inner, ok := result.(*kernel.Future[any]); ok && err == nil {
		inner.OnComplete(func(_ any, err error) { endSpan(span, err) })
		return result, nil
	}
	endSpan(span, err)
	return result, err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
