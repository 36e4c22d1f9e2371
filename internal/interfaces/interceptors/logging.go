package interceptors

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cqrskit/internal/infra/kernel"
)

const (
	LoggingName  = "logging"
	OrderLogging = -1500
)

// LoggingInterceptor logs one line per task: Info on success, Error on failure.
type LoggingInterceptor struct {
	Logger *zap.Logger
}

func NewLoggingInterceptor(logger *zap.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingInterceptor{Logger: logger}
}

func (l *LoggingInterceptor) Name() string { return LoggingName }
func (l *LoggingInterceptor) Order() int   { return OrderLogging }

func (l *LoggingInterceptor) Intercept(ctx context.Context, task *kernel.Task, chain *kernel.Chain) (any, error) {
	start := time.Now()

	result, err := chain.Next(ctx)

	msg := task.Message()
	fields := []zap.Field{
		zap.String("task_id", task.ID()),
		zap.String("message_id", msg.ID()),
		zap.Stringer("mode", task.Mode()),
		zap.String("payload", fmt.Sprintf("%T", msg.Payload())),
		zap.String("action_type", msg.HeaderString(kernel.HeaderActionType)),
		zap.Duration("duration", time.Since(start)),
	}
	if parent := task.Parent(); parent != nil {
		fields = append(fields, zap.String("parent_id", parent.ID()))
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		l.Logger.Error("task failed", fields...)
		return result, err
	}
	if _, ok := result.(*kernel.Future[any]); ok {
		l.Logger.Info("task deferred", fields...)
		return result, nil
	}
	l.Logger.Info("task completed", fields...)
	return result, nil
}
