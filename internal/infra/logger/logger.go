package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"cqrskit/internal/config"
)

type LoggerService struct {
	Log    *zap.Logger
	closer io.Closer
}

// NewLoggerService tees a JSON file core and a console core. With cfg.File
// false only the console core is built.
func NewLoggerService(cfg config.Logger) (*LoggerService, error) {
	return newLoggerService(cfg, os.Stdout)
}

func newLoggerService(cfg config.Logger, console zapcore.WriteSyncer) (*LoggerService, error) {
	level := zap.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logger level: %w", err)
		}
		level = parsed
	}

	// 1. encoder: 2025-12-14 18:00:00, no milliseconds
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05"))
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleConfig := encoderConfig
	if cfg.Env != "prod" {
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), console, level),
	}

	// 2. file core, JSON for log shipping
	svc := &LoggerService{}
	if cfg.File {
		writer, err := fileWriter(cfg)
		if err != nil {
			return nil, err
		}
		if c, ok := writer.(io.Closer); ok {
			svc.closer = c
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(writer),
			level,
		))
	}

	// 3. zap.AddCaller records the call site
	svc.Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return svc, nil
}

func fileWriter(cfg config.Logger) (io.Writer, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	if cfg.Rotate == "size" {
		return &lumberjack.Logger{
			Filename:   path.Join(dir, "app.log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     int(cfg.MaxAge / (24 * time.Hour)),
			LocalTime:  true,
		}, nil
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	rotation := cfg.RotationTime
	if rotation <= 0 {
		rotation = 24 * time.Hour
	}
	writer, err := rotatelogs.New(
		path.Join(dir, "app-%Y-%m-%d.log"),
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotation),
	)
	if err != nil {
		return nil, fmt.Errorf("rotatelogs: %w", err)
	}
	return writer, nil
}

// Nop returns a service that discards everything.
func Nop() *LoggerService {
	return &LoggerService{Log: zap.NewNop()}
}

// Close flushes the logger and releases the file writer.
func (s *LoggerService) Close() error {
	_ = s.Log.Sync()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func (s *LoggerService) OnApplicationShutdown(ctx context.Context) error {
	return s.Close()
}
