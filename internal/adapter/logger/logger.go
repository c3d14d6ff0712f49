package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(action, message, requestID string, details map[string]interface{})
	Debug(action, message, requestID string, details map[string]interface{})
	Error(action, message, requestID string, details map[string]interface{}, err error)
	Sync() error
}

type zapLogger struct {
	log *zap.Logger
}

// New builds a JSON logger tagged with the service mode and host name.
func New(service, level string) (Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.EncoderConfig = encoderConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.DisableCaller = true

	hostname, _ := os.Hostname()
	log, err := cfg.Build(zap.Fields(
		zap.String("service", service),
		zap.String("hostname", hostname),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &zapLogger{log: log}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &zapLogger{log: zap.NewNop()}
}

// FromZap wraps an existing zap logger, e.g. one built with zaptest.
func FromZap(log *zap.Logger) Logger {
	return &zapLogger{log: log}
}

func (l *zapLogger) Info(action, message, requestID string, details map[string]interface{}) {
	l.write(zapcore.InfoLevel, action, message, requestID, details, nil)
}

func (l *zapLogger) Debug(action, message, requestID string, details map[string]interface{}) {
	l.write(zapcore.DebugLevel, action, message, requestID, details, nil)
}

func (l *zapLogger) Error(action, message, requestID string, details map[string]interface{}, err error) {
	l.write(zapcore.ErrorLevel, action, message, requestID, details, err)
}

func (l *zapLogger) Sync() error {
	return l.log.Sync()
}

func (l *zapLogger) write(level zapcore.Level, action, message, requestID string, details map[string]interface{}, err error) {
	ce := l.log.Check(level, message)
	if ce == nil {
		return
	}

	fields := make([]zap.Field, 0, 4)
	fields = append(fields, zap.String("action", action))
	if requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if len(details) > 0 {
		fields = append(fields, zap.Any("details", details))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}
