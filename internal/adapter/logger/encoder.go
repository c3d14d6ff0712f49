package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field names follow the log format shared by every service mode.
func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.LevelKey = "level"
	cfg.MessageKey = "message"
	cfg.CallerKey = ""
	cfg.StacktraceKey = "stack"
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}
