// Package observability provides structured logging and the management event feed.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/hearth/internal/config"
)

// NewLogger builds the process logger writing to stderr. When feed is non-nil
// entries at Info or above, and at or above cfg.Level, are also published to
// it.
//
// Precondition: cfg has passed config validation.
func NewLogger(cfg config.LoggingConfig, feed *Feed) (*zap.Logger, error) {
	return newLogger(cfg, feed, zapcore.Lock(os.Stderr))
}

func newLogger(cfg config.LoggingConfig, feed *Feed, out zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	enc, err := encoderFor(cfg.Format)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(enc, out, level)
	if feed != nil {
		core = zapcore.NewTee(core, feed.Core(max(level, zapcore.InfoLevel)))
	}
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(out),
	), nil
}

func encoderFor(format string) (zapcore.Encoder, error) {
	switch format {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec), nil
	case "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
