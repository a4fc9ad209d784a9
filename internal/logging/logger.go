// Package logging builds the structured zap logger shared by every
// store, client and tooling process in this module.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON structured logger tagged with the given service name.
// Level defaults to info and can be overridden with LOG_LEVEL.
func New(serviceName string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(levelFromEnv(os.Getenv("LOG_LEVEL")))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Fall back to a minimal logger rather than crash the caller over
		// a logging misconfiguration.
		logger = zap.NewNop()
	}

	return logger.With(zap.String("service", serviceName))
}

func levelFromEnv(raw string) zapcore.Level {
	switch raw {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
