// Package logger builds the structured loggers used across ddsync's
// subsystems. Every component takes a *zap.SugaredLogger explicitly
// through its Config rather than reaching for a package-level global.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-configured, JSON-encoded logger tagged with
// the given service name. Callers pass the result into every
// component's Config.Logger field.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		// Config above is static and known-valid; fall back rather than
		// propagate an error from what amounts to a constant expression.
		log = zap.NewNop()
	}

	return log.Sugar().With("service", service)
}

// NewDevelopment builds a human-readable, colorized logger suited to
// interactive CLI runs (cmd/ddsync -v / -vv).
func NewDevelopment(service string) *zap.SugaredLogger {
	log, err := zap.NewDevelopment()
	if err != nil {
		log = zap.NewNop()
	}
	return log.Sugar().With("service", service)
}
