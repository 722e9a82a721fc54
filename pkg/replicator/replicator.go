// Package replicator is ddsync's top-level entry point: it wires a
// logger and an Options value into an engine and exposes the single Run
// call both CLI binaries need. Everything about the run-mode decision
// (which flags were passed, which mode they select) lives in the
// caller; replicator just executes whichever mode it is told to run.
package replicator

import (
	"context"

	"github.com/iamNilotpal/ddsync/internal/engine"
	"github.com/iamNilotpal/ddsync/pkg/logger"
	"github.com/iamNilotpal/ddsync/pkg/options"
)

// Instance is one configured ddsync run.
type Instance struct {
	engine  *engine.Engine
	options *options.Options
}

// New builds an Instance from functional options layered over the
// documented defaults.
func New(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	resolved := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&resolved)
	}

	log := logger.New(service)
	if resolved.Verbosity > 0 {
		log = logger.NewDevelopment(service)
	}

	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: &resolved})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &resolved}, nil
}

// Run executes one top-level run-mode and returns its result.
func (i *Instance) Run(ctx context.Context, mode engine.RunMode) (*engine.RunResult, error) {
	return i.engine.Run(ctx, mode)
}

// Close releases the instance. Safe to call once.
func (i *Instance) Close() error {
	return i.engine.Close()
}
