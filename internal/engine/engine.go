// Package engine is ddsync's central coordinator: it turns one resolved
// run-mode and an Options value into the right sequence of component
// calls — sizing and opening the checksum store, optionally loading a
// change-map, driving the worker pipeline, or parsing and applying a
// delta file — and reports back the result the CLI surface needs to pick
// an exit code.
package engine

import (
	"context"
	"errors"
	"os"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/iamNilotpal/ddsync/internal/changemap"
	"github.com/iamNilotpal/ddsync/internal/checksum"
	"github.com/iamNilotpal/ddsync/internal/delta"
	"github.com/iamNilotpal/ddsync/internal/pipeline"
	"github.com/iamNilotpal/ddsync/internal/segment"
	"github.com/iamNilotpal/ddsync/pkg/device"
	"github.com/iamNilotpal/ddsync/pkg/options"
)

var (
	// ErrEngineClosed is returned when attempting to use a closed engine.
	ErrEngineClosed = errors.New("operation failed: cannot access closed engine")

	// ErrPreflightNewStoreRequired signals NEW_CHECKSUM's exit-3 case: the
	// checksum store is absent or sized for a different source.
	ErrPreflightNewStoreRequired = errors.New("checksum store absent or mismatched: new store required")
)

// RunMode selects one of the top-level operations the driver can invoke.
type RunMode int

const (
	ModeSourceTarget RunMode = iota
	ModeChecksumOnly
	ModeNewChecksum
	ModeDDZone
	ModeSourceDelta
	ModeShowDelta
	ModeApplyDelta
)

// RunResult carries whichever stats a mode produced; at most one field
// is populated: Pipeline for the pipeline modes, Apply for APPLY_DELTA,
// and neither for SHOW_DELTA or NEW_CHECKSUM.
type RunResult struct {
	Pipeline *pipeline.Stats
	Apply    *delta.ApplyStats
}

// Engine coordinates checksum, change-map, pipeline, and delta for one
// configured replication run. It holds no long-lived subsystem handles
// of its own: each Run call opens exactly what that mode needs and
// closes it before returning, since a run-mode is selected once and the
// engine has no cross-call state to protect beyond the closed flag.
type Engine struct {
	options *options.Options
	log     *zap.SugaredLogger
	closed  atomic.Bool
}

// Config holds the parameters needed to initialize a new Engine.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New creates a new Engine instance from the given configuration.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.New("engine configuration is required")
	}
	return &Engine{options: config.Options, log: config.Logger}, nil
}

// Close marks the engine closed. No resources are held between Run
// calls, so this only guards against reuse after Close.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}
	return nil
}

// Run dispatches to the component sequence for mode and returns whatever
// stats that sequence produced.
func (e *Engine) Run(ctx context.Context, mode RunMode) (*RunResult, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	switch mode {
	case ModeShowDelta:
		return &RunResult{}, e.runShowDelta()
	case ModeApplyDelta:
		stats, err := e.runApplyDelta(ctx)
		if err != nil {
			return nil, err
		}
		return &RunResult{Apply: stats}, nil
	case ModeNewChecksum:
		return &RunResult{}, e.runPreflight()
	default:
		stats, err := e.runPipelineMode(ctx, mode)
		if err != nil {
			return nil, err
		}
		return &RunResult{Pipeline: stats}, nil
	}
}

func (e *Engine) checksumPath() string {
	if e.options.ChecksumPath == "" {
		return checksum.NullPath
	}
	return e.options.ChecksumPath
}

func (e *Engine) sourceBytes() (int64, error) {
	src, err := device.OpenRO(e.options.SourcePath, false)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return device.Size(src)
}

// runPipelineMode covers SOURCE_TARGET, CHECKSUM_ONLY, SOURCE_DELTA, and
// DDZONE: every mode that drives the worker pipeline (§2's component E).
func (e *Engine) runPipelineMode(ctx context.Context, mode RunMode) (*pipeline.Stats, error) {
	sourceBytes, err := e.sourceBytes()
	if err != nil {
		return nil, err
	}

	store, err := checksum.Open(ctx, &checksum.Config{
		Path: e.checksumPath(), SourceBytes: sourceBytes, Logger: e.log,
	})
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var cm *changemap.ChangeMap
	if e.options.ChangeMapPath != "" {
		cm, err = changemap.Load(&changemap.Config{Path: e.options.ChangeMapPath, Logger: e.log})
		if err != nil {
			return nil, err
		}
	}

	var writer *delta.Writer
	if mode == ModeSourceDelta {
		writer, err = delta.NewWriter(
			e.options.DeltaPath, uint64(sourceBytes), uint64(segment.Size), e.options.Compress, e.options.CompressLevel,
		)
		if err != nil {
			return nil, err
		}
		defer writer.Close()
	}

	return pipeline.Run(ctx, &pipeline.Config{
		SourcePath:  e.options.SourcePath,
		TargetPath:  e.options.TargetPath,
		CacheBypass: e.options.CacheBypass,
		Workers:     e.options.Workers,
		Mode:        toPipelineMode(mode),
		Store:       store,
		ChangeMap:   cm,
		DeltaWriter: writer,
		RateCapMBs:  e.options.RateCapMBs,
		Logger:      e.log,
	})
}

func toPipelineMode(mode RunMode) pipeline.Mode {
	switch mode {
	case ModeChecksumOnly:
		return pipeline.ModeChecksumOnly
	case ModeSourceDelta:
		return pipeline.ModeSourceDelta
	case ModeDDZone:
		return pipeline.ModeDDZone
	default:
		return pipeline.ModeSourceTarget
	}
}

// runPreflight implements NEW_CHECKSUM: report whether a run would need
// to create or grow the checksum store, without touching anything.
func (e *Engine) runPreflight() error {
	path := e.checksumPath()
	if path == checksum.NullPath {
		return nil
	}

	sourceBytes, err := e.sourceBytes()
	if err != nil {
		return err
	}
	expected := segment.Count(sourceBytes) * 8

	if !device.Exists(path) {
		return ErrPreflightNewStoreRequired
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() != expected {
		return ErrPreflightNewStoreRequired
	}
	return nil
}

func (e *Engine) runShowDelta() error {
	reader, err := delta.OpenReader(e.options.DeltaPath, e.log)
	if err != nil {
		return err
	}
	defer reader.Close()
	return reader.Show(os.Stdout)
}

func (e *Engine) runApplyDelta(ctx context.Context) (*delta.ApplyStats, error) {
	reader, err := delta.OpenReader(e.options.DeltaPath, e.log)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	header := reader.Header()
	target, err := device.OpenSized(e.options.TargetPath, int64(header.SourceSize))
	if err != nil {
		return nil, err
	}
	defer target.Close()

	var store *checksum.Store
	if e.options.ChecksumPath != "" && e.options.ChecksumPath != checksum.NullPath {
		segs := (int64(header.SourceSize) + int64(header.CheckSegSize) - 1) / int64(header.CheckSegSize)
		sized, err := device.OpenSized(e.options.ChecksumPath, segs*8)
		if err != nil {
			return nil, err
		}
		sized.Close()

		store, err = checksum.LoadExisting(e.options.ChecksumPath, e.log)
		if err != nil {
			return nil, err
		}
		defer store.Close()
	}

	return reader.Apply(target, store)
}
