// Package pipeline is the partitioned multi-worker read/compare/write
// loop: the hot path of a replication run. The driver splits the source
// address space into disjoint partitions (internal/segment.Plan, or a
// change-map's worker-sliced runs), spawns one goroutine per partition
// with no locking between them, and each worker reads one buffer at a
// time, compares fingerprints against the checksum store, and either
// writes changed regions to a target or appends them to a delta file.
package pipeline

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/iamNilotpal/ddsync/internal/segment"
	"github.com/iamNilotpal/ddsync/pkg/device"
	"github.com/iamNilotpal/ddsync/pkg/errors"
)

// workerStagger is how long the driver waits between spawning
// successive workers, to avoid every worker's first read hitting the
// device at once.
const workerStagger = 500 * time.Microsecond

// Run partitions the source across config.Workers goroutines (forced to
// 1 for ModeSourceDelta) and drives each through the per-buffer
// algorithm until its partition is exhausted, then aggregates stats.
// A worker's failure is recorded but every worker is still joined before
// Run returns, per the engine's best-effort-cleanup failure policy.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := validate(config); err != nil {
		return nil, err
	}

	probe, err := device.OpenRO(config.SourcePath, false)
	if err != nil {
		return nil, err
	}
	sourceBytes, err := device.Size(probe)
	probe.Close()
	if err != nil {
		return nil, err
	}

	workers := config.Workers
	if config.Mode == ModeSourceDelta {
		workers = 1
	}

	partitions := segment.Plan(sourceBytes, workers)
	effectiveWorkers := len(partitions)

	config.Logger.Infow(
		"starting pipeline run",
		"mode", config.Mode,
		"sourceBytes", sourceBytes,
		"workers", effectiveWorkers,
		"changeMapDriven", config.ChangeMap != nil,
	)

	statsPerWorker := make([]workerStats, effectiveWorkers)
	errs := make([]error, effectiveWorkers)
	var wg sync.WaitGroup

	for i, part := range partitions {
		if i > 0 {
			time.Sleep(workerStagger)
		}
		wg.Add(1)
		go func(i int, part segment.Partition) {
			defer wg.Done()
			errs[i] = runWorker(ctx, config, part, effectiveWorkers, sourceBytes, &statsPerWorker[i])
		}(i, part)
	}
	wg.Wait()

	var combined error
	for _, e := range errs {
		combined = multierr.Append(combined, e)
	}
	if combined != nil {
		return nil, combined
	}

	stats := &Stats{}
	for _, s := range statsPerWorker {
		stats.BuffersRead += s.buffersRead
		stats.ChangedSegments += s.changedSegments
		stats.BytesWritten += s.bytesWritten
	}

	config.Logger.Infow(
		"pipeline run complete",
		"buffersRead", stats.BuffersRead,
		"changedSegments", stats.ChangedSegments,
		"bytesWritten", stats.BytesWritten,
	)
	return stats, nil
}

func validate(config *Config) error {
	if config == nil || config.SourcePath == "" || config.Store == nil || config.Logger == nil {
		return errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "pipeline configuration is required",
		).WithField("config").WithRule("required")
	}
	if config.Mode == ModeSourceTarget && config.TargetPath == "" {
		return errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "target path is required for this mode",
		).WithField("TargetPath").WithRule("required")
	}
	if config.Mode == ModeSourceDelta && config.DeltaWriter == nil {
		return errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "delta writer is required for this mode",
		).WithField("DeltaWriter").WithRule("required")
	}
	return nil
}

// runWorker opens its own independent source (and, in ModeSourceTarget,
// target) handle so no file offset is shared with any other worker,
// builds its list of buffer-sized runs, and drives each through
// processBuffer in order.
func runWorker(
	ctx context.Context,
	config *Config,
	part segment.Partition,
	totalWorkers int,
	sourceBytes int64,
	stats *workerStats,
) error {
	source, err := device.OpenRO(config.SourcePath, config.CacheBypass)
	if err != nil {
		return err
	}
	defer source.Close()

	var target *os.File
	if config.Mode == ModeSourceTarget {
		target, err = device.OpenRW(config.TargetPath, false)
		if err != nil {
			return err
		}
		defer target.Close()
	}

	runs := buildRuns(config, part, totalWorkers)
	throttle := newThrottle(config.RateCapMBs)

	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := processBuffer(source, target, config, part.WorkerID, run, sourceBytes, stats, throttle); err != nil {
			return err
		}
	}
	return nil
}

// buildRuns returns a worker's ordered list of buffer-sized work units:
// the change-map's coalesced dirty runs when one is configured, or a
// plain sequential chunking of its device partition otherwise.
func buildRuns(config *Config, part segment.Partition, totalWorkers int) []bufferRun {
	if config.ChangeMap != nil {
		mapRuns := config.ChangeMap.WorkerRuns(part.WorkerID, totalWorkers)
		runs := make([]bufferRun, len(mapRuns))
		for i, r := range mapRuns {
			runs[i] = bufferRun{offset: r.Offset, length: r.Length}
		}
		return runs
	}
	return sequentialRuns(part)
}

func sequentialRuns(part segment.Partition) []bufferRun {
	var runs []bufferRun
	for offset := part.Start; offset < part.End; offset += segment.BufferSize {
		length := int64(segment.BufferSize)
		if offset+length > part.End {
			length = part.End - offset
		}
		runs = append(runs, bufferRun{offset: offset, length: length})
	}
	return runs
}
