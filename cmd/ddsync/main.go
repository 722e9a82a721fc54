// Command ddsync is the replicator's CLI surface: argument parsing, run-
// mode selection from which flags were supplied, and the stats sidecar
// line appended after a successful replication run. None of that is
// part of the core engine; this binary is a thin wrapper that picks a
// run-mode and parameter set and hands them to pkg/replicator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/iamNilotpal/ddsync/internal/engine"
	"github.com/iamNilotpal/ddsync/internal/pipeline"
	"github.com/iamNilotpal/ddsync/internal/segment"
	"github.com/iamNilotpal/ddsync/pkg/device"
	"github.com/iamNilotpal/ddsync/pkg/filesys"
	"github.com/iamNilotpal/ddsync/pkg/options"
	"github.com/iamNilotpal/ddsync/pkg/replicator"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("ddsync", flag.ContinueOnError)

	source := fs.String("s", "", "source device or file")
	target := fs.String("t", "", "target device or file")
	checksumPath := fs.String("c", "", "checksum store path, or /dev/null")
	changeMapPath := fs.String("m", "", "change-map bitmap path")
	deltaPath := fs.String("x", "", "delta file path")
	workers := fs.Int("w", 0, "worker count")
	cacheBypass := fs.Bool("d", false, "cache-bypass reads")
	rateCap := fs.Float64("r", 0, "DDZONE per-worker rate cap in MB/s")
	preflight := fs.Bool("b", false, "preflight: exit 3 if a new checksum store would be required")
	compress := fs.Bool("z", false, "compress delta regions")
	level := fs.Int("l", options.DefaultCompressLevel, "zlib compression level 1-9")
	verbose := fs.Bool("v", false, "verbose logging")
	veryVerbose := fs.Bool("vv", false, "very verbose logging")
	dumpParams := fs.Bool("p", false, "dump build parameters and exit")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *dumpParams {
		fmt.Printf("segment_size=%d read_buffer_size=%d\n", segment.Size, segment.BufferSize)
		return 0
	}

	if *source == "" {
		fmt.Fprintln(os.Stderr, "ddsync: -s SRC is required")
		return 1
	}

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	if *veryVerbose {
		verbosity = 2
	}

	mode, forcedWorkers := selectMode(*source, *target, *checksumPath, *deltaPath, *preflight, *workers)

	if mode == engine.ModeChecksumOnly && *checksumPath != "" && *checksumPath != "/dev/null" {
		if exists, _ := filesys.Exists(*checksumPath); exists {
			if err := filesys.DeleteFile(*checksumPath); err != nil {
				fmt.Fprintln(os.Stderr, "ddsync:", err)
				return 1
			}
		}
	}

	opts := []options.OptionFunc{
		options.WithSourcePath(*source),
		options.WithTargetPath(*target),
		options.WithChecksumPath(*checksumPath),
		options.WithChangeMapPath(*changeMapPath),
		options.WithDeltaPath(*deltaPath),
		options.WithCacheBypass(*cacheBypass),
		options.WithRateCapMBs(*rateCap),
		options.WithPreflight(*preflight),
		options.WithCompress(*compress),
		options.WithCompressLevel(*level),
		options.WithVerbosity(verbosity),
		options.WithWorkers(forcedWorkers),
	}

	ctx := context.Background()
	instance, err := replicator.New(ctx, "ddsync", opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ddsync:", err)
		return 1
	}
	defer instance.Close()

	startedAt := time.Now()
	result, err := instance.Run(ctx, mode)
	elapsed := time.Since(startedAt)
	if err != nil {
		if mode == engine.ModeNewChecksum && errors.Is(err, engine.ErrPreflightNewStoreRequired) {
			return 3
		}
		fmt.Fprintln(os.Stderr, "ddsync:", err)
		return 1
	}

	if result.Pipeline != nil {
		fmt.Printf(
			"buffers_read=%d changed_segments=%d bytes_written=%d\n",
			result.Pipeline.BuffersRead, result.Pipeline.ChangedSegments, result.Pipeline.BytesWritten,
		)
		if mode == engine.ModeSourceTarget && *checksumPath != "" && *checksumPath != "/dev/null" {
			appendStatsSidecar(*source, *checksumPath, result.Pipeline, elapsed)
		}
	}
	return 0
}

// selectMode implements §6's mode-selection rules: which flags were
// supplied determines the run-mode. SOURCE_DELTA forces the worker count
// to 1 regardless of -w; DDZONE uses 1 worker unless -w is given.
func selectMode(source, target, checksumPath, deltaPath string, preflight bool, requestedWorkers int) (engine.RunMode, int) {
	switch {
	case source != "" && checksumPath != "" && target != "":
		if preflight {
			return engine.ModeNewChecksum, requestedWorkers
		}
		return engine.ModeSourceTarget, requestedWorkers
	case source != "" && checksumPath != "" && deltaPath != "":
		return engine.ModeSourceDelta, 1
	case source != "" && checksumPath != "":
		return engine.ModeChecksumOnly, requestedWorkers
	default:
		forced := 1
		if requestedWorkers > 0 {
			forced = requestedWorkers
		}
		return engine.ModeDDZone, forced
	}
}

// appendStatsSidecar appends one summary line to <checksum-path>.stats
// after a successful SOURCE_TARGET run: when it ran, what fraction of the
// source's segments changed, and the achieved throughput. Best-effort — a
// sidecar write failure never fails the run itself.
func appendStatsSidecar(sourcePath, checksumPath string, stats *pipeline.Stats, elapsed time.Duration) {
	src, err := device.OpenRO(sourcePath, false)
	if err != nil {
		return
	}
	sourceBytes, err := device.Size(src)
	src.Close()
	if err != nil {
		return
	}

	totalSegments := segment.Count(sourceBytes)
	var changeRatio float64
	if totalSegments > 0 {
		changeRatio = float64(stats.ChangedSegments) / float64(totalSegments)
	}

	secs := elapsed.Seconds()
	var mbps float64
	if secs > 0 {
		mbps = float64(stats.BytesWritten) / (1024 * 1024) / secs
	}

	f, err := os.OpenFile(checksumPath+".stats", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	fmt.Fprintf(
		f, "%s %.6f segment_change_ratio %d bytes_written %.3f seconds %.3f MB/s\n",
		time.Now().Format("2006-01-02 15:04:05"), changeRatio, stats.BytesWritten, secs, mbps,
	)
}
