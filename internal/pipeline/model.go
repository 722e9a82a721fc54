package pipeline

import (
	"go.uber.org/zap"

	"github.com/iamNilotpal/ddsync/internal/changemap"
	"github.com/iamNilotpal/ddsync/internal/checksum"
	"github.com/iamNilotpal/ddsync/internal/delta"
)

// Mode selects what the per-buffer step does with a comparison result.
// It is fixed for the whole run; there is no sub-state transition beyond
// the dirty-run accumulator each worker runs internally.
type Mode int

const (
	// ModeSourceTarget replicates changed segments straight to a target.
	ModeSourceTarget Mode = iota

	// ModeChecksumOnly rewrites the checksum store from source content
	// without ever marking a segment dirty.
	ModeChecksumOnly

	// ModeSourceDelta emits changed segments to a delta file instead of a
	// target; the caller must force Workers to 1.
	ModeSourceDelta

	// ModeDDZone only times reads; it never compares or writes.
	ModeDDZone
)

// Config holds everything one pipeline run needs. The same Config is
// shared read-only by every worker goroutine; only Store, and
// DeltaWriter in ModeSourceDelta, are ever mutated during the run, and
// both are safe for the access pattern workers use (disjoint index
// ranges, and a single writer respectively).
type Config struct {
	SourcePath string
	TargetPath string // required for ModeSourceTarget

	CacheBypass bool
	Workers     int
	Mode        Mode

	Store     *checksum.Store
	ChangeMap *changemap.ChangeMap // nil for a fingerprint-driven run

	DeltaWriter *delta.Writer // required for ModeSourceDelta
	RateCapMBs  float64       // DDZONE throttle cap; 0 disables it

	Logger *zap.SugaredLogger
}

// workerStats are one worker's unlocked counters, summed by the driver
// after every worker has joined.
type workerStats struct {
	buffersRead     int64
	changedSegments int64
	bytesWritten    int64
}

// Stats aggregates every worker's counters after a run completes.
type Stats struct {
	BuffersRead     int64
	ChangedSegments int64
	BytesWritten    int64
}

// bufferRun is one read-buffer-sized unit of work a worker processes:
// an absolute source byte offset and a length no larger than
// segment.BufferSize.
type bufferRun struct {
	offset int64
	length int64
}
