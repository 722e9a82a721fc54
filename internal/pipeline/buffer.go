package pipeline

import (
	"io"
	"os"
	"time"

	"github.com/iamNilotpal/ddsync/internal/segment"
	"github.com/iamNilotpal/ddsync/pkg/device"
	"github.com/iamNilotpal/ddsync/pkg/errors"
	"github.com/iamNilotpal/ddsync/pkg/fingerprint"
)

// sentinelSize is one more than the maximum segments in a buffer: the
// trailing zero entry closes any dirty run still open at buffer end
// without the coalescing loop needing a special case.
const sentinelSize = segment.BufferSegments + 1

// dirtyRun is a coalesced run of changed bytes within one buffer,
// expressed as an offset relative to the buffer's start.
type dirtyRun struct {
	offset int64
	length int64
}

// processBuffer implements the per-buffer algorithm from §4.E: read the
// run, compare every segment's fingerprint against the store (or mark
// everything dirty in no-store mode), coalesce the dirty segments into
// maximal runs, and write or emit each run according to the run's mode.
func processBuffer(
	source, target *os.File,
	config *Config,
	workerID int,
	run bufferRun,
	sourceBytes int64,
	stats *workerStats,
	throttle *throttle,
) error {
	buf := make([]byte, run.length)

	if _, err := source.Seek(run.offset, io.SeekStart); err != nil {
		return errors.NewRuntimeError(err, errors.ErrorCodeIoSeek, "failed to seek source").
			WithWorkerID(workerID).WithOffset(run.offset)
	}

	start := time.Now()
	n, err := io.ReadFull(source, buf)
	elapsed := time.Since(start)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			if run.offset+int64(n) != sourceBytes {
				return errors.NewShortReadError(workerID, run.offset, len(buf), n)
			}
			buf = buf[:n]
		} else {
			return errors.NewRuntimeError(err, errors.ErrorCodeIoReadFail, "failed to read source buffer").
				WithWorkerID(workerID).WithOffset(run.offset)
		}
	}
	stats.buffersRead++

	if config.Mode == ModeDDZone {
		config.Logger.Infow(
			"ddzone buffer",
			"worker", workerID, "offset", run.offset, "bytes", len(buf), "elapsedMs", elapsed.Milliseconds(),
		)
		throttle.observe(len(buf), elapsed)
		return nil
	}

	dirty := make([]int64, sentinelSize)
	nSegments := (int64(len(buf)) + segment.Size - 1) / segment.Size

	for s := int64(0); s < nSegments; s++ {
		segStart := s * segment.Size
		segEnd := segStart + segment.Size
		if segEnd > int64(len(buf)) {
			segEnd = int64(len(buf))
		}
		segBytes := buf[segStart:segEnd]
		globalIndex := (run.offset + segStart) / segment.Size

		if config.Store.NoStore() {
			dirty[s] = int64(len(segBytes))
			stats.changedSegments++
			continue
		}

		pair := fingerprint.Compute(segBytes)
		changed := config.Store.IsNew() || !pair.Equal(config.Store.Get(globalIndex))
		if !changed {
			continue
		}

		config.Store.Set(globalIndex, pair)
		if config.Mode == ModeSourceTarget || config.Mode == ModeSourceDelta {
			dirty[s] = int64(len(segBytes))
			stats.changedSegments++
		}
	}

	for _, r := range coalesceDirtyRuns(dirty, nSegments) {
		payload := buf[r.offset : r.offset+r.length]
		absoluteOffset := run.offset + r.offset

		switch config.Mode {
		case ModeSourceTarget:
			if err := writeRegion(target, absoluteOffset, payload, workerID); err != nil {
				return err
			}
			stats.bytesWritten += int64(len(payload))
		case ModeSourceDelta:
			if err := config.DeltaWriter.WriteRegion(uint64(absoluteOffset), payload); err != nil {
				return err
			}
			stats.bytesWritten += int64(len(payload))
		}
	}

	return nil
}

// coalesceDirtyRuns walks the dirty-segment map and merges adjacent
// non-zero entries into maximal runs: the Idle/InRun accumulator from
// §4.E, with dirty[nSegments] always zero acting as the sentinel that
// closes a run left open at buffer end.
func coalesceDirtyRuns(dirty []int64, nSegments int64) []dirtyRun {
	var runs []dirtyRun
	inRun := false
	var start, length int64

	for s := int64(0); s <= nSegments; s++ {
		if dirty[s] != 0 {
			if !inRun {
				inRun = true
				start = s * segment.Size
				length = 0
			}
			length += dirty[s]
			continue
		}
		if inRun {
			runs = append(runs, dirtyRun{offset: start, length: length})
			inRun = false
		}
	}
	return runs
}

func writeRegion(target *os.File, offset int64, payload []byte, workerID int) error {
	if _, err := target.Seek(offset, io.SeekStart); err != nil {
		return errors.NewRuntimeError(err, errors.ErrorCodeIoSeek, "failed to seek target").
			WithWorkerID(workerID).WithOffset(offset)
	}
	return device.WriteFull(target, payload)
}
