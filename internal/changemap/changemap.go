// Package changemap loads the bitmap side file that lets a replication run
// skip straight to previously-flagged dirty regions instead of rescanning
// fingerprints over the whole source. One bit tracks one 16 KiB segment,
// LSB first within each 32-bit word, so one word covers 512 KiB of source.
//
// The bitmap is read entirely into memory on Load, then partitioned across
// workers using the same buffers-per-worker arithmetic internal/segment
// uses to split the device itself, so a change-map-driven run and a
// fingerprint-driven run hand identical-shaped work to the same worker
// pool.
package changemap

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/iamNilotpal/ddsync/internal/segment"
	"github.com/iamNilotpal/ddsync/pkg/errors"
)

// wordBytes is the number of source bytes one bitmap word covers: 32 bits
// times one segment each.
const wordBytes = 32 * segment.Size

// wordsPerBuffer is how many bitmap words make up one read-buffer's worth
// of source (segment.BufferSize / wordBytes).
const wordsPerBuffer = segment.BufferSize / wordBytes

// Load reads a change-map file's header and full bitmap body into memory.
func Load(config *Config) (*ChangeMap, error) {
	if config == nil || config.Path == "" || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "change-map configuration is required",
		).WithField("config").WithRule("required")
	}

	file, err := os.Open(config.Path)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, config.Path, config.Path, os.O_RDONLY)
	}
	defer file.Close()

	headerBuf := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBuf); err != nil {
		return nil, errors.NewRuntimeError(err, errors.ErrorCodeHeaderReadFailure, "failed to read change-map header").
			WithOffset(0).WithDetail("path", config.Path)
	}

	header := Header{
		Version:   headerBuf[8],
		Suspended: headerBuf[9],
		NameSum:   binary.LittleEndian.Uint32(headerBuf[12:16]),
		MapSize:   binary.LittleEndian.Uint32(headerBuf[16:20]),
	}
	copy(header.Info[:], headerBuf[0:8])

	bodyBytes := int64(header.MapSize) * 4
	body := make([]byte, bodyBytes)
	n, err := io.ReadFull(file, body)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, errors.NewRuntimeError(err, errors.ErrorCodeIoReadFail, "failed to read change-map body").
			WithOffset(headerSize).WithDetail("path", config.Path)
	}
	if int64(n) != bodyBytes {
		return nil, errors.NewRuntimeError(nil, errors.ErrorCodeIoReadShort, "change-map body shorter than map_size declares").
			WithOffset(headerSize).WithDetail("want", bodyBytes).WithDetail("got", n)
	}

	words := make([]uint32, header.MapSize)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(body[i*4 : i*4+4])
	}

	config.Logger.Infow(
		"loaded change-map",
		"path", config.Path,
		"mapSize", header.MapSize,
		"suspended", header.Suspended != 0,
	)

	return &ChangeMap{path: config.Path, header: header, words: words, log: config.Logger}, nil
}

// Suspended reports whether tracking had been paused when this map was
// last written. A suspended map's dirty bits only cover activity up to the
// suspension point; callers that care about full coverage should fall
// back to a fingerprint-driven run instead of trusting it alone.
func (m *ChangeMap) Suspended() bool {
	return m.header.Suspended != 0
}

// NameChecksum returns the stored checksum of the source name the map was
// created against, used to catch a map being applied to the wrong source.
func (m *ChangeMap) NameChecksum() uint32 {
	return m.header.NameSum
}

// SourceBytes returns the span of source bytes this map's bitmap covers.
func (m *ChangeMap) SourceBytes() int64 {
	return int64(len(m.words)) * wordBytes
}

// WorkerRuns returns worker workerID's coalesced, buffer-capped dirty
// runs out of workers total, partitioning the bitmap the same way
// internal/segment.Plan partitions the device itself.
func (m *ChangeMap) WorkerRuns(workerID, workers int) []Run {
	partitions := segment.PlanUnits(int64(len(m.words)), wordsPerBuffer, workers)
	if workerID >= len(partitions) {
		return nil
	}
	p := partitions[workerID]
	return m.scanRuns(p.Start, p.End)
}

// scanRuns walks bitmap words [wordStart, wordEnd), coalescing consecutive
// set bits into maximal runs capped at one read buffer. A run that hits
// the cap is flushed and immediately restarted at the next bit, mirroring
// the original worker loop's bit-by-bit state transitions: 0->0 ignored,
// 0->1 starts a run, 1->1 extends it (or flushes at the cap), 1->0 flushes.
func (m *ChangeMap) scanRuns(wordStart, wordEnd int64) []Run {
	var runs []Run
	inRun := false
	var runStart, runLen int64

	flush := func() {
		if inRun {
			runs = append(runs, Run{Offset: runStart, Length: runLen})
		}
		inRun = false
		runLen = 0
	}

	for w := wordStart; w < wordEnd; w++ {
		word := m.words[w]
		for bit := 0; bit < 32; bit++ {
			set := (word>>uint(bit))&1 != 0
			offset := (w*32 + int64(bit)) * segment.Size

			if !set {
				flush()
				continue
			}
			if !inRun {
				inRun = true
				runStart = offset
				runLen = segment.Size
				continue
			}
			runLen += segment.Size
			if runLen >= segment.BufferSize {
				runs = append(runs, Run{Offset: runStart, Length: runLen})
				inRun = false
				runLen = 0
			}
		}
	}
	flush()
	return runs
}
