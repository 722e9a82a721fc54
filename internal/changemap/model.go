package changemap

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// headerSize is the fixed length of the on-disk change-map header: an
// 8-byte info tag, a version byte, a suspended flag, two unused bytes, a
// little-endian name checksum and a little-endian word count.
const headerSize = 20

// Header mirrors the on-disk change-map header verbatim.
type Header struct {
	Info      [8]byte // ASCII info tag, e.g. "ddmap01 ".
	Version   uint8
	Suspended uint8 // non-zero once tracking has been paused for this map.
	NameSum   uint32
	MapSize   uint32 // number of 32-bit bitmap words following the header.
}

// Run is a coalesced, read-buffer-capped dirty byte range discovered in
// the bitmap: [Offset, Offset+Length).
type Run struct {
	Offset int64
	Length int64
}

// ChangeMap is a bitmap loaded fully into memory, one bit per 16 KiB
// source segment, LSB first within each word. It is read once up front
// rather than mapped, matching how the on-disk format was always meant
// to be consumed: a bounded-size side file, not something worth paying
// mmap setup cost for.
type ChangeMap struct {
	path   string
	header Header
	words  []uint32
	log    *zap.SugaredLogger
	closed atomic.Bool
}

// Config holds the parameters needed to load a ChangeMap.
type Config struct {
	Path   string
	Logger *zap.SugaredLogger
}
