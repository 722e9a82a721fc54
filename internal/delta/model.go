// Package delta implements the self-describing framed file that carries
// changed regions out of band: a 40-byte header, a sequence of
// `<offset><length><payload>` region records (optionally zlib-compressed),
// and a 32-byte footer. SOURCE_DELTA writes one; SHOW_DELTA and
// APPLY_DELTA read one back.
package delta

const (
	headerSize = 40
	footerSize = 32

	magicStart   = "beefcake"
	magicVersion = "   v2.01"
	magicEnd     = "tailcafe"
)

// conf_opts bits. Registered and encrypted are defined by the format but
// never interpreted by this engine; they are round-tripped verbatim.
const (
	ConfRegistered uint64 = 1 << 0
	ConfCompressed uint64 = 1 << 1
	ConfEncrypted  uint64 = 1 << 2
)

// Header mirrors the on-disk delta header.
type Header struct {
	SourceSize   uint64
	CheckSegSize uint64
	ConfOpts     uint64
}

// Footer mirrors the on-disk delta footer.
type Footer struct {
	RegionCount          uint64
	TotalRawBytes        uint64
	TotalCompressedBytes uint64
}

// ApplyStats summarizes one APPLY_DELTA run.
type ApplyStats struct {
	RegionsApplied uint64
	BytesWritten   uint64
}
