// Package options provides data structures and functions for configuring
// a ddsync replication run: source/target/checksum/change-map/delta
// paths, worker count, cache-bypass, compression, and the preflight and
// rate-cap knobs the CLI surface exposes.
package options

import "strings"

// Options configures one replication run end to end.
type Options struct {
	// SourcePath is the device or regular file being replicated from.
	SourcePath string `json:"sourcePath"`

	// TargetPath is the device or regular file being replicated to.
	// Required for SOURCE_TARGET and APPLY_DELTA; unused otherwise.
	TargetPath string `json:"targetPath"`

	// ChecksumPath is the fingerprint-pair store, or checksum.NullPath to
	// run in no-store (always-dirty) mode.
	ChecksumPath string `json:"checksumPath"`

	// ChangeMapPath, if set, drives the run off a bitmap instead of
	// scanning the whole partition.
	ChangeMapPath string `json:"changeMapPath"`

	// DeltaPath is the delta artifact's path, for SOURCE_DELTA,
	// SHOW_DELTA, and APPLY_DELTA.
	DeltaPath string `json:"deltaPath"`

	// Workers is the requested worker count; the pipeline may silently
	// reduce it (see internal/segment.Plan) or force it to 1.
	Workers int `json:"workers"`

	// CacheBypass requests O_DIRECT on the source read path where the
	// platform supports it.
	CacheBypass bool `json:"cacheBypass"`

	// RateCapMBs caps DDZONE's per-worker read throughput; 0 disables
	// the throttle.
	RateCapMBs float64 `json:"rateCapMBs"`

	// Preflight, when true, turns a would-be replication into a
	// NEW_CHECKSUM check: exit 3 if a new store would be required.
	Preflight bool `json:"preflight"`

	// Compress enables zlib compression of SOURCE_DELTA region payloads.
	Compress bool `json:"compress"`

	// CompressLevel is the zlib level (1-9) used when Compress is set.
	CompressLevel int `json:"compressLevel"`

	// Verbosity is 0, 1 (-v), or 2 (-vv).
	Verbosity int `json:"verbosity"`
}

// OptionFunc mutates an Options value; used with NewDefaultOptions to
// build a run's configuration from CLI flags or programmatic defaults.
type OptionFunc func(*Options)

// WithDefaultOptions resets every field to its documented default.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		*o = NewDefaultOptions()
	}
}

// WithSourcePath sets the source path.
func WithSourcePath(path string) OptionFunc {
	return func(o *Options) {
		path = strings.TrimSpace(path)
		if path != "" {
			o.SourcePath = path
		}
	}
}

// WithTargetPath sets the target path.
func WithTargetPath(path string) OptionFunc {
	return func(o *Options) {
		path = strings.TrimSpace(path)
		if path != "" {
			o.TargetPath = path
		}
	}
}

// WithChecksumPath sets the checksum store path, or checksum.NullPath.
func WithChecksumPath(path string) OptionFunc {
	return func(o *Options) {
		path = strings.TrimSpace(path)
		if path != "" {
			o.ChecksumPath = path
		}
	}
}

// WithChangeMapPath sets the change-map bitmap path.
func WithChangeMapPath(path string) OptionFunc {
	return func(o *Options) {
		o.ChangeMapPath = strings.TrimSpace(path)
	}
}

// WithDeltaPath sets the delta file path.
func WithDeltaPath(path string) OptionFunc {
	return func(o *Options) {
		o.DeltaPath = strings.TrimSpace(path)
	}
}

// WithWorkers sets the requested worker count.
func WithWorkers(workers int) OptionFunc {
	return func(o *Options) {
		if workers > 0 {
			o.Workers = workers
		}
	}
}

// WithCacheBypass toggles O_DIRECT on the source read path.
func WithCacheBypass(enabled bool) OptionFunc {
	return func(o *Options) { o.CacheBypass = enabled }
}

// WithRateCapMBs sets DDZONE's per-worker throughput cap.
func WithRateCapMBs(capMBs float64) OptionFunc {
	return func(o *Options) {
		if capMBs > 0 {
			o.RateCapMBs = capMBs
		}
	}
}

// WithPreflight toggles the NEW_CHECKSUM preflight check.
func WithPreflight(enabled bool) OptionFunc {
	return func(o *Options) { o.Preflight = enabled }
}

// WithCompress toggles delta region compression.
func WithCompress(enabled bool) OptionFunc {
	return func(o *Options) { o.Compress = enabled }
}

// WithCompressLevel sets the zlib level used when compression is enabled.
func WithCompressLevel(level int) OptionFunc {
	return func(o *Options) {
		if level >= MinCompressLevel && level <= MaxCompressLevel {
			o.CompressLevel = level
		}
	}
}

// WithVerbosity sets the logging verbosity (0, 1, or 2).
func WithVerbosity(level int) OptionFunc {
	return func(o *Options) {
		if level >= 0 && level <= 2 {
			o.Verbosity = level
		}
	}
}
