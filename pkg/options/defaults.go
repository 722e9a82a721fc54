package options

const (
	// DefaultWorkers is how many parallel workers a run uses absent an
	// explicit -w flag.
	DefaultWorkers = 4

	// DefaultChecksumPath is used only by callers that don't set one
	// explicitly; most CLI invocations pass -c directly.
	DefaultChecksumPath = "/dev/null"

	// MinCompressLevel and MaxCompressLevel bound the zlib level accepted
	// for delta region compression.
	MinCompressLevel = 1
	MaxCompressLevel = 9

	// DefaultCompressLevel matches zlib's own default.
	DefaultCompressLevel = 6
)

var defaultOptions = Options{
	ChecksumPath:  DefaultChecksumPath,
	Workers:       DefaultWorkers,
	CompressLevel: DefaultCompressLevel,
}

// NewDefaultOptions returns the baseline Options every run starts from
// before CLI flags or functional options are applied.
func NewDefaultOptions() Options {
	return defaultOptions
}
