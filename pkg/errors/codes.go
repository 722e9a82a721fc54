package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent the fundamental categories of failures that can
// occur across any software system. These codes provide the foundation layer
// of error classification.
const (
	// ErrorCodeIO represents failures in input/output operations across any
	// system boundary. This includes file system operations like opening a
	// device or checksum store, and device I/O when accessing block storage.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput represents client-side errors where the provided
	// data doesn't meet the system's requirements or constraints.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal represents unexpected system failures that don't fit
	// into other categories.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Storage-specific error codes extend the base error taxonomy to handle the
// unique failure modes of the checksum store and device I/O layer.
const (
	// ErrorCodeSegmentCorrupted indicates a checksum store entry's data has
	// been damaged or is in an inconsistent state.
	ErrorCodeSegmentCorrupted ErrorCode = "SEGMENT_CORRUPTED"

	// ErrorCodeHeaderReadFailure occurs when the system cannot read the header
	// portion of a change-map or delta file.
	ErrorCodeHeaderReadFailure ErrorCode = "HEADER_READ_FAILURE"

	// ErrorCodePayloadReadFailure indicates problems reading region payload
	// bytes from a delta file after successfully reading its header.
	ErrorCodePayloadReadFailure ErrorCode = "PAYLOAD_READ_FAILURE"

	// ErrorCodeRecoveryFailed indicates that the checksum store's attempt to
	// recover from a previous run was unsuccessful.
	ErrorCodeRecoveryFailed ErrorCode = "STORAGE_RECOVERY_FAILED"

	// ErrorCodePermissionDenied indicates insufficient permissions to access a resource.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates that the storage device has run out of space.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly indicates that the filesystem is mounted read-only.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"
)

// Runtime error codes cover the worker-pipeline failure taxonomy from the
// error-handling design: every kind the core recognizes during a replication
// run, keyed to spec §7.
const (
	// ErrorCodeIoOpen indicates a source, target, or delta file failed to open.
	ErrorCodeIoOpen ErrorCode = "IO_OPEN_FAILED"

	// ErrorCodeIoSeek indicates a seek call failed mid-run.
	ErrorCodeIoSeek ErrorCode = "IO_SEEK_FAILED"

	// ErrorCodeIoReadShort indicates a read returned fewer bytes than
	// requested in a position where that is not tolerated (only the last
	// worker's final buffer may read short).
	ErrorCodeIoReadShort ErrorCode = "IO_READ_SHORT"

	// ErrorCodeIoReadFail indicates a read call returned a hard error.
	ErrorCodeIoReadFail ErrorCode = "IO_READ_FAILED"

	// ErrorCodeIoWriteShort indicates a write returned fewer bytes than
	// requested. Recoverable: callers retry the remainder.
	ErrorCodeIoWriteShort ErrorCode = "IO_WRITE_SHORT"

	// ErrorCodeIoWriteFail indicates a write call returned a hard error,
	// including one that could not recover from a short write.
	ErrorCodeIoWriteFail ErrorCode = "IO_WRITE_FAILED"

	// ErrorCodeAllocFail indicates a buffer or scratch-space allocation failed.
	ErrorCodeAllocFail ErrorCode = "ALLOC_FAILED"

	// ErrorCodeMapFail indicates the checksum store's memory mapping failed.
	ErrorCodeMapFail ErrorCode = "MAP_FAILED"
)

// Format error codes cover the self-describing on-disk formats: the
// change-map bitmap and the delta file.
const (
	// ErrorCodeFormatMagicMismatch indicates a delta file's header or footer
	// magic bytes did not match the expected constant.
	ErrorCodeFormatMagicMismatch ErrorCode = "FORMAT_MAGIC_MISMATCH"

	// ErrorCodeSizeShrinkRefused indicates an attempt to shrink a regular-file
	// target or checksum store, which is refused unconditionally.
	ErrorCodeSizeShrinkRefused ErrorCode = "SIZE_SHRINK_REFUSED"

	// ErrorCodeCompressFail indicates zlib compression of a delta region failed.
	ErrorCodeCompressFail ErrorCode = "COMPRESS_FAILED"

	// ErrorCodeDecompressFail indicates zlib decompression of a delta region failed.
	ErrorCodeDecompressFail ErrorCode = "DECOMPRESS_FAILED"
)
