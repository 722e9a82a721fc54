package errors

// RuntimeError is a specialized error type for failures inside the worker
// pipeline's hot loop. It embeds baseError to inherit all the standard
// error functionality, then adds the partition/segment context needed to
// pin a failure to a specific worker and offset.
type RuntimeError struct {
	*baseError
	workerID     int   // Which worker's partition was active when the error occurred.
	segmentIndex int64 // Global segment index being processed, if applicable.
	offset       int64 // Byte offset within the source/target where the problem happened.
}

// NewRuntimeError creates a new pipeline-specific error.
func NewRuntimeError(err error, code ErrorCode, msg string) *RuntimeError {
	return &RuntimeError{baseError: NewBaseError(err, code, msg)}
}

// Override base error methods to return *RuntimeError instead of *baseError.

// WithMessage updates the error message while maintaining the RuntimeError type.
func (re *RuntimeError) WithMessage(msg string) *RuntimeError {
	re.baseError.WithMessage(msg)
	return re
}

// WithCode sets the error code while preserving the RuntimeError type.
func (re *RuntimeError) WithCode(code ErrorCode) *RuntimeError {
	re.baseError.WithCode(code)
	return re
}

// WithDetail adds contextual information while maintaining the RuntimeError type.
func (re *RuntimeError) WithDetail(key string, value any) *RuntimeError {
	re.baseError.WithDetail(key, value)
	return re
}

// WithWorkerID records which worker was running when the error occurred.
func (re *RuntimeError) WithWorkerID(id int) *RuntimeError {
	re.workerID = id
	return re
}

// WithSegmentIndex records the global segment index involved in the error.
func (re *RuntimeError) WithSegmentIndex(idx int64) *RuntimeError {
	re.segmentIndex = idx
	return re
}

// WithOffset records the byte offset where the error occurred.
func (re *RuntimeError) WithOffset(offset int64) *RuntimeError {
	re.offset = offset
	return re
}

// WorkerID returns the worker identifier associated with the error.
func (re *RuntimeError) WorkerID() int {
	return re.workerID
}

// SegmentIndex returns the global segment index associated with the error.
func (re *RuntimeError) SegmentIndex() int64 {
	return re.segmentIndex
}

// Offset returns the byte offset associated with the error.
func (re *RuntimeError) Offset() int64 {
	return re.offset
}

// NewShortReadError builds the error for a short read outside the one
// position the spec tolerates it (the last worker's final buffer).
func NewShortReadError(workerID int, offset int64, want, got int) *RuntimeError {
	return NewRuntimeError(nil, ErrorCodeIoReadShort, "short read outside last-worker tail").
		WithWorkerID(workerID).
		WithOffset(offset).
		WithDetail("wantBytes", want).
		WithDetail("gotBytes", got)
}

// NewShortWriteError builds the error for a write that could not be
// completed even after the resume-from-remainder retry loop.
func NewShortWriteError(workerID int, offset int64, want, got int) *RuntimeError {
	return NewRuntimeError(nil, ErrorCodeIoWriteFail, "short write did not converge after retry").
		WithWorkerID(workerID).
		WithOffset(offset).
		WithDetail("wantBytes", want).
		WithDetail("gotBytes", got)
}
