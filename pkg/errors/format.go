package errors

// FormatError is a specialized error type for failures decoding or
// validating the self-describing on-disk formats: the change-map bitmap
// header and the delta file's header/footer framing. It also reports a
// refused attempt to shrink a regular-file target or checksum store.
type FormatError struct {
	*baseError
	path     string // Path of the file whose format failed to validate.
	field    string // Which header/footer field failed validation.
	expected any    // What the field was expected to contain.
	got      any    // What the field actually contained.
}

// NewFormatError creates a new format-specific error.
func NewFormatError(err error, code ErrorCode, msg string) *FormatError {
	return &FormatError{baseError: NewBaseError(err, code, msg)}
}

// Override base error methods to return *FormatError instead of *baseError.

// WithMessage updates the error message while maintaining the FormatError type.
func (fe *FormatError) WithMessage(msg string) *FormatError {
	fe.baseError.WithMessage(msg)
	return fe
}

// WithCode sets the error code while preserving the FormatError type.
func (fe *FormatError) WithCode(code ErrorCode) *FormatError {
	fe.baseError.WithCode(code)
	return fe
}

// WithDetail adds contextual information while maintaining the FormatError type.
func (fe *FormatError) WithDetail(key string, value any) *FormatError {
	fe.baseError.WithDetail(key, value)
	return fe
}

// WithPath records which file failed format validation.
func (fe *FormatError) WithPath(path string) *FormatError {
	fe.path = path
	return fe
}

// WithField records which header/footer field failed validation.
func (fe *FormatError) WithField(field string) *FormatError {
	fe.field = field
	return fe
}

// WithExpected records what the field was expected to contain.
func (fe *FormatError) WithExpected(value any) *FormatError {
	fe.expected = value
	return fe
}

// WithGot records what the field actually contained.
func (fe *FormatError) WithGot(value any) *FormatError {
	fe.got = value
	return fe
}

// Path returns the file path associated with the error.
func (fe *FormatError) Path() string {
	return fe.path
}

// Field returns the header/footer field name associated with the error.
func (fe *FormatError) Field() string {
	return fe.field
}

// Expected returns what the field was expected to contain.
func (fe *FormatError) Expected() any {
	return fe.expected
}

// Got returns what the field actually contained.
func (fe *FormatError) Got() any {
	return fe.got
}

// NewMagicMismatchError builds the error for a delta header/footer whose
// magic bytes do not match the expected constant.
func NewMagicMismatchError(path, field string, expected, got []byte) *FormatError {
	return NewFormatError(nil, ErrorCodeFormatMagicMismatch, "magic bytes did not match").
		WithPath(path).
		WithField(field).
		WithExpected(string(expected)).
		WithGot(string(got))
}

// NewShrinkRefusedError builds the error for an attempt to shrink a
// regular-file target or checksum store.
func NewShrinkRefusedError(path string, currentSize, requestedSize int64) *FormatError {
	return NewFormatError(nil, ErrorCodeSizeShrinkRefused, "refusing to shrink regular file").
		WithPath(path).
		WithField("size").
		WithExpected(currentSize).
		WithGot(requestedSize)
}
