// Package errs defines the error values shared by every mscompress package.
//
// Callers match the taxonomy with errors.Is against the sentinel values. Errors
// that carry extra context (a byte offset or a spectrum ordinal) are typed and
// unwrap to their sentinel, so both errors.Is and errors.As work:
//
//	var perr *errs.ParseError
//	if errors.As(err, &perr) {
//	    log.Printf("malformed input at byte %d", perr.Offset)
//	}
package errs

import (
	"errors"
	"fmt"
)

// Conversion and read taxonomy.
var (
	// ErrParse reports malformed source markup.
	ErrParse = errors.New("malformed source document")
	// ErrAmbiguousEncoding reports a binary array declaring neither or both codes of a
	// mutually exclusive pair (compression kind, element width or array role).
	ErrAmbiguousEncoding = errors.New("ambiguous array encoding")
	// ErrDecompression reports an inflate/codec failure or an unknown compression kind.
	ErrDecompression = errors.New("decompression failed")
	// ErrMalformedArray reports a byte length that is not a multiple of the element
	// width, or m/z and intensity arrays of different lengths.
	ErrMalformedArray = errors.New("malformed array")
	// ErrIndexOutOfRange reports access to a spectrum ordinal outside the run.
	ErrIndexOutOfRange = errors.New("spectrum index out of range")
	// ErrEncoding reports a transform or compression that failed to meet its contract.
	ErrEncoding = errors.New("encoding failed")
	// ErrContainerIntegrity reports a header or Division inconsistent with the file.
	ErrContainerIntegrity = errors.New("container integrity check failed")
	// ErrNotImplemented reports an operation that the file kind does not support.
	ErrNotImplemented = errors.New("operation not implemented for file kind")
)

// Section and state errors.
var (
	ErrInvalidHeaderSize   = errors.New("invalid header size")
	ErrInvalidMagic        = errors.New("invalid magic tag")
	ErrUnsupportedVersion  = errors.New("unsupported format version")
	ErrInvalidDataFormat   = errors.New("invalid data format")
	ErrInvalidDivisionSize = errors.New("invalid division size")
	ErrInvalidBlockRef     = errors.New("invalid block reference")
	ErrInvalidFragment     = errors.New("invalid xml fragment")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrWriterClosed        = errors.New("writer already finished")
	ErrWriterState         = errors.New("invalid writer state")
	ErrInvalidTolerance    = errors.New("invalid tolerance")
	ErrUnknownFileKind     = errors.New("unknown file kind")
)

// ParseError reports malformed markup at a byte offset of the source document.
type ParseError struct {
	Offset int64
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at byte %d: %s", ErrParse, e.Offset, e.Msg)
}

// Unwrap returns ErrParse.
func (e *ParseError) Unwrap() error {
	return ErrParse
}

// NewParseError creates a ParseError at the given offset.
func NewParseError(offset int64, format string, args ...any) *ParseError {
	return &ParseError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// EncodingError reports a per-spectrum failure that aborted a conversion.
//
// Err keeps the underlying cause (for example ErrMalformedArray or
// ErrDecompression); errors.Is matches both ErrEncoding and the cause.
type EncodingError struct {
	Ordinal int
	Err     error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: spectrum %d: %v", ErrEncoding, e.Ordinal, e.Err)
}

// Unwrap returns ErrEncoding and the underlying cause.
func (e *EncodingError) Unwrap() []error {
	return []error{ErrEncoding, e.Err}
}

// NewEncodingError wraps err with the offending spectrum ordinal. An error that
// is already an EncodingError is returned unchanged.
func NewEncodingError(ordinal int, err error) error {
	var ee *EncodingError
	if errors.As(err, &ee) {
		return err
	}

	return &EncodingError{Ordinal: ordinal, Err: err}
}
