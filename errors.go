package ber

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
)

// Codec error kinds. Every error returned by an Encoder or Decoder wraps
// exactly one of these, so callers can test with errors.Is.
var (
	// ErrTypeMismatch indicates that the tag read differs from the tag the caller asked for.
	ErrTypeMismatch = errors.New("ber: type mismatch")

	// ErrPrimitiveConstructed indicates a primitive value where a constructed one was expected, or vice versa.
	ErrPrimitiveConstructed = errors.New("ber: unexpected primitive or constructed encoding")

	// ErrLengthTooLarge indicates a length that cannot be represented or exceeds the field width.
	ErrLengthTooLarge = errors.New("ber: length too large")

	// ErrIndefiniteLength indicates an indefinite length, or an end-of-contents marker, where none is allowed.
	ErrIndefiniteLength = errors.New("ber: indefinite length invalid here")

	// ErrStreamCorrupt indicates a read crossing the end of an enclosing value, or malformed fragments.
	ErrStreamCorrupt = errors.New("ber: stream corrupt")

	// ErrStreamEnded indicates that the stream ended in the middle of a value.
	ErrStreamEnded = errors.New("ber: stream ended")

	// ErrNestingTooDeep indicates that constructed values nest deeper than the configured maximum.
	ErrNestingTooDeep = errors.New("ber: nesting too deep")

	// ErrBufferUnderflow indicates an exit without a matching enter.
	ErrBufferUnderflow = errors.New("ber: stack underflow")

	// ErrOutOfMemory indicates a value larger than the configured allocation cap.
	ErrOutOfMemory = errors.New("ber: out of memory")

	// ErrUnbalanced indicates that a codec was closed with constructed values still open.
	ErrUnbalanced = errors.New("ber: unbalanced traversal")

	// ErrClosed indicates use of a codec after Close.
	ErrClosed = errors.New("ber: codec closed")

	// ErrTrailingData is returned by Unmarshal when bytes remain after the top-level value.
	ErrTrailingData = errors.New("ber: trailing data after value")
)

// Stream errors.
var (
	// ErrNilIO indicates that NewReader/NewWriter was called with an nil interface
	ErrNilIO = errors.New("ber: NewReader/NewWriter called with a nil io.Reader/io.Writer")

	// ErrAlreadyBuffered indicates that NewReader/NewWriter was called with an already-buffered
	// reader/writer whose buffer is smaller than requested.
	ErrAlreadyBuffered = errors.New("ber: reader or writer is already buffered")

	// ErrInvalidSeek indicates a seek was attempted to invalid position.
	ErrInvalidSeek = errors.New("ber: seek to a invalid position")

	// ErrInvalidWhence indicates that an invalid 'whence' parameter was provided to a Seek operation.
	ErrInvalidWhence = errors.New("ber: unsupported whence")

	// ErrUnsupportedNegativeSeek indicates a backward seek on a forward-only reader.
	ErrUnsupportedNegativeSeek = errors.New("ber: unsupported negative offset for forward-only reader")

	// ErrDiscardNegative indicates a Discard operation was attempted with a negative byte count.
	ErrDiscardNegative = errors.New("ber: cannot discard negative number of bytes")

	// ErrInvalidWrite indicates that an io.Writer returned an invalid (negative) count from Write.
	ErrInvalidWrite = errors.New("ber: writer returned invalid count from Write")
)

// Error describes where a codec operation failed.
type Error struct {
	Op       string // visitor operation, e.g. "StartStruct"
	Field    string // field name passed by the caller
	Offset   int64  // stream position when the failure was detected
	Expected string // expected tag, if any
	Found    string // tag actually read, if any
	Err      error  // one of the Err* kinds, possibly wrapped
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %q at offset %d: %v", e.Op, e.Field, e.Offset, e.Err)
	if e.Expected != "" || e.Found != "" {
		msg += fmt.Sprintf(" (expected %s, found %s)", e.Expected, e.Found)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// streamError maps io short-read errors to ErrStreamEnded.
func streamError(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.WithStack(ErrStreamEnded)
	}
	return err
}
