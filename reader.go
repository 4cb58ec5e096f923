package ber

import (
	"bufio"
	"bytes"
	"io"
)

const defaultBufferSize = 4096

type source interface {
	io.Reader
	io.ByteReader
	io.Closer
	// Discard skips n bytes. A short skip returns io.ErrUnexpectedEOF.
	Discard(n int64) (int64, error)
}

// Reader provides a buffered sequential reader with a byte cursor.
// It tracks the first error; subsequent reads become no-ops.
type Reader struct {
	r     source
	count int64 // total bytes consumed
	err   error // first error encountered.
}

// NewReaderSize creates a new Reader with a specified buffer size.
// In-memory sources are used directly without an extra buffer.
func NewReaderSize(r io.Reader, size int) (*Reader, error) {
	if r == nil {
		return nil, ErrNilIO
	}

	switch reader := r.(type) {
	case *Reader:
		return reader, nil

	// prevent unpredictable double-buffering.
	case *bufio.Reader:
		if reader.Size() >= size {
			return &Reader{r: &bufioReaderAdapter{Reader: reader}}, nil
		}
		return nil, ErrAlreadyBuffered

	// underlying is a buf so we don't need buffering
	case *BytesReader:
		return &Reader{r: reader}, nil
	case *bytes.Reader:
		return &Reader{r: &bytesReaderAdapter{reader}}, nil
	case *bytes.Buffer:
		return &Reader{r: &bytesBufferReaderAdapter{reader}}, nil
	}

	if size < 16 {
		size = defaultBufferSize
	}
	return &Reader{r: &bufioReaderAdapter{Reader: bufio.NewReaderSize(r, size), closer: closerOf(r)}}, nil
}

// NewReader creates a new Reader with a default buffer size.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderSize(r, defaultBufferSize)
}

// Close closes the underlying reader if it implements io.Closer.
func (r *Reader) Close() error {
	return r.r.Close()
}

// Read implements the io.Reader interface.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.r.Read(p)
	r.count += int64(n)
	r.setError(err)
	return n, r.err
}

// ReadByte implements the io.ByteReader interface.
func (r *Reader) ReadByte() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	b, err := r.r.ReadByte()
	if err == nil {
		r.count++
	} else {
		r.err = err
	}
	return b, err
}

// ReadFull fills dst. A stream ending before dst is full is io.ErrUnexpectedEOF.
func (r *Reader) ReadFull(dst []byte) error {
	if r.err != nil {
		return r.err
	}
	if len(dst) == 0 {
		return nil
	}
	n, err := io.ReadFull(r.r, dst)
	r.count += int64(n)
	if err == io.EOF {
		// a partial read is different from a clean end-of-stream.
		err = io.ErrUnexpectedEOF
	}
	r.setError(err)
	return r.err
}

// ReadBytes reads n bytes and returns a new byte slice.
func (r *Reader) ReadBytes(n int) []byte {
	if n <= 0 || r.err != nil {
		return nil
	}
	buf := make([]byte, n)
	if r.ReadFull(buf) != nil {
		return nil
	}
	return buf
}

// Discard skips n bytes.
func (r *Reader) Discard(n int64) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if n < 0 {
		r.setError(ErrDiscardNegative)
		return 0, r.err
	}
	if n == 0 {
		return 0, nil
	}
	skipped, err := r.r.Discard(n)
	r.count += skipped
	r.setError(err)
	return skipped, r.err
}

// SeekTo moves the cursor forward to the absolute position pos.
func (r *Reader) SeekTo(pos int64) error {
	if r.err != nil {
		return r.err
	}
	if pos < r.count {
		r.setError(ErrUnsupportedNegativeSeek)
		return r.err
	}
	_, err := r.Discard(pos - r.count)
	return err
}

func (r *Reader) Count() int64 { return r.count }
func (r *Reader) Err() error   { return r.err }
func (r *Reader) IsEOF() bool  { return r.err == io.EOF }

// setError records the first non-nil error.
func (r *Reader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Result returns the total bytes read and the final error state.
func (r *Reader) Result() (int64, error) {
	return r.count, r.err
}
