package ber

import (
	"io"

	"github.com/cockroachdb/errors"
)

// Visitable is implemented by types that describe their own traversal.
// The same Visit method serves both encoding and decoding.
type Visitable interface {
	Visit(v Visitor, name string) error
}

// Marshal encodes x in the given mode and returns the bytes.
func Marshal(x Visitable, mode Mode) ([]byte, error) {
	buf := NewBuffer(nil)
	if err := Encode(buf, x, mode); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes x to w in the given mode.
func Encode(w io.Writer, x Visitable, mode Mode) error {
	e, err := NewEncoder(w, mode)
	if err != nil {
		return err
	}
	return Run(e, x, "")
}

// Unmarshal decodes data into x. Bytes left after the top-level value are
// reported as ErrTrailingData.
func Unmarshal(data []byte, x Visitable) error {
	r := NewBytesReader(data)
	d, err := NewDecoder(r)
	if err != nil {
		return err
	}
	if err := Run(d, x, ""); err != nil {
		return err
	}
	if rest := r.Available(); rest > 0 {
		return errors.Wrapf(ErrTrailingData, "%d bytes at offset %d", rest, d.Position())
	}
	return nil
}

// Decode reads one value from r into x.
func Decode(r io.Reader, x Visitable) error {
	d, err := NewDecoder(r)
	if err != nil {
		return err
	}
	return Run(d, x, "")
}

// Run visits x with v and closes v, returning the first error.
func Run(v Visitor, x Visitable, name string) error {
	if err := x.Visit(v, name); err != nil {
		_ = v.Close()
		return err
	}
	return v.Close()
}
