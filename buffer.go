package ber

import "io"

// Buffer is a growable byte buffer. Writes append; WriteAt may also
// overwrite or extend, zero-filling any gap.
type Buffer struct {
	B []byte
}

// NewBuffer creates a Buffer that appends to p.
func NewBuffer(p []byte) *Buffer {
	return &Buffer{B: p}
}

// Append appends p to the buffer.
func (b *Buffer) Append(p []byte) {
	b.B = append(b.B, p...)
}

// Write implements the io.Writer interface.
func (b *Buffer) Write(p []byte) (int, error) {
	b.B = append(b.B, p...)
	return len(p), nil
}

// WriteByte implements the io.ByteWriter interface.
func (b *Buffer) WriteByte(c byte) error {
	b.B = append(b.B, c)
	return nil
}

// WriteAt implements the io.WriterAt interface, growing the buffer as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidSeek
	}
	end := int(off) + len(p)
	if end > len(b.B) {
		b.grow(end - len(b.B))
	}
	return copy(b.B[off:], p), nil
}

// Extend grows the buffer by n bytes and returns the new tail for filling.
func (b *Buffer) Extend(n int) []byte {
	start := len(b.B)
	b.grow(n)
	return b.B[start:]
}

func (b *Buffer) grow(n int) {
	if n <= 0 {
		return
	}
	if cap(b.B)-len(b.B) >= n {
		old := len(b.B)
		b.B = b.B[:old+n]
		clear(b.B[old:])
		return
	}
	b.B = append(b.B, make([]byte, n)...)
}

// WriteTo implements the io.WriterTo interface.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	if len(b.B) == 0 {
		return 0, nil
	}
	n, err := w.Write(b.B)
	if err == nil && n < len(b.B) {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// Slice returns the bytes from off to the end, or nil if off is out of range.
func (b *Buffer) Slice(off int) []byte {
	if off < 0 || off > len(b.B) {
		return nil
	}
	return b.B[off:]
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{B: append([]byte(nil), b.B...)}
}

// Flush do nothing
func (b *Buffer) Flush() error { return nil }

// Close do nothing
func (b *Buffer) Close() error { return nil }

// Reset empties the buffer, keeping its capacity.
func (b *Buffer) Reset() { b.B = b.B[:0] }

// Len returns the number of bytes written.
func (b *Buffer) Len() int { return len(b.B) }

// Bytes returns a slice view of the written data.
func (b *Buffer) Bytes() []byte { return b.B }
