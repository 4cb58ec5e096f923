package ber

import (
	"bufio"
	"bytes"
	"io"
)

type (
	bytesReaderAdapter       struct{ *bytes.Reader }
	bytesBufferReaderAdapter struct{ *bytes.Buffer }
	bytesBufferWriterAdapter struct{ *bytes.Buffer }
	bufioWriterAdapter       struct{ *bufio.Writer }
	bufioReaderAdapter       struct {
		*bufio.Reader
		closer io.Closer
	}
)

func (r *bytesReaderAdapter) Close() error       { return nil }
func (r *bytesBufferReaderAdapter) Close() error { return nil }
func (w *bufioWriterAdapter) Close() error       { return nil }
func (w *bytesBufferWriterAdapter) Close() error { return nil }
func (w *bytesBufferWriterAdapter) Flush() error { return nil }

func (r *bufioReaderAdapter) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Discard moves the read offset without copying.
func (r *bytesReaderAdapter) Discard(n int64) (int64, error) {
	if avail := int64(r.Len()); n > avail {
		_, _ = r.Seek(0, io.SeekEnd)
		return avail, io.ErrUnexpectedEOF
	}
	_, err := r.Seek(n, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Discard advances the buffer's read pointer.
func (r *bytesBufferReaderAdapter) Discard(n int64) (int64, error) {
	if avail := int64(r.Len()); n > avail {
		r.Buffer.Next(int(avail))
		return avail, io.ErrUnexpectedEOF
	}
	r.Buffer.Next(int(n))
	return n, nil
}

// Discard drops buffered bytes first, then reads through the rest.
func (r *bufioReaderAdapter) Discard(n int64) (int64, error) {
	var total int64
	for n > 0 {
		step := n
		if step > CHUNK_SIZE {
			step = CHUNK_SIZE
		}
		skipped, err := r.Reader.Discard(int(step))
		total += int64(skipped)
		n -= int64(skipped)
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return total, err
		}
	}
	return total, nil
}

// closerOf returns r as an io.Closer when it is one.
func closerOf(r io.Reader) io.Closer {
	if c, ok := r.(io.Closer); ok {
		return c
	}
	return nil
}
