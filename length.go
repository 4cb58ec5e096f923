package ber

import (
	"io"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Length is the length of a TLV body in octets, or Indefinite.
type Length int64

// Indefinite marks a constructed value terminated by end-of-contents.
const Indefinite Length = -1

const (
	lengthIndefinite = 0x80
	lengthLongForm   = 0x80
	maxLengthOctets  = 8
)

// IsIndefinite reports whether l is the indefinite length.
func (l Length) IsIndefinite() bool { return l < 0 }

func (l Length) String() string {
	if l.IsIndefinite() {
		return "indefinite"
	}
	return strconv.FormatInt(int64(l), 10)
}

// AppendLength appends the length octets of l to dst using the minimal form.
func AppendLength(dst []byte, l Length) []byte {
	if l.IsIndefinite() {
		return append(dst, lengthIndefinite)
	}
	if l < 0x80 {
		return append(dst, byte(l))
	}
	n := 0
	for v := uint64(l); v > 0; v >>= 8 {
		n++
	}
	dst = append(dst, lengthLongForm|byte(n))
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, byte(uint64(l)>>(8*i)))
	}
	return dst
}

// ReadLength reads length octets from r and returns the length and the number
// of octets consumed. Long forms declaring more than 8 octets, or a value that
// does not fit an int64, yield ErrLengthTooLarge.
func ReadLength(r io.ByteReader) (Length, int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, 0, streamError(err)
	}
	if b == lengthIndefinite {
		return Indefinite, 1, nil
	}
	if b&lengthLongForm == 0 {
		return Length(b), 1, nil
	}

	count := int(b &^ lengthLongForm)
	if count > maxLengthOctets {
		return 0, 1, errors.Wrapf(ErrLengthTooLarge, "%d length octets", count)
	}
	var v uint64
	for i := 0; i < count; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, i + 1, streamError(err)
		}
		v = v<<8 | uint64(b)
	}
	if v > math.MaxInt64 {
		return 0, count + 1, errors.Wrapf(ErrLengthTooLarge, "length %d", v)
	}
	return Length(v), count + 1, nil
}
