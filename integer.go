package ber

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// AppendInteger appends the minimal content octets of an integer of the given
// byte width. For signed values v holds the sign-extended two's complement bit
// pattern; leading 0x00 or 0xFF octets are dropped while the next octet still
// carries the same sign. Unsigned values drop leading zero octets, so a value
// with its high bit set reads back correctly only as unsigned. Zero is a
// single 0x00 octet.
func AppendInteger(dst []byte, v uint64, width int, signed bool) []byte {
	if width < 8 && !signed {
		v &= 1<<(8*width) - 1
	}
	n := 8
	if signed {
		for n > 1 {
			top := byte(v >> (8 * (n - 1)))
			next := byte(v >> (8 * (n - 2)))
			if (top == 0x00 && next&0x80 == 0) || (top == 0xFF && next&0x80 != 0) {
				n--
				continue
			}
			break
		}
	} else {
		for n > 1 && byte(v>>(8*(n-1))) == 0 {
			n--
		}
	}
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, byte(v>>(8*i)))
	}
	return dst
}

// DecodeInteger reverses AppendInteger. An empty slice decodes as zero.
func DecodeInteger(b []byte, signed bool) uint64 {
	var v uint64
	if signed && len(b) > 0 && b[0]&0x80 != 0 {
		v = ^uint64(0)
	}
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// AppendInt appends the minimal content octets of v.
func AppendInt[T constraints.Integer](dst []byte, v T) []byte {
	return AppendInteger(dst, uint64(v), widthOf[T](), isSigned[T]())
}

// ParseInt decodes content octets into T. Content longer than T can hold
// yields ErrLengthTooLarge.
func ParseInt[T constraints.Integer](b []byte) (T, error) {
	signed := isSigned[T]()
	if len(b) > widthOf[T]() {
		return 0, errors.Wrapf(ErrLengthTooLarge, "%d integer octets", len(b))
	}
	return T(DecodeInteger(b, signed)), nil
}

func widthOf[T constraints.Integer]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

func isSigned[T constraints.Integer]() bool {
	return ^T(0) < 0
}
