package ber

import "iter"

// Ptr returns a pointer to a copy of v, making test setup and optional fields cleaner.
func Ptr[T any](v T) *T { return &v }

// chunks yields consecutive slices of b no longer than size.
func chunks(b []byte, size int) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for len(b) > 0 {
			n := min(size, len(b))
			if !yield(b[:n]) {
				return
			}
			b = b[n:]
		}
	}
}
