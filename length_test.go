package ber

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLengthRoundTrip(t *testing.T) {
	tests := []struct {
		length Length
		want   []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x81, 0x80}},
		{255, []byte{0x81, 0xFF}},
		{256, []byte{0x82, 0x01, 0x00}},
		{65535, []byte{0x82, 0xFF, 0xFF}},
		{65536, []byte{0x83, 0x01, 0x00, 0x00}},
		{1<<63 - 1, []byte{0x88, 0x7F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
		{Indefinite, []byte{0x80}},
	}
	for _, tc := range tests {
		t.Run(tc.length.String(), func(t *testing.T) {
			got := AppendLength(nil, tc.length)
			assert.Equal(t, tc.want, got)

			l, n, err := ReadLength(bytes.NewReader(got))
			require.NoError(t, err)
			assert.Equal(t, len(got), n)
			assert.Equal(t, tc.length, l)
		})
	}
}

func TestReadLengthErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		err   error
	}{
		{"Empty", nil, ErrStreamEnded},
		{"NineOctets", []byte{0x89, 1, 2, 3, 4, 5, 6, 7, 8, 9}, ErrLengthTooLarge},
		{"Reserved", []byte{0xFF}, ErrLengthTooLarge},
		{"TruncatedLongForm", []byte{0x82, 0x01}, ErrStreamEnded},
		{"OverflowsInt64", []byte{0x88, 0x80, 0, 0, 0, 0, 0, 0, 0}, ErrLengthTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ReadLength(bytes.NewReader(tc.input))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestReadLengthNonMinimal(t *testing.T) {
	l, n, err := ReadLength(bytes.NewReader([]byte{0x82, 0x00, 0x05}))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, Length(5), l)
}
