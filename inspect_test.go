package ber

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"Definite", sampleBuffered},
		{"Indefinite", sampleStreaming},
	} {
		t.Run(tc.name, func(t *testing.T) {
			nodes, err := Inspect(bytes.NewReader(tc.data), DefaultMaxDepth)
			require.NoError(t, err)
			require.Len(t, nodes, 1)

			root := nodes[0]
			assert.Equal(t, Universal(TagSequence, true), root.Tag)
			assert.EqualValues(t, 0, root.Offset)
			assert.Equal(t, 2, root.HeaderLen)
			require.Len(t, root.Children, 5)

			x := root.Children[0]
			assert.Equal(t, Universal(TagInteger, false), x.Tag)
			assert.Equal(t, []byte{0x2A}, x.Value)
			assert.EqualValues(t, 2, x.Offset)

			s := root.Children[3]
			assert.Equal(t, []byte("Hello World."), s.Value)

			array := root.Children[4]
			assert.Equal(t, Universal(TagSet, true), array.Tag)
			require.Len(t, array.Children, 2)
			assert.Len(t, array.Children[1].Children, 2)
		})
	}
}

func TestInspectIndefiniteLength(t *testing.T) {
	nodes, err := Inspect(bytes.NewReader(sampleStreaming), DefaultMaxDepth)
	require.NoError(t, err)
	assert.True(t, nodes[0].Length.IsIndefinite())
	assert.EqualValues(t, 0x2B, func() Length {
		n, _ := Inspect(bytes.NewReader(sampleBuffered), DefaultMaxDepth)
		return n[0].Length
	}())
}

func TestInspectMultipleValues(t *testing.T) {
	data := append(append([]byte(nil), sampleBuffered...), sampleStreaming...)
	data = append(data, 0x02, 0x01, 0x07)

	nodes, err := Inspect(bytes.NewReader(data), DefaultMaxDepth)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.EqualValues(t, len(sampleBuffered), nodes[1].Offset)
	assert.Equal(t, []byte{0x07}, nodes[2].Value)
}

func TestInspectErrors(t *testing.T) {
	deep := bytes.Repeat([]byte{0x30, 0x80}, 20)
	deep = append(deep, bytes.Repeat([]byte{0x00, 0x00}, 20)...)

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"TooDeep", deep, ErrNestingTooDeep},
		{"Truncated", sampleBuffered[:10], ErrStreamEnded},
		{"StrayEndOfContents", []byte{0x00, 0x00}, ErrIndefiniteLength},
		{"EndOfContentsInDefinite", []byte{0x30, 0x02, 0x00, 0x00}, ErrIndefiniteLength},
		{"ChildCrossesEnd", []byte{0x30, 0x02, 0x02, 0x02, 0x01, 0x01}, ErrStreamCorrupt},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Inspect(bytes.NewReader(tc.data), 8)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestNodeFormat(t *testing.T) {
	nodes, err := Inspect(bytes.NewReader(sampleBuffered), DefaultMaxDepth)
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, nodes[0].Format(&out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 12)
	assert.Contains(t, lines[0], "SEQUENCE (constructed) len=43")
	assert.Contains(t, lines[1], "  INTEGER len=1 42")
	assert.Contains(t, lines[3], "BOOLEAN len=1 true")
	assert.Contains(t, lines[4], `IA5String len=12 "Hello World."`)
	assert.Contains(t, lines[7], "    INTEGER len=2 1234")
}
