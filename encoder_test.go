package ber

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEncoderModes(t *testing.T) {
	tests := []struct {
		mode Mode
		want []byte
	}{
		{Buffered, []byte{0x30, 0x08, 0x31, 0x03, 0x01, 0x01, 0x00, 0x02, 0x01, 0xF9}},
		{Streaming, []byte{0x30, 0x80, 0x31, 0x80, 0x01, 0x01, 0x00, 0x00, 0x00, 0x02, 0x01, 0xF9, 0x00, 0x00}},
	}
	for _, tc := range tests {
		t.Run(tc.mode.String(), func(t *testing.T) {
			var buf bytes.Buffer
			e, err := NewEncoder(&buf, tc.mode)
			require.NoError(t, err)
			assert.Equal(t, tc.mode, e.Mode())

			b := false
			n := int8(-7)
			require.NoError(t, e.StartStruct(nil, "outer"))
			require.NoError(t, e.StartArray(nil, "flags"))
			require.NoError(t, e.VisitBool(&b, "flag"))
			require.NoError(t, e.NextElement())
			require.NoError(t, e.EndArray())
			require.NoError(t, e.VisitInt8(&n, "n"))
			require.NoError(t, e.EndStruct())
			require.NoError(t, e.Close())

			assert.Equal(t, tc.want, buf.Bytes())
			assert.EqualValues(t, len(tc.want), e.Count())
		})
	}
}

func TestEncoderLongDefiniteLength(t *testing.T) {
	s := string(bytes.Repeat([]byte{'q'}, 200))
	data, err := Marshal(visitFunc(func(v Visitor, name string) error {
		if err := v.StartStruct(nil, name); err != nil {
			return err
		}
		if err := v.VisitString(&s, "s"); err != nil {
			return err
		}
		return v.EndStruct()
	}), Buffered)
	require.NoError(t, err)

	// body is 16 81 C8 + 200 bytes = 203
	assert.Equal(t, []byte{0x30, 0x81, 0xCB, 0x16, 0x81, 0xC8}, data[:6])
	assert.Len(t, data, 3+203)
}

func TestEncoderErrors(t *testing.T) {
	t.Run("Underflow", func(t *testing.T) {
		e, _ := NewEncoder(io.Discard, Buffered)
		err := e.EndStruct()
		assert.ErrorIs(t, err, ErrBufferUnderflow)
		assert.Equal(t, err, e.Err())
	})

	t.Run("Unbalanced", func(t *testing.T) {
		for _, mode := range []Mode{Buffered, Streaming} {
			e, _ := NewEncoder(io.Discard, mode)
			require.NoError(t, e.StartStruct(nil, "open"))
			assert.ErrorIs(t, e.Close(), ErrUnbalanced)
		}
	})

	t.Run("NestingTooDeep", func(t *testing.T) {
		e, _ := NewEncoder(io.Discard, Streaming)
		e.WithMaxDepth(3)
		for i := 0; i < 3; i++ {
			require.NoError(t, e.StartStruct(nil, "level"))
		}
		err := e.StartArray(nil, "one too many")
		assert.ErrorIs(t, err, ErrNestingTooDeep)

		var e2 *Error
		require.ErrorAs(t, err, &e2)
		assert.Equal(t, "StartArray", e2.Op)
		assert.Equal(t, "one too many", e2.Field)
	})

	t.Run("StickyAfterFailure", func(t *testing.T) {
		var buf bytes.Buffer
		e, _ := NewEncoder(&buf, Streaming)
		first := e.EndArray()
		require.Error(t, first)

		var v int64 = 1
		assert.Equal(t, first, e.VisitInt64(&v, "v"))
		assert.Equal(t, first, e.StartStruct(nil, "s"))
		assert.Equal(t, first, e.Close())
		assert.Zero(t, buf.Len())
	})

	t.Run("UseAfterClose", func(t *testing.T) {
		e, _ := NewEncoder(io.Discard, Buffered)
		require.NoError(t, e.Close())
		var b bool
		assert.ErrorIs(t, e.VisitBool(&b, "b"), ErrClosed)
	})

	t.Run("WriteFailure", func(t *testing.T) {
		e, _ := NewEncoder(&shortWriter{limit: 3}, Streaming)
		var v uint64 = 1 << 40
		for i := 0; i < 2000; i++ {
			if e.VisitUint64(&v, "v") != nil {
				break
			}
		}
		err := e.Close()
		assert.ErrorIs(t, err, io.ErrShortWrite)
	})

	t.Run("UnknownMode", func(t *testing.T) {
		_, err := NewEncoder(io.Discard, Mode(9))
		assert.Error(t, err)
	})
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"buffered":   Buffered,
		"definite":   Buffered,
		"":           Buffered,
		"Streaming":  Streaming,
		"indefinite": Streaming,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("cer")
	assert.Error(t, err)
}

func TestEncoderDebugTraces(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var buf bytes.Buffer
	e, _ := NewEncoder(&buf, Buffered)
	e.WithLogger(zap.New(core)).WithChunkSize(4)

	require.NoError(t, Run(e, &text{"fragmented"}, "s"))
	assert.Equal(t, 1, logs.FilterMessage("ber: fragmenting").Len())
	assert.Equal(t, 1, logs.FilterMessage("ber: close").Len())

	var got text
	require.NoError(t, Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "fragmented", got.S)
}
