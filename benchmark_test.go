package ber

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func benchRecord() *record {
	r := sample()
	r.S = string(bytes.Repeat([]byte("payload "), 400))
	return r
}

func BenchmarkMarshalBuffered(b *testing.B) {
	r := benchRecord()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Marshal(r, Buffered)
	}
}

func BenchmarkMarshalStreaming(b *testing.B) {
	r := benchRecord()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Marshal(r, Streaming)
	}
}

func BenchmarkUnmarshal(b *testing.B) {
	for _, mode := range []Mode{Buffered, Streaming} {
		data, _ := Marshal(benchRecord(), mode)
		b.Run(mode.String(), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				var r record
				_ = Unmarshal(data, &r)
			}
		})
	}
}

func BenchmarkSkip(b *testing.B) {
	for _, mode := range []Mode{Buffered, Streaming} {
		data, _ := Marshal(benchRecord(), mode)
		b.Run(mode.String(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				var r skipRecord
				_ = Unmarshal(data, &r)
			}
		})
	}
}

// Baseline comparison: fixed-width big-endian integers without TLV framing.
func BenchmarkStandardBinaryWrite(b *testing.B) {
	r := benchRecord()
	var buf bytes.Buffer
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = binary.Write(&buf, binary.BigEndian, r.X)
		_ = binary.Write(&buf, binary.BigEndian, r.Y)
		buf.WriteString(r.S)
	}
}
