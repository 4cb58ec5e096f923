package ber

import "sync"

// CHUNK_SIZE bounds single reads and discards on streamed input.
const CHUNK_SIZE = 32 * 1024

const (
	segmentSize    = 1024
	maxPooledBytes = 1 << 20
)

// segmentPool reuses the buffers that hold the bodies of open constructed
// values while encoding with definite lengths.
var segmentPool = sync.Pool{
	New: func() any {
		return &Buffer{B: make([]byte, 0, segmentSize)}
	},
}

func getBuffer() *Buffer {
	b := segmentPool.Get().(*Buffer)
	b.Reset()
	return b
}

// putBuffer returns b to the pool unless it grew too large to keep around.
func putBuffer(b *Buffer) {
	if cap(b.B) > maxPooledBytes {
		return
	}
	segmentPool.Put(b)
}
