// Package bufpool provides pooled backing storage for Buffer's contiguous
// allocation path, sized around the buffer sizes this facade actually uses:
// the default on_alloc suggestion (65536) and the stream chunk size used by
// the backpressure accounting (8192).
package bufpool

import "sync"

// Bucket sizes. Anything larger than sizeLarge is allocated directly and
// never pooled, the same cutoff behavior as the teacher's queue buffer pool.
const (
	sizeChunk = 8 * 1024
	sizeAlloc = 64 * 1024
	sizeLarge = 1024 * 1024
)

var global = struct {
	chunk sync.Pool
	alloc sync.Pool
	large sync.Pool
}{
	chunk: sync.Pool{New: func() any { b := make([]byte, sizeChunk); return &b }},
	alloc: sync.Pool{New: func() any { b := make([]byte, sizeAlloc); return &b }},
	large: sync.Pool{New: func() any { b := make([]byte, sizeLarge); return &b }},
}

// Get returns a slice of length size backed by pooled storage of at least
// that size when size fits one of the fixed buckets, or a freshly allocated
// slice otherwise. Put returns it to the matching pool.
func Get(size int) []byte {
	switch {
	case size <= sizeChunk:
		return (*global.chunk.Get().(*[]byte))[:size]
	case size <= sizeAlloc:
		return (*global.alloc.Get().(*[]byte))[:size]
	case size <= sizeLarge:
		return (*global.large.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

// Put returns buf to the pool matching its capacity. Buffers whose capacity
// doesn't match a bucket exactly (e.g. a caller-shrunk slice, or one grown
// past sizeLarge) are simply dropped for the GC to reclaim.
func Put(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case sizeChunk:
		global.chunk.Put(&buf)
	case sizeAlloc:
		global.alloc.Put(&buf)
	case sizeLarge:
		global.large.Put(&buf)
	}
}
