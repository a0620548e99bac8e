package uvcc

import (
	"sync"

	"github.com/uvcc-go/uvcc/internal/bufpool"
	"github.com/uvcc-go/uvcc/internal/refcount"
)

// segment records a sub-range of a Buffer's contiguous backing storage: the
// originally requested length (base never moves when Len shrinks) and the
// currently visible length.
type segment struct {
	off    int // offset into storage
	origin int // originally requested length
	length int // currently visible length, <= origin
}

// Buffer is an ordered sequence of byte segments sharing one refcounted,
// contiguous backing allocation -- the Go analogue of a uv_buf_t array with
// shared ownership layered on top (§4.C). Buffers are handled by pointer.
// A zero Buffer has no segments and no refcount: Retain and Release work
// only on Buffers built by NewBuffer or WrapBytes.
type Buffer struct {
	mu      sync.Mutex
	storage []byte
	segs    []segment
	pooled  bool
	rc      *refcount.Count
}

// NewBuffer allocates a Buffer with len(sizes) segments, one contiguous
// backing region sized to their sum, each segment pointing at its
// corresponding sub-range in order.
func NewBuffer(sizes ...int) *Buffer {
	total := 0
	for _, s := range sizes {
		total += s
	}
	storage := bufpool.Get(total)
	b := &Buffer{storage: storage, pooled: true, rc: refcount.New()}
	off := 0
	for _, s := range sizes {
		b.segs = append(b.segs, segment{off: off, origin: s, length: s})
		off += s
	}
	return b
}

// WrapBytes constructs a single-segment Buffer directly over an existing
// byte slice (used to wrap static strings or caller-owned memory without a
// copy). The wrapped slice is not pooled: Release never returns it to
// bufpool.
func WrapBytes(p []byte) *Buffer {
	return &Buffer{
		storage: p,
		segs:    []segment{{off: 0, origin: len(p), length: len(p)}},
		pooled:  false,
		rc:      refcount.New(),
	}
}

// NumSegments reports the segment count.
func (b *Buffer) NumSegments() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.segs)
}

// Segment returns the i'th segment as a byte slice view into the shared
// backing storage (no copy).
func (b *Buffer) Segment(i int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.segs[i]
	return b.storage[s.off : s.off+s.length]
}

// SetLength shrinks segment i's visible length, e.g. to the actual byte
// count a read returned. It never moves the segment's base pointer and
// never grows past the segment's originally requested size.
func (b *Buffer) SetLength(i int, length int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if length > b.segs[i].origin {
		length = b.segs[i].origin
	}
	b.segs[i].length = length
}

// IOVec returns the {base,len} array this Buffer presents to the engine's
// vectorized I/O calls (readv/writev-style), one entry per segment, in
// segment order.
func (b *Buffer) IOVec() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.segs))
	for i, s := range b.segs {
		out[i] = b.storage[s.off : s.off+s.length]
	}
	return out
}

// Retain increments the Buffer's refcount; callers that hand a Buffer to a
// request that must outlive the caller's own reference call this first.
func (b *Buffer) Retain() *Buffer {
	b.rc.Inc()
	return b
}

// Release decrements the Buffer's refcount, returning its backing storage
// to bufpool once the last reference drops.
func (b *Buffer) Release() {
	if b.rc.Dec() != 0 {
		return
	}
	if b.pooled {
		bufpool.Put(b.storage)
	}
}

// Bytes concatenates all segments into a single newly allocated slice, for
// callers that don't want to deal with the multi-segment view.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, s := range b.segs {
		total += s.length
	}
	out := make([]byte, 0, total)
	for _, s := range b.segs {
		out = append(out, b.storage[s.off:s.off+s.length]...)
	}
	return out
}
