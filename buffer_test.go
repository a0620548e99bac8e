package uvcc

import "testing"

func TestBufferLayout(t *testing.T) {
	// Invariant 9: base(i) == base(0) + sum(len(j) for j<i), and total
	// visible length equals the sum of requested segment sizes.
	b := NewBuffer(4, 8, 2)
	if b.NumSegments() != 3 {
		t.Fatalf("NumSegments() = %d, want 3", b.NumSegments())
	}
	iov := b.IOVec()
	wantLens := []int{4, 8, 2}
	total := 0
	for i, seg := range iov {
		if len(seg) != wantLens[i] {
			t.Errorf("segment %d length = %d, want %d", i, len(seg), wantLens[i])
		}
		total += len(seg)
	}
	if total != 14 {
		t.Errorf("total visible length = %d, want 14", total)
	}
	b.Release()
}

func TestBufferSetLengthClampsToOrigin(t *testing.T) {
	b := NewBuffer(16)
	b.SetLength(0, 100) // must clamp to the segment's original size
	if got := len(b.Segment(0)); got != 16 {
		t.Errorf("Segment(0) length = %d, want clamped to 16", got)
	}
	b.SetLength(0, 4)
	if got := len(b.Segment(0)); got != 4 {
		t.Errorf("Segment(0) length = %d, want 4", got)
	}
	b.Release()
}

func TestBufferBytesConcatenatesSegments(t *testing.T) {
	b := NewBuffer(2, 2)
	copy(b.Segment(0), []byte{'A', 'B'})
	copy(b.Segment(1), []byte{'C', 'D'})
	got := b.Bytes()
	if string(got) != "ABCD" {
		t.Errorf("Bytes() = %q, want \"ABCD\"", got)
	}
	b.Release()
}

func TestBufferRetainReleaseRoundTrip(t *testing.T) {
	// Invariant 3: a buffer's refcount at completion-callback entry must be
	// at least one -- simulated here by Retain before handing off, then
	// Release from both the holder and the original owner.
	b := WrapBytes([]byte("hello"))
	b.Retain()
	b.Release() // holder's reference
	if got := string(b.Bytes()); got != "hello" {
		t.Errorf("Bytes() after one Release = %q, want \"hello\" (still alive)", got)
	}
	b.Release() // original owner's reference drops it to zero
}

func TestWrapBytesNotPooled(t *testing.T) {
	p := []byte("static")
	b := WrapBytes(p)
	if b.pooled {
		t.Error("WrapBytes should not mark storage as pooled")
	}
	b.Release()
}
