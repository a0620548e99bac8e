// Package refcount provides the atomic reference-count primitive shared by
// every handle and request instance.
package refcount

import "sync/atomic"

// Count is a 64-bit atomic reference counter with acquire/release ordering.
// A freshly constructed Count starts at 1, representing the reference held
// by its creator.
//
// Incrementing from zero panics: that state means the caller is trying to
// resurrect a reference from an alias that has already observed the object
// reach zero, which is always a bug in the caller, never a recoverable
// runtime condition.
type Count struct {
	v atomic.Int64
}

// New returns a Count initialized to 1.
func New() *Count {
	c := &Count{}
	c.v.Store(1)
	return c
}

// Value loads the counter with acquire semantics.
func (c *Count) Value() int64 {
	return c.v.Load()
}

// Inc bumps the counter by one and returns the new value. It panics with
// ErrResurrection if the counter was observed at zero, mirroring the
// original implementation's throw on resurrection (see DESIGN.md).
func (c *Count) Inc() int64 {
	for {
		cur := c.v.Load()
		if cur == 0 {
			panic(ErrResurrection)
		}
		if c.v.CompareAndSwap(cur, cur+1) {
			return cur + 1
		}
	}
}

// Dec releases one reference with release semantics and returns the new
// value. The caller must trigger destruction when the returned value is
// zero; Dec itself performs no cleanup. Any state written by the caller
// before calling Dec is visible, via this decrement's release barrier, to
// any other goroutine that later observes the counter at zero.
func (c *Count) Dec() int64 {
	return c.v.Add(-1)
}

// resurrectionError is the type of ErrResurrection, the panic value used by
// Inc when incrementing from zero.
type resurrectionError struct{}

func (resurrectionError) Error() string {
	return "refcount: increment from zero (resurrection of a dangling reference)"
}

// ErrResurrection is reported to errors.As/panic recover sites that want to
// distinguish this condition from other panics.
var ErrResurrection error = resurrectionError{}
