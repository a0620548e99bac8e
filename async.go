package uvcc

import "sync/atomic"

// AsyncCallback fires on the loop thread once per coalesced batch of Send
// calls -- the one primitive in this facade that is safe to trigger from
// any goroutine besides the loop thread itself (§5).
type AsyncCallback func(*Async)

// Async is a handle any goroutine can wake the loop through: Send marks it
// pending and wakes the reactor; the loop fires cb on its own thread the
// next time it notices the pending flag, coalescing any Sends that land
// before that happens into a single callback invocation.
type Async struct {
	*Handle
	cb      AsyncCallback
	pending atomic.Bool
}

// NewAsync constructs an Async handle and immediately starts watching for
// Send calls.
func NewAsync(loop *Loop, cb AsyncCallback) (*Async, error) {
	if cb == nil {
		return nil, NewError("NewAsync", KindInvalid, "nil callback")
	}
	a := &Async{Handle: newHandle(loop, KindAsync, -1), cb: cb}
	a.setActive(true)
	loop.mu.Lock()
	loop.asyncs[a.id] = a
	loop.mu.Unlock()
	return a, nil
}

// Send marks the handle pending and wakes the loop. Safe from any
// goroutine.
func (a *Async) Send() {
	a.pending.Store(true)
	a.loop.reactor.Wake()
}

// Close closes the handle.
func (a *Async) Close(cb CloseCallback) {
	a.setActive(false)
	a.loop.mu.Lock()
	delete(a.loop.asyncs, a.id)
	a.loop.mu.Unlock()
	a.closeHandle(cb)
}

func (a *Async) fireIfPending() {
	if a.pending.CompareAndSwap(true, false) {
		a.cb(a)
	}
}
