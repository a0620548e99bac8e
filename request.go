package uvcc

import (
	"sync"
	"sync/atomic"

	"github.com/uvcc-go/uvcc/internal/refcount"
	"github.com/uvcc-go/uvcc/internal/typed"
)

// RequestKind tags which one-shot operation a Request represents (§4.F).
type RequestKind uint8

const (
	KindConnect RequestKind = iota
	KindWrite
	KindShutdown
	KindUDPSend
	KindFSRead
	KindFSWrite
	KindFSOther
	KindGetAddrInfo
	KindGetNameInfo
	KindWork
)

// RequestCompletion is the single typed completion callback every Request
// carries. status is the ErrorKind the operation finished with; result
// carries the per-variant payload (the Buffer a write or send used, a
// resolved address, a worker's return value) and is not cleared when the
// operation fails.
type RequestCompletion func(r *Request, status ErrorKind, result any)

// Request is the single type behind every request kind (Connect, Write,
// Shutdown, UDPSend, fs read/write, GetAddrInfo, GetNameInfo, Work), told
// apart by RequestKind: refcount, last status, the completion slot, and the
// handle it borrows for its in-flight duration (§4.F, §3 "Relationships").
type Request struct {
	id     uint64
	kind   RequestKind
	rc     *refcount.Count
	handle *Handle
	loop   *Loop

	mu        sync.Mutex
	cancelled bool
	done      bool

	completion typed.Slot[RequestCompletion]
	lastStatus atomic.Int64

	// payload holds per-variant supplemental state (the buffer written, the
	// peer address, the owned DNS result); named wrappers type-assert it.
	payload any
}

func newRequest(loop *Loop, kind RequestKind, handle *Handle, cb RequestCompletion) *Request {
	r := &Request{kind: kind, rc: refcount.New(), handle: handle, loop: loop}
	if cb != nil {
		r.completion.Set(cb)
	}
	if handle != nil {
		handle.retain()
	}
	loop.registerRequest(r)
	if loop.observer != nil {
		loop.observer.ObserveHandleCreated() // requests count toward liveness the same as handles
	}
	if loop.metrics != nil {
		loop.metrics.RequestStarted()
	}
	return r
}

// Kind reports which operation this Request represents.
func (r *Request) Kind() RequestKind { return r.kind }

// Handle returns the handle this request operates on, or nil for
// handle-less requests (GetAddrInfo, GetNameInfo, Work).
func (r *Request) Handle() *Handle { return r.handle }

// Status returns the most recently recorded ErrorKind (§7: "callers may
// inspect request.uv_status()").
func (r *Request) Status() ErrorKind {
	return kindFromIndex(int(r.lastStatus.Load()))
}

// Payload returns the per-variant supplemental result a named wrapper
// stashed on this request (a resolved AddrInfo, a reverse-lookup pair, ...),
// for callers of the synchronous request variants that have no completion
// callback to hand the result to directly.
func (r *Request) Payload() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payload
}

func (r *Request) setPayload(v any) {
	r.mu.Lock()
	r.payload = v
	r.mu.Unlock()
}

// Ok reports whether Status represents success.
func (r *Request) Ok() bool { return r.Status() == KindOk }

// Cancel marks a not-yet-completed request as cancelled (advisory only,
// §5): it neither aborts in-flight work nor removes queued work. When the
// operation then finishes with a failure status, the completion callback is
// told KindCancelled instead; an operation that still succeeds reports
// KindOk.
func (r *Request) Cancel() error {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return NewError("Cancel", KindInvalid, "request already completed")
	}
	r.cancelled = true
	r.mu.Unlock()
	return nil
}

// complete runs the completion callback exactly once, releasing the
// borrowed handle reference and the request's own construction reference
// (§3: "submitted ... adds the reference held by the engine ... completed
// ... releases it").
func (r *Request) complete(status ErrorKind, result any) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	cancelled := r.cancelled
	r.mu.Unlock()

	if cancelled && status != KindOk {
		status = KindCancelled
	}
	r.lastStatus.Store(int64(kindIndex(status)))

	if r.handle != nil {
		r.handle.unref()
	}
	r.loop.deregisterRequest(r)
	if r.loop.observer != nil {
		r.loop.observer.ObserveHandleClosed()
	}
	if r.loop.metrics != nil {
		r.loop.metrics.RequestFinished()
	}

	if cb, ok := r.completion.Get(); ok {
		cb(r, status, result)
	}
	r.rc.Dec()
}
