// Package uvcc implements an event-loop facade over a per-platform reactor:
// refcounted handles and requests, callback dispatch confined to the loop
// thread, and backpressure-aware streaming I/O, in the spirit of libuv's
// C++ wrapper this project descends from.
package uvcc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/uvcc-go/uvcc/internal/engine"
)

// Loop is the event loop: one reactor, the set of live handles/requests
// registered on it, and the run/stop/walk surface (§4.D).
type Loop struct {
	reactor engine.Reactor

	mu       sync.Mutex
	handles  map[uint64]*Handle
	requests map[uint64]*Request
	idle     map[uint64]*Idle
	prepare  map[uint64]*Prepare
	check    map[uint64]*Check
	asyncs   map[uint64]*Async

	nextID atomic.Uint64

	running atomic.Bool
	stopped atomic.Bool

	observer    Observer
	metrics     *Metrics
	workerCount int

	keepAliveMu sync.Mutex
	keepAlive   *Handle // internal dormant handle pinning Alive() while enabled
}

// LoopOption configures a Loop at construction.
type LoopOption func(*Loop)

// WithObserver attaches an Observer whose Observe* methods fire alongside
// (or instead of) the built-in Metrics.
func WithObserver(o Observer) LoopOption {
	return func(l *Loop) { l.observer = o }
}

// WithMetrics attaches a Metrics instance the loop feeds from its
// completion paths; NewLoop creates one automatically if this option is
// not given.
func WithMetrics(m *Metrics) LoopOption {
	return func(l *Loop) { l.metrics = m }
}

// WithWorkerCount sizes the reactor's fixed worker pool.
func WithWorkerCount(n int) LoopOption {
	return func(l *Loop) { l.workerCount = n }
}

// NewLoop constructs a Loop with its own reactor. It returns
// ErrUnsupportedPlatform if no reactor backend exists for this OS (only
// Linux has one; see internal/engine).
func NewLoop(opts ...LoopOption) (*Loop, error) {
	l := &Loop{
		handles:  make(map[uint64]*Handle),
		requests: make(map[uint64]*Request),
		idle:     make(map[uint64]*Idle),
		prepare:  make(map[uint64]*Prepare),
		check:    make(map[uint64]*Check),
		asyncs:   make(map[uint64]*Async),
		metrics:  NewMetrics(),
	}
	for _, opt := range opts {
		opt(l)
	}
	r, err := engine.NewReactor(engine.Config{WorkerCount: l.workerCount})
	if err != nil {
		return nil, WrapError("NewLoop", err)
	}
	l.reactor = r
	return l, nil
}

var (
	defaultLoop     *Loop
	defaultLoopOnce sync.Once
	defaultLoopErr  error
)

// DefaultLoop returns the process-wide default Loop, constructing it on
// first use (§9: "global default loop" design note).
func DefaultLoop() (*Loop, error) {
	defaultLoopOnce.Do(func() {
		defaultLoop, defaultLoopErr = NewLoop()
	})
	return defaultLoop, defaultLoopErr
}

func (l *Loop) nextUserID() uint64 {
	return l.nextID.Add(1)
}

func (l *Loop) registerHandle(h *Handle) {
	l.mu.Lock()
	h.id = l.nextUserID()
	l.handles[h.id] = h
	l.mu.Unlock()
}

func (l *Loop) deregisterHandle(h *Handle) {
	l.mu.Lock()
	delete(l.handles, h.id)
	delete(l.idle, h.id)
	delete(l.prepare, h.id)
	delete(l.check, h.id)
	delete(l.asyncs, h.id)
	l.mu.Unlock()
}

func (l *Loop) registerRequest(r *Request) {
	l.mu.Lock()
	r.id = l.nextUserID()
	l.requests[r.id] = r
	l.mu.Unlock()
}

func (l *Loop) deregisterRequest(r *Request) {
	l.mu.Lock()
	delete(l.requests, r.id)
	l.mu.Unlock()
}

// Alive reports whether the loop has any handle or request that still
// counts toward keeping Run blocking: any handle with HasRef()==true and
// IsActive(), or any outstanding request.
func (l *Loop) Alive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.requests) > 0 {
		return true
	}
	for _, h := range l.handles {
		if h.HasRef() && h.IsActive() {
			return true
		}
	}
	return false
}

// KeepAlive attaches (on == true) or detaches (on == false) an internal
// dormant handle that, while attached, makes Alive() report true even when
// no user-visible handle or request is pending -- so Run(RunDefault) keeps
// blocking instead of returning. The handle does nothing on its own: it
// carries no fd and is never dispatched to. A repeated KeepAlive(true) call
// is a no-op rather than leaking a second pin; KeepAlive(false) is
// idempotent when no pin is attached.
func (l *Loop) KeepAlive(on bool) {
	l.keepAliveMu.Lock()
	defer l.keepAliveMu.Unlock()
	if on {
		if l.keepAlive == nil {
			h := newHandle(l, KindKeepAlive, -1)
			h.Ref()
			h.setActive(true)
			l.keepAlive = h
		}
		return
	}
	if l.keepAlive != nil {
		l.keepAlive.closeHandle(nil)
		l.keepAlive = nil
	}
}

// Now returns the loop's cached current time.
func (l *Loop) Now() time.Time { return l.reactor.Now() }

// UpdateTime refreshes the loop's cached current time outside of a normal
// Run iteration (Run refreshes it automatically once per poll).
func (l *Loop) UpdateTime() { l.reactor.UpdateTime() }

// BackendFD exposes the reactor's underlying poll descriptor.
func (l *Loop) BackendFD() int { return l.reactor.BackendFD() }

// Walk invokes fn once for every handle currently registered on the loop,
// active or not -- a diagnostic/cleanup primitive (spec.md §9 open
// questions names it as worth supplementing from the original).
func (l *Loop) Walk(fn func(*Handle)) {
	l.mu.Lock()
	snapshot := make([]*Handle, 0, len(l.handles))
	for _, h := range l.handles {
		snapshot = append(snapshot, h)
	}
	l.mu.Unlock()
	for _, h := range snapshot {
		fn(h)
	}
}

// Stop causes the current or next Run call to return once it notices
// (Run polls for this after every iteration, and Stop wakes a blocked
// poll immediately via the reactor).
func (l *Loop) Stop() {
	l.stopped.Store(true)
	l.reactor.Wake()
}

// Close releases the loop's reactor. The loop must not be running and
// should have no live handles.
func (l *Loop) Close() error {
	return l.reactor.Close()
}

// Run drives the loop according to mode until it stops being alive (or,
// for RunOnce/RunNoWait, after one iteration), or until Stop is called
// (§4.D).
func (l *Loop) Run(mode RunMode) error {
	if !l.running.CompareAndSwap(false, true) {
		return NewError("Run", KindInvalid, "loop is already running")
	}
	defer l.running.Store(false)
	l.stopped.Store(false)

	for {
		l.runPrepare()

		timeoutMs := l.pollTimeout(mode)
		events, err := l.reactor.Wait(timeoutMs)
		l.reactor.UpdateTime()
		if err != nil {
			return WrapError("Run", err)
		}
		l.dispatchEvents(events)
		l.dispatchWork()
		l.runAsync()

		l.runCheck()
		l.runIdle()

		if l.stopped.Load() {
			return nil
		}
		switch mode {
		case RunOnce, RunNoWait:
			return nil
		}
		if !l.Alive() {
			return nil
		}
	}
}

func (l *Loop) pollTimeout(mode RunMode) int {
	switch mode {
	case RunNoWait:
		return 0
	default:
		return int(defaultPollTimeout / time.Millisecond)
	}
}

func (l *Loop) dispatchEvents(events []engine.Event) {
	for _, ev := range events {
		l.mu.Lock()
		h, ok := l.handles[ev.UserData]
		l.mu.Unlock()
		if !ok || h.dispatch == nil {
			continue
		}
		h.dispatch(ev.IOEvents)
	}
}

func (l *Loop) dispatchWork() {
	for _, wr := range l.reactor.DrainWork() {
		l.mu.Lock()
		r, ok := l.requests[wr.UserData]
		l.mu.Unlock()
		if !ok {
			continue
		}
		status := KindOk
		if wr.Err != nil {
			status = KindEngineError
		}
		r.complete(status, wr.Value)
	}
}

func (l *Loop) runAsync() {
	l.mu.Lock()
	snapshot := make([]*Async, 0, len(l.asyncs))
	for _, a := range l.asyncs {
		snapshot = append(snapshot, a)
	}
	l.mu.Unlock()
	for _, a := range snapshot {
		a.fireIfPending()
	}
}

func (l *Loop) runIdle() {
	l.mu.Lock()
	snapshot := make([]*Idle, 0, len(l.idle))
	for _, h := range l.idle {
		snapshot = append(snapshot, h)
	}
	l.mu.Unlock()
	for _, h := range snapshot {
		h.fire()
	}
}

func (l *Loop) runPrepare() {
	l.mu.Lock()
	snapshot := make([]*Prepare, 0, len(l.prepare))
	for _, h := range l.prepare {
		snapshot = append(snapshot, h)
	}
	l.mu.Unlock()
	for _, h := range snapshot {
		h.fire()
	}
}

func (l *Loop) runCheck() {
	l.mu.Lock()
	snapshot := make([]*Check, 0, len(l.check))
	for _, h := range l.check {
		snapshot = append(snapshot, h)
	}
	l.mu.Unlock()
	for _, h := range snapshot {
		h.fire()
	}
}
