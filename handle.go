package uvcc

import (
	"sync"
	"sync/atomic"

	"github.com/uvcc-go/uvcc/internal/engine"
	"github.com/uvcc-go/uvcc/internal/refcount"
	"github.com/uvcc-go/uvcc/internal/typed"
)

// HandleKind tags which concrete variant a Handle backs, the Go stand-in
// for the original's compile-time type parameter on base<uv_t>.
type HandleKind uint8

const (
	KindTCP HandleKind = iota
	KindPipe
	KindTTY
	KindUDP
	KindFile
	KindTimer
	KindSignal
	KindProcess
	KindAsync
	KindIdle
	KindPrepare
	KindCheck
	KindKeepAlive
)

func (k HandleKind) String() string {
	switch k {
	case KindTCP:
		return "tcp"
	case KindPipe:
		return "pipe"
	case KindTTY:
		return "tty"
	case KindUDP:
		return "udp"
	case KindFile:
		return "file"
	case KindTimer:
		return "timer"
	case KindSignal:
		return "signal"
	case KindProcess:
		return "process"
	case KindAsync:
		return "async"
	case KindIdle:
		return "idle"
	case KindPrepare:
		return "prepare"
	case KindCheck:
		return "check"
	case KindKeepAlive:
		return "keep-alive"
	default:
		return "unknown"
	}
}

// CloseCallback is invoked once a handle has fully released its engine
// resources, regardless of why it was closed (§7: "the destroy callback
// always fires regardless of close reason").
type CloseCallback func(*Handle)

// Handle is the base every concrete handle type (Tcp, Pipe, Udp, File,
// Timer, Signal, Process, Async, Idle, Prepare, Check) embeds. It carries
// the refcount, engine registration, and close/active-state bookkeeping
// common to all of them (§4.E).
type Handle struct {
	id   uint64
	loop *Loop
	kind HandleKind
	rc   *refcount.Count

	mu      sync.Mutex
	fd      int // -1 if not fd-backed (timer/idle/prepare/check/async)
	active  bool
	closing bool
	closed  bool
	hasRef  bool // counted toward Loop.activeRefs; true unless Unref'd
	refPins int  // extra pins from explicit keep_alive(true) calls

	closeCB typed.Slot[CloseCallback]

	// dispatch routes a readiness event reported by the reactor for this
	// handle's fd (or timer/signal registration) to the concrete wrapper's
	// handling logic; set by tcp.go/pipe.go/tty.go/udp.go/timer.go/signal.go
	// at construction time.
	dispatch func(engine.IOEvents)

	lastStatus atomic.Int64 // encodes the most recent ErrorKind as int64, 0 = KindOk
}

func newHandle(loop *Loop, kind HandleKind, fd int) *Handle {
	h := &Handle{loop: loop, kind: kind, rc: refcount.New(), fd: fd, hasRef: true}
	loop.registerHandle(h)
	if fd >= 0 {
		_ = loop.reactor.AddFD(fd, 0, h.id)
	}
	if loop.observer != nil {
		loop.observer.ObserveHandleCreated()
	}
	if loop.metrics != nil {
		loop.metrics.HandleCreated()
	}
	return h
}

// Kind reports which concrete variant this Handle backs.
func (h *Handle) Kind() HandleKind { return h.kind }

// Loop returns the owning Loop.
func (h *Handle) Loop() *Loop { return h.loop }

// Fileno returns the underlying OS file descriptor, or KindBadHandle if
// this variant has none (timer/idle/prepare/check/async).
func (h *Handle) Fileno() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fd < 0 {
		return 0, NewError("Fileno", KindBadHandle, "handle has no file descriptor")
	}
	return h.fd, nil
}

// IsActive reports whether the handle currently has outstanding work the
// engine will report on (a started read, an armed timer, a pending
// listen/accept, ...).
func (h *Handle) IsActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active && !h.closing
}

func (h *Handle) setActive(v bool) {
	h.mu.Lock()
	h.active = v
	h.mu.Unlock()
}

// IsClosing reports whether Close has been called but the close callback
// has not yet fired.
func (h *Handle) IsClosing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closing
}

// HasRef reports whether the handle currently counts toward the loop's
// "still alive" set (§4.D: run() returns once no handle/request HasRef).
func (h *Handle) HasRef() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hasRef
}

// Ref marks the handle as counting toward the loop's alive set. New
// handles start ref'd.
func (h *Handle) Ref() {
	h.mu.Lock()
	h.hasRef = true
	h.mu.Unlock()
}

// Unref excludes the handle from the loop's alive set without closing it --
// used for handles that should not by themselves keep loop.Run blocking
// (e.g. a housekeeping timer).
func (h *Handle) Unref() {
	h.mu.Lock()
	h.hasRef = false
	h.mu.Unlock()
}

// KeepAlive(true) pins an extra reference that only an equal number of
// KeepAlive(false) calls (or Close) undoes. A second KeepAlive(true) call
// re-references the existing pin rather than leaking a second one: the
// refcount is bumped only for the first pin, and later calls just
// increment the pin count, matching the documented (non-leaking)
// interpretation of calling keep_alive(true) twice.
func (h *Handle) KeepAlive(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if on {
		if h.refPins == 0 {
			h.rc.Inc()
		}
		h.refPins++
		return
	}
	if h.refPins > 0 {
		h.refPins--
		if h.refPins == 0 {
			h.mu.Unlock()
			h.unref()
			h.mu.Lock()
		}
	}
}

func (h *Handle) retain() { h.rc.Inc() }

func (h *Handle) unref() {
	if h.rc.Dec() == 0 {
		h.destroy()
	}
}

// setCloseCallback registers cb, replacing any previous one.
func (h *Handle) setCloseCallback(cb CloseCallback) {
	if cb != nil {
		h.closeCB.Set(cb)
	} else {
		h.closeCB.Clear()
	}
}

// closeHandle begins the close protocol: it is idempotent, deregisters the
// handle from the engine, and arranges for cb to fire exactly once the
// handle's resources are actually released (§4.I).
func (h *Handle) closeHandle(cb CloseCallback) {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		return
	}
	h.closing = true
	h.active = false
	fd := h.fd
	pinned := h.refPins > 0
	h.refPins = 0
	h.mu.Unlock()

	h.setCloseCallback(cb)

	if fd >= 0 {
		h.loop.reactor.RemoveFD(fd)
	}
	if pinned {
		h.unref()
	}
	h.unref()
}

// destroy runs once the handle's refcount reaches zero: releases the fd (if
// any) and fires the close callback. It always fires the close callback,
// independent of why the handle was closed.
func (h *Handle) destroy() {
	h.mu.Lock()
	fd := h.fd
	h.fd = -1
	h.closed = true
	h.mu.Unlock()

	if fd >= 0 {
		closeRawFD(fd)
	}
	h.loop.deregisterHandle(h)
	if h.loop.observer != nil {
		h.loop.observer.ObserveHandleClosed()
	}
	if h.loop.metrics != nil {
		h.loop.metrics.HandleClosed()
	}
	if cb, ok := h.closeCB.Get(); ok {
		cb(h)
	}
}

// setStatus records the most recent ErrorKind observed by any operation on
// this handle (§7's "thread-local-scoped last-status slot" -- here simply
// a field on the handle, since all mutation happens on the loop thread).
func (h *Handle) setStatus(k ErrorKind) {
	h.lastStatus.Store(int64(kindIndex(k)))
}

// LastStatus returns the most recently recorded ErrorKind for this handle.
func (h *Handle) LastStatus() ErrorKind {
	return kindFromIndex(int(h.lastStatus.Load()))
}

// Ok reports whether LastStatus represents success, the boolean conversion
// spec.md describes as "status >= 0".
func (h *Handle) Ok() bool {
	return h.LastStatus() == KindOk
}

// HandleType classifies what an arbitrary OS file descriptor actually is,
// independent of which Handle variant (if any) wraps it -- the Go
// equivalent of uv_guess_handle's UV_HANDLE_TYPE_MAP.
type HandleType int

const (
	HandleTypeUnknown HandleType = iota
	HandleTypeFile
	HandleTypeTTY
	HandleTypePipe
	HandleTypeTCP
	HandleTypeUDP
)

func (t HandleType) String() string {
	switch t {
	case HandleTypeFile:
		return "file"
	case HandleTypeTTY:
		return "tty"
	case HandleTypePipe:
		return "pipe"
	case HandleTypeTCP:
		return "tcp"
	case HandleTypeUDP:
		return "udp"
	default:
		return "unknown"
	}
}

// GuessHandleType inspects fd directly via fstat/ioctl/getsockname, the way
// test/guess_handle.cpp uses uv_guess_handle(fileno(stdin)) to report what
// stdio actually is before any Handle wraps it.
func GuessHandleType(fd int) HandleType {
	return guessHandleType(fd)
}
