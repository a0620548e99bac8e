package uvcc

import (
	"sync"

	"github.com/uvcc-go/uvcc/internal/engine"
	"golang.org/x/sys/unix"
)

// AllocCallback returns a Buffer the next read should fill, sized around
// suggested (§4.G on_alloc).
type AllocCallback func(suggested int) *Buffer

// ReadCallback receives the outcome of one read: nread > 0 is a byte count
// into buf, nread == 0 is a no-op, and status carries KindEndOfStream or
// another error kind when nread < 0 (§4.G on_read / §7).
type ReadCallback func(s *streamCore, buf *Buffer, nread int, status ErrorKind)

// ConnectionCallback fires on a listening stream when a peer is ready to
// be Accepted.
type ConnectionCallback func(s *streamCore, status ErrorKind)

// streamCore is embedded by Tcp, Pipe, and Tty: it implements the
// read/backpressure subsystem (§4.G) and the write dispatch (§4.H) shared
// by every byte-stream handle.
type streamCore struct {
	*Handle

	mu        sync.Mutex
	allocCB   AllocCallback
	readCB    ReadCallback
	connCB    ConnectionCallback
	reading   bool
	paused    bool
	listening bool

	out *outputQueue
}

func newStreamCore(h *Handle) *streamCore {
	s := &streamCore{Handle: h, out: newOutputQueue()}
	s.dispatch = s.onIOEvent
	return s
}

// ReadStart begins reading. Per §4.G, an empty alloc or read argument means
// "keep the previously registered one"; it is an error only if neither a new
// value nor a previously-registered one exists, checked independently for
// each of the two callback slots. Repeated calls stop-then-restart without
// double bumping the handle's refcount.
func (s *streamCore) ReadStart(alloc AllocCallback, cb ReadCallback) error {
	s.mu.Lock()
	wasReading := s.reading
	if alloc != nil {
		s.allocCB = alloc
	}
	if s.allocCB == nil {
		s.mu.Unlock()
		return NewError("ReadStart", KindInvalid, "no alloc callback registered")
	}
	if cb != nil {
		s.readCB = cb
	}
	if s.readCB == nil {
		s.mu.Unlock()
		return NewError("ReadStart", KindInvalid, "no read callback registered")
	}
	s.reading = true
	s.paused = false
	s.mu.Unlock()

	if !wasReading {
		s.retain()
	}
	s.updateInterest()
	s.updateActive()
	return nil
}

// ReadStop releases the reading-active reference exactly once; idempotent.
func (s *streamCore) ReadStop() {
	s.mu.Lock()
	wasReading := s.reading
	s.reading = false
	s.paused = false
	s.mu.Unlock()

	s.updateInterest()
	s.updateActive()
	if wasReading {
		s.unref()
	}
}

// ReadPause transitions to paused without dropping the reading-active
// reference when cond holds; a no-op otherwise.
func (s *streamCore) ReadPause(cond bool) {
	if !cond {
		return
	}
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	s.updateInterest()
}

// ReadResume un-pauses when cond holds; a no-op otherwise.
func (s *streamCore) ReadResume(cond bool) {
	if !cond {
		return
	}
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.updateInterest()
}

// Listen marks the stream as a listening socket, invoking cb whenever a
// peer is ready to Accept.
func (s *streamCore) Listen(cb ConnectionCallback) error {
	if cb == nil {
		return NewError("Listen", KindInvalid, "nil connection callback")
	}
	s.mu.Lock()
	s.connCB = cb
	s.listening = true
	s.mu.Unlock()
	s.retain()
	s.updateInterest()
	s.updateActive()
	return nil
}

// WriteQueueBytes reports the pending-byte total backpressure producers
// must compare against HighWaterMark/LowWaterMark (§4.G contract).
func (s *streamCore) WriteQueueBytes() uint64 {
	return s.out.pendingBytes.Load()
}

func (s *streamCore) updateActive() {
	s.mu.Lock()
	active := s.reading || s.listening || s.out.pendingBytes.Load() > 0
	s.mu.Unlock()
	s.setActive(active)
}

func (s *streamCore) updateInterest() {
	fd, err := s.Fileno()
	if err != nil {
		return
	}
	var events engine.IOEvents
	s.mu.Lock()
	if (s.reading && !s.paused) || s.listening {
		events |= engine.Readable
	}
	s.mu.Unlock()
	if s.out.hasPending() {
		events |= engine.Writable
	}
	_ = s.loop.reactor.ModFD(fd, events, s.id)
}

func (s *streamCore) onIOEvent(ev engine.IOEvents) {
	if ev&engine.Writable != 0 {
		s.out.flush(s)
		s.updateInterest()
		s.updateActive()
	}
	s.mu.Lock()
	listening := s.listening
	reading := s.reading && !s.paused
	s.mu.Unlock()
	if ev&engine.Readable != 0 {
		if listening {
			s.fireConnection(KindOk)
			return
		}
		if reading {
			s.doRead()
		}
	}
	if ev&(engine.Hangup|engine.ErrorCondition) != 0 && reading {
		s.doRead()
	}
}

func (s *streamCore) fireConnection(status ErrorKind) {
	s.mu.Lock()
	cb := s.connCB
	s.mu.Unlock()
	if cb != nil {
		cb(s, status)
	}
}

func (s *streamCore) doRead() {
	fd, err := s.Fileno()
	if err != nil {
		return
	}
	s.mu.Lock()
	alloc := s.allocCB
	cb := s.readCB
	s.mu.Unlock()
	if alloc == nil || cb == nil {
		return
	}
	buf := alloc(DefaultAllocSuggestion)
	buf.Retain()
	defer buf.Release()

	n, errno := unix.Read(fd, buf.Segment(0))
	switch {
	case errno == unix.EAGAIN:
		return
	case errno != nil:
		s.setStatus(KindEngineError)
		cb(s, buf, -1, KindEngineError)
		return
	case n == 0:
		s.setStatus(KindEndOfStream)
		cb(s, buf, -1, KindEndOfStream)
		return
	default:
		buf.SetLength(0, n)
		s.setStatus(KindOk)
		cb(s, buf, n, KindOk)
		if s.loop.observer != nil {
			s.loop.observer.ObserveRead(uint64(n), 0, true)
		}
		if s.loop.metrics != nil {
			s.loop.metrics.RecordRead(uint64(n), 0, true)
		}
	}
}

// Write submits buf to the stream's output queue; see output.go for the
// shared queueing/backpressure-accounting logic every handle variant uses.
func (s *streamCore) Write(buf *Buffer, cb RequestCompletion) *Request {
	r := newRequest(s.loop, KindWrite, s.Handle, cb)
	s.out.submit(s, r, buf)
	s.updateInterest()
	s.updateActive()
	return r
}

// TryWrite asks to complete immediately without queueing; returns
// KindWouldBlock if the queue is non-empty (§4.H).
func (s *streamCore) TryWrite(buf *Buffer) (int, error) {
	if s.out.hasPending() {
		return 0, NewError("TryWrite", KindWouldBlock, "output queue non-empty")
	}
	fd, err := s.Fileno()
	if err != nil {
		return 0, err
	}
	n, errno := unix.Write(fd, buf.Bytes())
	if errno == unix.EAGAIN {
		return 0, NewError("TryWrite", KindWouldBlock, "write would block")
	}
	if errno != nil {
		return 0, NewEngineError("TryWrite", errnoOf(errno), errno)
	}
	return n, nil
}

// Shutdown half-closes the write side once any queued writes drain.
func (s *streamCore) Shutdown(cb RequestCompletion) *Request {
	r := newRequest(s.loop, KindShutdown, s.Handle, cb)
	s.out.submitShutdown(s, r)
	s.updateInterest()
	s.updateActive()
	return r
}
