package uvcc

import (
	"sync"

	"github.com/uvcc-go/uvcc/internal/engine"
)

// SignalCallback fires when the watched POSIX signal is delivered.
type SignalCallback func(*Signal, int)

// Signal is a handle that reports POSIX signal delivery through the
// reactor's signalfd registration rather than Go's own signal.Notify,
// keeping delivery on the loop thread like every other callback (§6).
type Signal struct {
	*Handle
	mu  sync.Mutex
	sig int
	cb  SignalCallback
}

// NewSignal constructs an inactive Signal handle on loop.
func NewSignal(loop *Loop) *Signal {
	s := &Signal{Handle: newHandle(loop, KindSignal, -1)}
	s.dispatch = s.onFire
	return s
}

// Start begins watching sig, invoking cb on each delivery.
func (s *Signal) Start(sig int, cb SignalCallback) error {
	if cb == nil {
		return NewError("Start", KindInvalid, "nil callback")
	}
	s.mu.Lock()
	s.sig = sig
	s.cb = cb
	s.mu.Unlock()
	if err := s.loop.reactor.ArmSignal(sig, s.id); err != nil {
		return WrapError("Start", err)
	}
	s.setActive(true)
	return nil
}

// Stop stops watching the signal.
func (s *Signal) Stop() error {
	s.mu.Lock()
	sig := s.sig
	s.mu.Unlock()
	s.setActive(false)
	if err := s.loop.reactor.DisarmSignal(sig, s.id); err != nil {
		return WrapError("Stop", err)
	}
	return nil
}

// Close closes the handle, disarming the signal first.
func (s *Signal) Close(cb CloseCallback) {
	_ = s.Stop()
	s.closeHandle(cb)
}

func (s *Signal) onFire(engine.IOEvents) {
	s.mu.Lock()
	cb := s.cb
	sig := s.sig
	s.mu.Unlock()
	if cb != nil {
		cb(s, sig)
	}
}
