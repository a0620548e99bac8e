package uvcc

import (
	"sync"
	"time"

	"github.com/uvcc-go/uvcc/internal/engine"
)

// TimerCallback fires when the timer expires.
type TimerCallback func(*Timer)

// Timer is a one-shot-or-repeating timer handle backed by the reactor's
// timerfd registration (§6 named wrappers).
type Timer struct {
	*Handle

	mu      sync.Mutex
	timerID uint64
	repeat  time.Duration
	cb      TimerCallback
}

// NewTimer constructs an inactive Timer on loop.
func NewTimer(loop *Loop) *Timer {
	t := &Timer{Handle: newHandle(loop, KindTimer, -1)}
	t.dispatch = t.onFire
	return t
}

// Start arms the timer to fire after timeout, then every repeat thereafter
// (repeat == 0 means one-shot).
func (t *Timer) Start(timeout, repeat time.Duration, cb TimerCallback) error {
	if cb == nil {
		return NewError("Start", KindInvalid, "nil callback")
	}
	t.mu.Lock()
	prevID := t.timerID
	t.cb = cb
	t.repeat = repeat
	t.timerID = 0
	t.mu.Unlock()
	if prevID != 0 {
		_ = t.loop.reactor.CancelTimer(prevID)
	}

	id, err := t.loop.reactor.ArmTimer(t.id, timeout)
	if err != nil {
		return WrapError("Start", err)
	}
	t.mu.Lock()
	t.timerID = id
	t.mu.Unlock()
	t.setActive(true)
	return nil
}

// Stop disarms the timer.
func (t *Timer) Stop() error {
	t.mu.Lock()
	id := t.timerID
	t.mu.Unlock()
	t.setActive(false)
	if id == 0 {
		return nil
	}
	if err := t.loop.reactor.CancelTimer(id); err != nil {
		return WrapError("Stop", err)
	}
	return nil
}

// Again stops the timer (if active) and restarts it using the last
// configured repeat interval as both the new timeout and repeat, the same
// "restart from now" semantics as the original's uv_timer_again.
func (t *Timer) Again() error {
	t.mu.Lock()
	repeat := t.repeat
	cb := t.cb
	t.mu.Unlock()
	if cb == nil {
		return NewError("Again", KindInvalid, "timer was never started")
	}
	_ = t.Stop()
	return t.Start(repeat, repeat, cb)
}

// SetRepeat changes the repeat interval used for future re-arms; it does
// not affect a currently pending fire.
func (t *Timer) SetRepeat(repeat time.Duration) {
	t.mu.Lock()
	t.repeat = repeat
	t.mu.Unlock()
}

// RepeatInterval returns the repeat interval Start/SetRepeat/Again last
// configured, observed by test scenarios that mutate it from within cb.
func (t *Timer) RepeatInterval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.repeat
}

// Close closes the handle, cancelling any pending fire first.
func (t *Timer) Close(cb CloseCallback) {
	_ = t.Stop()
	t.closeHandle(cb)
}

func (t *Timer) onFire(engine.IOEvents) {
	t.mu.Lock()
	cb := t.cb
	prevID := t.timerID
	t.timerID = 0
	t.mu.Unlock()

	// The fd that just fired is spent (timerfd_settime was one-shot); it
	// must be cancelled before arming a replacement or every fire would
	// leak one timerfd.
	if prevID != 0 {
		_ = t.loop.reactor.CancelTimer(prevID)
	}

	if cb != nil {
		cb(t)
	}

	// repeat is re-read after cb returns, so a SetRepeat call made from
	// inside the callback takes effect on the very next re-arm rather than
	// one fire late. A cb that called Start has already armed its own next
	// fire, and one that called Stop or Close has ended the run; neither is
	// re-armed or deactivated here.
	t.mu.Lock()
	repeat := t.repeat
	restarted := t.timerID != 0
	t.mu.Unlock()
	if restarted || !t.IsActive() {
		return
	}

	if repeat > 0 {
		id, err := t.loop.reactor.ArmTimer(t.id, repeat)
		if err == nil {
			t.mu.Lock()
			t.timerID = id
			t.mu.Unlock()
		}
	} else {
		t.setActive(false)
	}
}
