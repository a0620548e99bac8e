package uvcc

import (
	"testing"
	"time"
)

func TestTimerRepeatSequence(t *testing.T) {
	// §8 scenario 4: timeout=0, repeat=1000ms, divide by 3 each fire,
	// stop after 10 fires. Observed repeat_interval() values before each
	// mutation: 1000, 333, 111, 37, 12, 4, 1, 0, 0, 0.
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	timer := NewTimer(loop)
	var observed []time.Duration
	fires := 0

	// The scenario's literal values assume libuv's millisecond-granularity
	// repeat field, quantized here via integer-millisecond division. A
	// repeat of 0 means one-shot (Start's documented convention), so every
	// fire re-arms through an explicit Start call from the callback rather
	// than the timer's own auto-rearm; that is what carries the sequence
	// through the zero-repeat fires at the end.
	var onFire TimerCallback
	onFire = func(tm *Timer) {
		fires++
		observed = append(observed, tm.RepeatInterval())
		if fires >= 10 {
			_ = tm.Stop()
			tm.Close(nil)
			loop.Stop()
			return
		}
		ms := tm.RepeatInterval() / time.Millisecond
		next := (ms / 3) * time.Millisecond
		if startErr := tm.Start(next, next, onFire); startErr != nil {
			t.Errorf("re-Start: %v", startErr)
			loop.Stop()
		}
	}
	err = timer.Start(0, 1000*time.Millisecond, onFire)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []time.Duration{1000, 333, 111, 37, 12, 4, 1, 0, 0, 0}
	if len(observed) != len(want) {
		t.Fatalf("fires = %d, want %d", len(observed), len(want))
	}
	for i, w := range want {
		if observed[i] != w*time.Millisecond {
			t.Errorf("fire %d: repeat_interval = %v, want %v", i, observed[i], w*time.Millisecond)
		}
	}
}

func TestTimerSetRepeatAppliesOnNextFire(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	timer := NewTimer(loop)
	var observed []time.Duration
	timer.Start(0, 20*time.Millisecond, func(tm *Timer) {
		observed = append(observed, tm.RepeatInterval())
		if len(observed) == 1 {
			tm.SetRepeat(5 * time.Millisecond)
			return
		}
		_ = tm.Stop()
		tm.Close(nil)
		loop.Stop()
	})

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(observed) != 2 {
		t.Fatalf("fires = %d, want 2", len(observed))
	}
	if observed[0] != 20*time.Millisecond {
		t.Errorf("fire 0: repeat_interval = %v, want 20ms", observed[0])
	}
	if observed[1] != 5*time.Millisecond {
		t.Errorf("fire 1: repeat_interval = %v, want 5ms (SetRepeat from within cb should apply to the very next re-arm)", observed[1])
	}
}

func TestTimerStopIdempotent(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	timer := NewTimer(loop)
	if err := timer.Start(time.Hour, 0, func(*Timer) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := timer.Stop(); err != nil {
		t.Errorf("first Stop: %v", err)
	}
	if err := timer.Stop(); err != nil {
		t.Errorf("second Stop should be idempotent, got: %v", err)
	}
	timer.Close(nil)
}
