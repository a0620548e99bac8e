package uvcc

import (
	"testing"
	"time"
)

func TestRunNoWaitReturnsAfterOneIteration(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	// A still-active timer would keep RunDefault blocking, but RunNoWait
	// must return after exactly one non-blocking poll regardless.
	timer := NewTimer(loop)
	if err := timer.Start(0, 0, func(*Timer) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer timer.Close(nil)

	if err := loop.Run(RunNoWait); err != nil {
		t.Fatalf("Run(RunNoWait): %v", err)
	}
}

func TestRunOnceFiresCheckExactlyOnce(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	check := NewCheck(loop)
	fires := 0
	_ = check.Start(func(*Check) { fires++ })
	defer check.Close(nil)
	defer check.Stop()

	if err := loop.Run(RunOnce); err != nil {
		t.Fatalf("Run(RunOnce): %v", err)
	}
	if fires != 1 {
		t.Errorf("fires = %d, want 1", fires)
	}
}

func TestRunRejectsReentry(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	var inner error
	idle := NewIdle(loop)
	_ = idle.Start(func(i *Idle) {
		inner = loop.Run(RunDefault)
		i.Stop()
		i.Close(nil)
	})

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("outer Run: %v", err)
	}
	if inner == nil {
		t.Error("expected nested Run call to return an error")
	}
}

func TestLoopKeepAliveBlocksRunWithNoOtherWork(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	if loop.Alive() {
		t.Fatal("a fresh loop with no handles should not be Alive")
	}

	loop.KeepAlive(true)
	if !loop.Alive() {
		t.Fatal("Alive() should be true once KeepAlive(true) pins the loop")
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run(RunDefault) }()

	// Give Run a moment to actually start blocking before disabling the
	// pin; then Stop forces it to return so the goroutine doesn't linger.
	time.Sleep(20 * time.Millisecond)
	loop.KeepAlive(false)
	if loop.Alive() {
		t.Error("Alive() should be false once the keep-alive pin is released")
	}
	loop.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run never returned after Stop")
	}
}

func TestDefaultLoopSingleton(t *testing.T) {
	l1, err := DefaultLoop()
	if err != nil {
		t.Fatalf("DefaultLoop: %v", err)
	}
	l2, err := DefaultLoop()
	if err != nil {
		t.Fatalf("DefaultLoop: %v", err)
	}
	if l1 != l2 {
		t.Error("DefaultLoop should return the same instance every call")
	}
}
