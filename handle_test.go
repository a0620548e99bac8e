package uvcc

import "testing"

func TestIdleFiresOncePerIteration(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	idle := NewIdle(loop)
	fires := 0
	if err := idle.Start(func(i *Idle) {
		fires++
		if fires >= 3 {
			i.Stop()
			i.Close(nil)
		}
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fires != 3 {
		t.Errorf("fires = %d, want 3", fires)
	}
}

func TestHandleCloseCallbackFiresExactlyOnce(t *testing.T) {
	// Invariant 1: the destroy callback fires exactly once, only after
	// refcount reaches zero.
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	idle := NewIdle(loop)
	closes := 0
	idle.Close(func(*Handle) { closes++ })
	idle.Close(func(*Handle) { closes++ }) // idempotent: must not fire again

	if closes != 1 {
		t.Errorf("close callback fired %d times, want 1", closes)
	}
}

func TestHandleRefUnref(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	idle := NewIdle(loop)
	if !idle.HasRef() {
		t.Error("newly constructed handle should start ref'd")
	}
	idle.Unref()
	if idle.HasRef() {
		t.Error("HasRef should be false after Unref")
	}
	idle.Ref()
	if !idle.HasRef() {
		t.Error("HasRef should be true after Ref")
	}
	idle.Close(nil)
}

func TestAsyncSendCoalescesAndWakesLoop(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	fires := 0
	async, err := NewAsync(loop, func(a *Async) {
		fires++
		a.Close(nil)
	})
	if err != nil {
		t.Fatalf("NewAsync: %v", err)
	}

	async.Send()
	async.Send() // coalesced with the first
	async.Send()

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fires != 1 {
		t.Errorf("async callback fired %d times, want 1 (coalesced)", fires)
	}
}

func TestLoopAliveReflectsActiveHandles(t *testing.T) {
	// Invariant 7: a loop referenced by a live handle or request is not
	// considered done.
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	if loop.Alive() {
		t.Error("freshly constructed loop with no handles should not be alive")
	}

	idle := NewIdle(loop)
	_ = idle.Start(func(*Idle) {})
	if !loop.Alive() {
		t.Error("loop with an active, ref'd handle should be alive")
	}
	idle.Close(nil)
}

func TestLoopWalkVisitsAllHandles(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	a := NewIdle(loop)
	b := NewIdle(loop)
	seen := map[*Handle]bool{}
	loop.Walk(func(h *Handle) { seen[h] = true })

	if !seen[a.Handle] || !seen[b.Handle] {
		t.Error("Walk should visit every registered handle")
	}
	a.Close(nil)
	b.Close(nil)
}
