package uvcc

import "testing"

func TestCheckFiresAfterPoll(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	order := []string{}

	prep := NewPrepare(loop)
	check := NewCheck(loop)
	idle := NewIdle(loop)

	_ = prep.Start(func(*Prepare) { order = append(order, "prepare") })
	_ = check.Start(func(*Check) { order = append(order, "check") })
	_ = idle.Start(func(*Idle) {
		order = append(order, "idle")
		prep.Stop()
		check.Stop()
		idle.Stop()
		prep.Close(nil)
		check.Close(nil)
		idle.Close(nil)
	})

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("order = %v, want 3 entries", order)
	}
	if order[0] != "prepare" || order[1] != "check" || order[2] != "idle" {
		t.Errorf("order = %v, want [prepare check idle]", order)
	}
}

func TestCheckStop(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	c := NewCheck(loop)
	fires := 0
	_ = c.Start(func(*Check) { fires++ })
	c.Stop()

	if err := loop.Run(RunNoWait); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fires != 0 {
		t.Errorf("fires = %d, want 0 after Stop", fires)
	}
	c.Close(nil)
}
