package uvcc

import "testing"

func TestLeakCheckPassesOnEmptyLoop(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()
	LeakCheck(t, loop)
}

func TestRunUntilIdleDrainsIdleHandle(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	idle := NewIdle(loop)
	fires := 0
	_ = idle.Start(func(i *Idle) {
		fires++
		if fires >= 2 {
			i.Stop()
			i.Close(nil)
		}
	})

	RunUntilIdle(t, loop, 100)

	if fires != 2 {
		t.Errorf("fires = %d, want 2", fires)
	}
	LeakCheck(t, loop)
}
