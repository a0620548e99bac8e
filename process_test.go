package uvcc

import "testing"

func TestSpawnExitCallback(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	var gotExit, gotSignal int
	fired := false
	p, err := Spawn(loop, ProcessOptions{
		Path: "/bin/sh",
		Args: []string{"/bin/sh", "-c", "exit 7"},
		OnExit: func(proc *Process, exitStatus, termSignal int) {
			fired = true
			gotExit = exitStatus
			gotSignal = termSignal
			loop.Stop()
		},
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if p.Pid() <= 0 {
		t.Errorf("Pid() = %d, want positive", p.Pid())
	}

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !fired {
		t.Fatal("OnExit never fired")
	}
	if gotExit != 7 {
		t.Errorf("exitStatus = %d, want 7", gotExit)
	}
	if gotSignal != 0 {
		t.Errorf("termSignal = %d, want 0", gotSignal)
	}
}

func TestProcessKillNotRunning(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	done := make(chan struct{})
	p, err := Spawn(loop, ProcessOptions{
		Path: "/bin/sh",
		Args: []string{"/bin/sh", "-c", "exit 0"},
		OnExit: func(proc *Process, exitStatus, termSignal int) {
			close(done)
			loop.Stop()
		},
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	<-done

	if err := p.Kill(0); err != nil {
		// signal 0 just probes liveness; an already-reaped process may
		// report either outcome depending on OS timing, both acceptable.
		t.Logf("Kill(0) on exited process: %v", err)
	}
}
