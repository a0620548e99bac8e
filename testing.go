package uvcc

import "testing"

// LeakCheck fails t if loop has any handle or request still outstanding.
// Call it at the end of a test after Run has returned, the same way the
// original's test suite asserts uv_loop_close succeeds cleanly.
func LeakCheck(t *testing.T, loop *Loop) {
	t.Helper()
	loop.mu.Lock()
	handles := len(loop.handles)
	requests := len(loop.requests)
	loop.mu.Unlock()
	if handles != 0 {
		t.Errorf("leak check: %d handle(s) still registered", handles)
	}
	if requests != 0 {
		t.Errorf("leak check: %d request(s) still outstanding", requests)
	}
}

// RunUntilIdle drives loop with RunNoWait until it reports no more
// pending events, a convenience for tests that want to pump the loop
// without relying on Alive() eventually going false on its own.
func RunUntilIdle(t *testing.T, loop *Loop, maxIterations int) {
	t.Helper()
	for i := 0; i < maxIterations && loop.Alive(); i++ {
		if err := loop.Run(RunNoWait); err != nil {
			t.Fatalf("RunUntilIdle: %v", err)
		}
	}
}
