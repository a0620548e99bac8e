package uvcc

import "testing"

func TestQueueWorkRoundTrip(t *testing.T) {
	// §8 scenario 6: a work request whose task returns 42 yields 42 to the
	// completion callback, invoked exactly once on the loop thread, after
	// which loop.Run(DEFAULT) exits.
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	completions := 0
	var got any
	QueueWork(loop, func() (any, error) {
		return 42, nil
	}, func(r *Request, status ErrorKind, result any) {
		completions++
		got = result
		if status != KindOk {
			t.Errorf("status = %q, want KindOk", status)
		}
	})

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if completions != 1 {
		t.Errorf("completion fired %d times, want 1", completions)
	}
	if got != 42 {
		t.Errorf("result = %#v, want 42", got)
	}
}

func TestQueueWorkPropagatesError(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	var gotStatus ErrorKind
	QueueWork(loop, func() (any, error) {
		return nil, NewError("boom", KindEngineError, "task failed")
	}, func(r *Request, status ErrorKind, result any) {
		gotStatus = status
		loop.Stop()
	})

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotStatus != KindEngineError {
		t.Errorf("status = %q, want KindEngineError", gotStatus)
	}
}
