package uvcc

import "testing"

func TestOutputQueueDrainsAndCompletes(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	src, dst, err := PipePair(loop)
	if err != nil {
		t.Fatalf("PipePair: %v", err)
	}
	defer src.Close(nil)
	defer dst.Close(nil)

	completed := false
	r := src.Write(WrapBytes([]byte("queued")), func(req *Request, status ErrorKind, result any) {
		completed = true
		if status != KindOk {
			t.Errorf("status = %q, want KindOk", status)
		}
		loop.Stop()
	})
	if r.Kind() != KindWrite {
		t.Errorf("Kind() = %v, want KindWrite", r.Kind())
	}

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !completed {
		t.Error("write completion never fired")
	}
	if got := src.WriteQueueBytes(); got != 0 {
		t.Errorf("WriteQueueBytes() = %d, want 0 once drained", got)
	}
}

func TestOutputQueueShutdownWaitsForDrain(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	src, dst, err := PipePair(loop)
	if err != nil {
		t.Fatalf("PipePair: %v", err)
	}
	defer src.Close(nil)
	defer dst.Close(nil)

	var order []string
	src.Write(WrapBytes([]byte("payload")), func(req *Request, status ErrorKind, result any) {
		order = append(order, "write")
	})
	src.Shutdown(func(req *Request, status ErrorKind, result any) {
		order = append(order, "shutdown")
		loop.Stop()
	})

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(order) != 2 || order[0] != "write" || order[1] != "shutdown" {
		t.Errorf("order = %v, want [write shutdown]", order)
	}
}
