package uvcc

import "testing"

func TestRequestCancelBeforeCompletion(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	var gotStatus ErrorKind
	req := QueueWork(loop, func() (any, error) {
		return nil, nil
	}, func(r *Request, status ErrorKind, result any) {
		gotStatus = status
		loop.Stop()
	})
	if err := req.Cancel(); err != nil {
		t.Fatalf("Cancel before completion: %v", err)
	}

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotStatus != KindOk {
		t.Errorf("status = %q, want KindOk", gotStatus)
	}
}

func TestRequestCancelAfterCompletionFails(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	var req *Request
	QueueWork(loop, func() (any, error) {
		return nil, nil
	}, func(r *Request, status ErrorKind, result any) {
		req = r
		loop.Stop()
	})

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if err := req.Cancel(); err == nil {
		t.Error("Cancel on a completed request should fail")
	} else if !IsKind(err, KindInvalid) {
		t.Errorf("error kind = %v, want KindInvalid", err)
	}
}

func TestRequestKindAndHandle(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	tcp, err := NewTcp(loop, AFInet4)
	if err != nil {
		t.Fatalf("NewTcp: %v", err)
	}
	defer tcp.Close(nil)

	r := tcp.Write(WrapBytes([]byte("x")), nil)
	if r.Kind() != KindWrite {
		t.Errorf("Kind() = %v, want KindWrite", r.Kind())
	}
	if r.Handle() != tcp.Handle {
		t.Error("Handle() should return the stream's underlying handle")
	}
}
