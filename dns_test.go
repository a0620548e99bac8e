package uvcc

import "testing"

func TestGetAddrInfoSyncPath(t *testing.T) {
	// §8 scenario 5: an empty completion callback makes the call
	// synchronous; status reflects success and the request's payload
	// accessor carries a non-nil resolved list.
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	r := GetAddrInfo(loop, "localhost", 80, nil)
	if r.Status() != KindOk {
		t.Fatalf("Status() = %q, want KindOk", r.Status())
	}
	info, ok := r.Payload().(*AddrInfo)
	if !ok || info == nil {
		t.Fatalf("Payload() = %#v, want non-nil *AddrInfo", r.Payload())
	}
	if len(info.Addrs) == 0 {
		t.Error("expected at least one resolved address for localhost")
	}
}

func TestGetAddrInfoAsyncPath(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	var gotStatus ErrorKind
	var gotInfo *AddrInfo
	GetAddrInfo(loop, "localhost", 80, func(r *Request, status ErrorKind, info *AddrInfo) {
		gotStatus = status
		gotInfo = info
		loop.Stop()
	})

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotStatus != KindOk {
		t.Errorf("status = %q, want KindOk", gotStatus)
	}
	if gotInfo == nil || len(gotInfo.Addrs) == 0 {
		t.Error("expected a resolved AddrInfo with at least one address")
	}
}
