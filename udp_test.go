package uvcc

import (
	"testing"

	"github.com/uvcc-go/uvcc/internal/netutil"
)

func TestUdpSendRecvRoundTrip(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	server, err := NewUdp(loop, AFInet4)
	if err != nil {
		t.Fatalf("NewUdp server: %v", err)
	}
	defer server.Close(nil)
	if err := server.Bind("127.0.0.1", 54322); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	client, err := NewUdp(loop, AFInet4)
	if err != nil {
		t.Fatalf("NewUdp client: %v", err)
	}
	defer client.Close(nil)
	if err := client.Bind("127.0.0.1", 0); err != nil {
		t.Fatalf("Bind client: %v", err)
	}

	var gotPayload []byte
	server.RecvStart(func(suggested int) *Buffer {
		return NewBuffer(suggested)
	}, func(u *Udp, buf *Buffer, nread int, status ErrorKind, from netutil.SockAddr) {
		if status != KindOk {
			t.Errorf("recv status = %q, want KindOk", status)
		}
		gotPayload = append(gotPayload, buf.Segment(0)[:nread]...)
		u.RecvStop()
		loop.Stop()
	})

	dest := netutil.NewSockAddrIn4([]byte{127, 0, 0, 1}, 54322)
	client.Send(WrapBytes([]byte("ping")), dest, func(r *Request, status ErrorKind, result any) {
		if status != KindOk {
			t.Errorf("send status = %q, want KindOk", status)
		}
	})

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(gotPayload) != "ping" {
		t.Errorf("received = %q, want %q", gotPayload, "ping")
	}
}

func TestUdpWriteQueueBytesInitiallyZero(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	u, err := NewUdp(loop, AFInet4)
	if err != nil {
		t.Fatalf("NewUdp: %v", err)
	}
	defer u.Close(nil)

	if got := u.WriteQueueBytes(); got != 0 {
		t.Errorf("WriteQueueBytes() = %d, want 0", got)
	}
}
