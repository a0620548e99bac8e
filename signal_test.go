package uvcc

import (
	"syscall"
	"testing"

	"golang.org/x/sys/unix"
)

func TestSignalDelivery(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	s := NewSignal(loop)
	fired := false
	var got int
	if err := s.Start(int(unix.SIGUSR1), func(sig *Signal, n int) {
		fired = true
		got = n
		loop.Stop()
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close(nil)

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	if err := loop.Run(RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !fired {
		t.Fatal("signal callback never fired")
	}
	if got != int(unix.SIGUSR1) {
		t.Errorf("got signal %d, want %d", got, int(unix.SIGUSR1))
	}
}

func TestSignalStopIdempotent(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	s := NewSignal(loop)
	if err := s.Start(int(unix.SIGUSR2), func(*Signal, int) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("first Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop should be idempotent: %v", err)
	}
	s.Close(nil)
}
