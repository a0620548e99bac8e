package uvcc

import (
	"errors"
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func TestErrnoOfExtractsRawErrno(t *testing.T) {
	if got := errnoOf(unix.EAGAIN); got != int(unix.EAGAIN) {
		t.Errorf("errnoOf(EAGAIN) = %d, want %d", got, int(unix.EAGAIN))
	}
	wrapped := errors.New("wrapped: " + unix.EBADF.Error())
	if got := errnoOf(wrapped); got != 0 {
		t.Errorf("errnoOf(non-errno) = %d, want 0", got)
	}
	if got := errnoOf(nil); got != 0 {
		t.Errorf("errnoOf(nil) = %d, want 0", got)
	}
}

func TestErrnoOfUnwrapsJoinedError(t *testing.T) {
	inner := unix.ENOENT
	outer := errors.Join(errors.New("context"), inner)
	if got := errnoOf(outer); got != int(unix.ENOENT) {
		t.Errorf("errnoOf(joined) = %d, want %d", got, int(unix.ENOENT))
	}
}

func TestGuessHandleTypeRegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "guess-handle")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	if got := GuessHandleType(int(f.Fd())); got != HandleTypeFile {
		t.Errorf("GuessHandleType(regular file) = %v, want %v", got, HandleTypeFile)
	}
}

func TestGuessHandleTypeUnixSocket(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	if got := GuessHandleType(fds[0]); got != HandleTypePipe {
		t.Errorf("GuessHandleType(unix socket) = %v, want %v", got, HandleTypePipe)
	}
}

func TestGuessHandleTypeInetSockets(t *testing.T) {
	streamFD, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socket(SOCK_STREAM): %v", err)
	}
	defer unix.Close(streamFD)
	if got := GuessHandleType(streamFD); got != HandleTypeTCP {
		t.Errorf("GuessHandleType(tcp socket) = %v, want %v", got, HandleTypeTCP)
	}

	dgramFD, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		t.Fatalf("Socket(SOCK_DGRAM): %v", err)
	}
	defer unix.Close(dgramFD)
	if got := GuessHandleType(dgramFD); got != HandleTypeUDP {
		t.Errorf("GuessHandleType(udp socket) = %v, want %v", got, HandleTypeUDP)
	}
}

func TestIsTTYFalseForRegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "not-a-tty")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	if IsTTY(int(f.Fd())) {
		t.Error("IsTTY(regular file) = true, want false")
	}
}
