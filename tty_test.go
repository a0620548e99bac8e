package uvcc

import (
	"fmt"
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

// openPtyPair opens a fresh pseudo-terminal pair for NewTty to wrap,
// skipping the test when the sandbox has no /dev/ptmx.
func openPtyPair(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	ptmx, err := os.OpenFile("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		t.Skipf("no /dev/ptmx available: %v", err)
	}
	n, err := unix.IoctlGetInt(int(ptmx.Fd()), unix.TIOCGPTN)
	if err != nil {
		t.Skipf("TIOCGPTN unavailable: %v", err)
	}
	if err := unix.IoctlSetPointerInt(int(ptmx.Fd()), unix.TIOCSPTLCK, 0); err != nil {
		t.Skipf("TIOCSPTLCK unavailable: %v", err)
	}
	pts, err := os.OpenFile(fmt.Sprintf("/dev/pts/%d", n), unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		t.Skipf("cannot open pts slave: %v", err)
	}
	return ptmx, pts
}

func TestNewTtyRejectsNonTerminal(t *testing.T) {
	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	_, err = NewTty(loop, int(r.Fd()))
	if err == nil {
		t.Fatal("expected NewTty on a plain pipe fd to fail")
	}
	if !IsKind(err, KindInvalid) {
		t.Errorf("error kind = %v, want KindInvalid", err)
	}
}

func TestTtyWindowSizeAndModeRoundTrip(t *testing.T) {
	ptmx, pts := openPtyPair(t)
	defer ptmx.Close()
	defer pts.Close()

	loop, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer loop.Close()

	tty, err := NewTty(loop, int(pts.Fd()))
	if err != nil {
		t.Fatalf("NewTty: %v", err)
	}
	defer tty.Close(nil)

	if _, _, err := tty.WindowSize(); err != nil {
		t.Errorf("WindowSize: %v", err)
	}

	if err := tty.SetMode(TtyModeRaw); err != nil {
		t.Fatalf("SetMode(raw): %v", err)
	}
	if err := tty.SetMode(TtyModeNormal); err != nil {
		t.Fatalf("SetMode(normal): %v", err)
	}
}
