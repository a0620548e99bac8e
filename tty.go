package uvcc

import (
	"golang.org/x/sys/unix"
)

// TtyMode selects raw vs. cooked terminal discipline.
type TtyMode int

const (
	// TtyModeNormal leaves the terminal's existing line discipline alone.
	TtyModeNormal TtyMode = iota
	// TtyModeRaw puts the terminal into raw (unbuffered, unechoed) mode.
	TtyModeRaw
)

// Tty wraps an already-open terminal file descriptor (stdio or a pty) as
// a stream handle, sharing streamCore's read/backpressure and write
// dispatch with Tcp and Pipe.
type Tty struct {
	*streamCore
	savedTermios *unix.Termios
}

// IsTTY reports whether fd refers to a terminal device, the same probe
// NewTty performs before wrapping it, built on GuessHandleType.
func IsTTY(fd int) bool {
	return GuessHandleType(fd) == HandleTypeTTY
}

// NewTty wraps fd (which must refer to a terminal device) as a Tty
// handle. The caller owns fd's lifetime up to this call; Close releases
// it like any other stream handle.
func NewTty(loop *Loop, fd int) (*Tty, error) {
	if !IsTTY(fd) {
		return nil, NewError("NewTty", KindInvalid, "fd is not a terminal")
	}
	if err := setNonblock(fd); err != nil {
		return nil, WrapError("NewTty", err)
	}
	h := newHandle(loop, KindTTY, fd)
	return &Tty{streamCore: newStreamCore(h)}, nil
}

// SetMode switches the terminal between normal and raw discipline,
// restoring the previous termios when switching back to normal.
func (t *Tty) SetMode(mode TtyMode) error {
	fd, err := t.Fileno()
	if err != nil {
		return err
	}
	switch mode {
	case TtyModeRaw:
		cur, err := unix.IoctlGetTermios(fd, unix.TCGETS)
		if err != nil {
			return NewEngineError("SetMode", errnoOf(err), err)
		}
		if t.savedTermios == nil {
			saved := *cur
			t.savedTermios = &saved
		}
		raw := *cur
		raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
		raw.Oflag &^= unix.OPOST
		raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
		raw.Cflag &^= unix.CSIZE | unix.PARENB
		raw.Cflag |= unix.CS8
		raw.Cc[unix.VMIN] = 1
		raw.Cc[unix.VTIME] = 0
		if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
			return NewEngineError("SetMode", errnoOf(err), err)
		}
	case TtyModeNormal:
		if t.savedTermios != nil {
			if err := unix.IoctlSetTermios(fd, unix.TCSETS, t.savedTermios); err != nil {
				return NewEngineError("SetMode", errnoOf(err), err)
			}
			t.savedTermios = nil
		}
	}
	return nil
}

// WindowSize reports the terminal's current size in columns and rows.
func (t *Tty) WindowSize() (width, height int, err error) {
	fd, ferr := t.Fileno()
	if ferr != nil {
		return 0, 0, ferr
	}
	ws, gerr := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if gerr != nil {
		return 0, 0, NewEngineError("WindowSize", errnoOf(gerr), gerr)
	}
	return int(ws.Col), int(ws.Row), nil
}

// Close restores normal terminal mode (if SetMode(Raw) was used) and
// closes the handle. The fd itself is not unlinked from the filesystem,
// matching how stdio ttys are typically shared with the owning process.
func (t *Tty) Close(cb CloseCallback) {
	_ = t.SetMode(TtyModeNormal)
	t.closeHandle(cb)
}
