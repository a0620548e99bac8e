package uvcc

import (
	"golang.org/x/sys/unix"
)

// Pipe is a stream handle over an AF_UNIX socket or an anonymous pipe,
// sharing streamCore's read/backpressure and write dispatch.
type Pipe struct {
	*streamCore
}

// NewPipe constructs an unbound Pipe handle with a fresh, non-blocking
// AF_UNIX SOCK_STREAM socket.
func NewPipe(loop *Loop) (*Pipe, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, NewEngineError("NewPipe", errnoOf(err), err)
	}
	h := newHandle(loop, KindPipe, fd)
	return &Pipe{streamCore: newStreamCore(h)}, nil
}

// pipeFromFD wraps an already-open, non-blocking fd (e.g. one half of an
// anonymous pipe created with PipePair, or an accepted AF_UNIX peer) as a
// Pipe handle.
func pipeFromFD(loop *Loop, fd int) *Pipe {
	h := newHandle(loop, KindPipe, fd)
	return &Pipe{streamCore: newStreamCore(h)}
}

// Open wraps an already-open fd (a stdio descriptor, an inherited pipe
// from a parent process, or any other fd a caller wants to drive through
// streamCore's read/write machinery) as a Pipe handle on loop. fd is put
// into non-blocking mode as part of the wrap, the classic libuv
// "uv_pipe_open(fd)" idiom for taking over an fd handed down at process
// start.
func Open(loop *Loop, fd int) (*Pipe, error) {
	if err := setNonblock(fd); err != nil {
		return nil, WrapError("Open", err)
	}
	return pipeFromFD(loop, fd), nil
}

// PipePair creates a connected pair of anonymous, non-blocking pipe
// handles on loop, analogous to the original's uv_pipe pair constructor
// used for cross-process or in-process byte-stream plumbing.
func PipePair(loop *Loop) (*Pipe, *Pipe, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, NewEngineError("PipePair", errnoOf(err), err)
	}
	return pipeFromFD(loop, fds[0]), pipeFromFD(loop, fds[1]), nil
}

// Bind binds the pipe to a filesystem path (AF_UNIX).
func (p *Pipe) Bind(path string) error {
	fd, err := p.Fileno()
	if err != nil {
		return err
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		return NewEngineError("Bind", errnoOf(err), err)
	}
	return nil
}

// Listen marks the pipe as listening for incoming AF_UNIX connections.
func (p *Pipe) Listen(backlog int, cb ConnectionCallback) error {
	fd, err := p.Fileno()
	if err != nil {
		return err
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return NewEngineError("Listen", errnoOf(err), err)
	}
	return p.streamCore.Listen(cb)
}

// Accept accepts one pending connection off a listening Pipe.
func (p *Pipe) Accept() (*Pipe, error) {
	fd, err := p.Fileno()
	if err != nil {
		return nil, err
	}
	nfd, _, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN {
			return nil, NewError("Accept", KindWouldBlock, "no pending connection")
		}
		return nil, NewEngineError("Accept", errnoOf(err), err)
	}
	return pipeFromFD(p.loop, nfd), nil
}

// Connect connects to a filesystem-path AF_UNIX endpoint.
func (p *Pipe) Connect(path string, cb RequestCompletion) (*Request, error) {
	fd, err := p.Fileno()
	if err != nil {
		return nil, err
	}
	r := newRequest(p.loop, KindConnect, p.Handle, cb)
	err = unix.Connect(fd, &unix.SockaddrUnix{Name: path})
	if err != nil && err != unix.EINPROGRESS {
		r.complete(KindEngineError, nil)
		return r, nil
	}
	p.setActive(true)
	r.complete(KindOk, nil)
	return r, nil
}

// Close stops listening and deregisters the socket from the loop. The
// socket is closed once no other reference holds the handle: an active read
// keeps it open until ReadStop, a pending request until it completes.
func (p *Pipe) Close(cb CloseCallback) {
	p.mu.Lock()
	wasListening := p.listening
	p.listening = false
	p.mu.Unlock()
	p.closeHandle(cb)
	if wasListening {
		p.unref()
	}
}
