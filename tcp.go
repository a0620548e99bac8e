package uvcc

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/uvcc-go/uvcc/internal/engine"
	"github.com/uvcc-go/uvcc/internal/netutil"
)

// Tcp is a TCP stream handle: connecting client or listening/accepting
// server, sharing streamCore's read/backpressure and write dispatch.
type Tcp struct {
	*streamCore
}

// NewTcp constructs an unbound Tcp handle with a fresh, non-blocking
// socket of the given address family (unix.AF_INET or unix.AF_INET6).
func NewTcp(loop *Loop, family int) (*Tcp, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, NewEngineError("NewTcp", errnoOf(err), err)
	}
	h := newHandle(loop, KindTCP, fd)
	t := &Tcp{streamCore: newStreamCore(h)}
	return t, nil
}

func tcpFromFD(loop *Loop, fd int) *Tcp {
	h := newHandle(loop, KindTCP, fd)
	return &Tcp{streamCore: newStreamCore(h)}
}

// Bind assigns a local address.
func (t *Tcp) Bind(host string, port uint16) error {
	fd, err := t.Fileno()
	if err != nil {
		return err
	}
	sa, err := netutil.ParseHostPort(host, port)
	if err != nil {
		return WrapError("Bind", err)
	}
	if err := unix.Bind(fd, rawSockaddr(sa)); err != nil {
		return NewEngineError("Bind", errnoOf(err), err)
	}
	return nil
}

// Listen marks the socket as listening and registers cb for accept
// readiness, backlog entries deep.
func (t *Tcp) Listen(backlog int, cb ConnectionCallback) error {
	fd, err := t.Fileno()
	if err != nil {
		return err
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return NewEngineError("Listen", errnoOf(err), err)
	}
	return t.streamCore.Listen(cb)
}

// Accept accepts one pending connection off a listening Tcp, returning a
// new connected Tcp handle on the same loop.
func (t *Tcp) Accept() (*Tcp, error) {
	fd, err := t.Fileno()
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
	return tcpFromFD(t.loop, nfd), nil
}

// Connect begins connecting to host:port, invoking cb on completion.
// Non-blocking connect completion is observed as a Writable readiness
// event on the socket (the fd becomes writable once the handshake
// resolves, successfully or not).
func (t *Tcp) Connect(host string, port uint16, cb RequestCompletion) (*Request, error) {
	fd, err := t.Fileno()
	if err != nil {
		return nil, err
	}
	sa, err := netutil.ParseHostPort(host, port)
	if err != nil {
		return nil, WrapError("Connect", err)
	}
	r := newRequest(t.loop, KindConnect, t.Handle, cb)

	connErr := unix.Connect(fd, rawSockaddr(sa))
	if connErr == nil {
		t.setActive(true)
		r.complete(KindOk, nil)
		return r, nil
	}
	if connErr != unix.EINPROGRESS {
		r.complete(KindEngineError, nil)
		return r, nil
	}

	prevDispatch := t.dispatch
	t.setActive(true)
	t.dispatch = func(ev engine.IOEvents) {
		t.dispatch = prevDispatch
		status := KindOk
		if errno, serr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR); serr != nil || errno != 0 {
			status = KindEngineError
		}
		t.setStatus(status)
		r.complete(status, nil)
	}
	if err := t.loop.reactor.ModFD(fd, engine.Writable, t.id); err != nil {
		return r, WrapError("Connect", err)
	}
	return r, nil
}

// Nodelay enables or disables Nagle's algorithm on the underlying socket
// (TCP_NODELAY).
func (t *Tcp) Nodelay(enable bool) error {
	fd, err := t.Fileno()
	if err != nil {
		return err
	}
	v := 0
	if enable {
		v = 1
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v); err != nil {
		return NewEngineError("Nodelay", errnoOf(err), err)
	}
	return nil
}

// Keepalive enables or disables TCP keepalive probes, with delay as the
// idle-time-before-first-probe (SO_KEEPALIVE / TCP_KEEPIDLE).
func (t *Tcp) Keepalive(enable bool, delay time.Duration) error {
	fd, err := t.Fileno()
	if err != nil {
		return err
	}
	v := 0
	if enable {
		v = 1
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, v); err != nil {
		return NewEngineError("Keepalive", errnoOf(err), err)
	}
	if enable && delay > 0 {
		secs := int(delay / time.Second)
		if secs <= 0 {
			secs = 1
		}
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, secs); err != nil {
			return NewEngineError("Keepalive", errnoOf(err), err)
		}
	}
	return nil
}

// SimultaneousAccepts hints that this listening socket should be shared
// for load-balanced accepts across multiple listener instances bound to
// the same address (SO_REUSEPORT), the Linux stand-in for the original's
// Windows-only AcceptEx concurrency knob.
func (t *Tcp) SimultaneousAccepts(enable bool) error {
	fd, err := t.Fileno()
	if err != nil {
		return err
	}
	v := 0
	if enable {
		v = 1
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, v); err != nil {
		return NewEngineError("SimultaneousAccepts", errnoOf(err), err)
	}
	return nil
}

func rawSockaddr(sa netutil.SockAddr) unix.Sockaddr {
	ip, port := sa.IP()
	if ip4 := ip.To4(); ip4 != nil {
		var addr unix.SockaddrInet4
		copy(addr.Addr[:], ip4)
		addr.Port = int(port)
		return &addr
	}
	var addr unix.SockaddrInet6
	copy(addr.Addr[:], ip.To16())
	addr.Port = int(port)
	return &addr
}

// Close stops listening and deregisters the socket from the loop. The
// socket is closed once no other reference holds the handle: an active read
// keeps it open until ReadStop, a pending request until it completes.
func (t *Tcp) Close(cb CloseCallback) {
	t.mu.Lock()
	wasListening := t.listening
	t.listening = false
	t.mu.Unlock()
	t.closeHandle(cb)
	if wasListening {
		t.unref()
	}
}
