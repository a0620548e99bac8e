package uvcc

import (
	"container/list"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/uvcc-go/uvcc/internal/engine"
	"github.com/uvcc-go/uvcc/internal/netutil"
)

// UdpRecvCallback receives one datagram: nread (or a negative status),
// the buffer it landed in, and the sender's address.
type UdpRecvCallback func(u *Udp, buf *Buffer, nread int, status ErrorKind, from netutil.SockAddr)

type pendingDatagram struct {
	req  *Request
	buf  *Buffer
	dest netutil.SockAddr
}

// Udp is a datagram handle. Unlike Tcp/Pipe/Tty it does not embed
// streamCore: §4.H dispatches udp writes as datagram-send rather than
// the stream byte-queue write path, and reads are message-oriented with
// no partial-read state to track.
type Udp struct {
	*Handle

	mu      sync.Mutex
	allocCB AllocCallback
	recvCB  UdpRecvCallback
	reading bool

	sendMu  sync.Mutex
	sendQ   list.List // of *pendingDatagram
	pending uint64
}

// NewUdp constructs an unbound Udp handle with a fresh, non-blocking
// socket of the given address family.
func NewUdp(loop *Loop, family int) (*Udp, error) {
	fd, err := unix.Socket(family, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_UDP)
	if err != nil {
		return nil, NewEngineError("NewUdp", errnoOf(err), err)
	}
	h := newHandle(loop, KindUDP, fd)
	u := &Udp{Handle: h}
	u.dispatch = u.onIOEvent
	return u, nil
}

// Bind assigns a local address.
func (u *Udp) Bind(host string, port uint16) error {
	fd, err := u.Fileno()
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

// RecvStart begins delivering incoming datagrams to cb.
func (u *Udp) RecvStart(alloc AllocCallback, cb UdpRecvCallback) error {
	u.mu.Lock()
	was := u.reading
	if alloc != nil {
		u.allocCB = alloc
	}
	if u.allocCB == nil {
		u.mu.Unlock()
		return NewError("RecvStart", KindInvalid, "no alloc callback registered")
	}
	if cb != nil {
		u.recvCB = cb
	}
	if u.recvCB == nil {
		u.mu.Unlock()
		return NewError("RecvStart", KindInvalid, "no recv callback registered")
	}
	u.reading = true
	u.mu.Unlock()
	if !was {
		u.retain()
	}
	u.setActive(true)
	u.updateInterest()
	return nil
}

// RecvStop stops delivering datagrams; idempotent.
func (u *Udp) RecvStop() {
	u.mu.Lock()
	was := u.reading
	u.reading = false
	u.mu.Unlock()
	u.updateActive()
	u.updateInterest()
	if was {
		u.unref()
	}
}

// WriteQueueBytes reports pending send bytes for backpressure (§4.G).
func (u *Udp) WriteQueueBytes() uint64 {
	u.sendMu.Lock()
	defer u.sendMu.Unlock()
	return u.pending
}

// Send queues one datagram for dest, completing cb once it is handed to
// the kernel (datagram sends either complete wholly or fail; there is no
// partial-write state to track).
func (u *Udp) Send(buf *Buffer, dest netutil.SockAddr, cb RequestCompletion) *Request {
	r := newRequest(u.loop, KindUDPSend, u.Handle, cb)
	buf.Retain()
	u.sendMu.Lock()
	u.sendQ.PushBack(&pendingDatagram{req: r, buf: buf, dest: dest})
	u.pending += uint64(len(buf.Bytes()))
	u.sendMu.Unlock()
	u.updateActive()
	u.updateInterest()
	u.flushSend()
	return r
}

// TrySend attempts an immediate non-blocking send, returning KindWouldBlock
// if the send queue is non-empty or the kernel buffer is full.
func (u *Udp) TrySend(buf *Buffer, dest netutil.SockAddr) (int, error) {
	u.sendMu.Lock()
	nonEmpty := u.sendQ.Len() > 0
	u.sendMu.Unlock()
	if nonEmpty {
		return 0, NewError("TrySend", KindWouldBlock, "send queue non-empty")
	}
	fd, err := u.Fileno()
	if err != nil {
		return 0, err
	}
	sendErr := unix.Sendto(fd, buf.Bytes(), 0, rawSockaddr(dest))
	if sendErr == unix.EAGAIN {
		return 0, NewError("TrySend", KindWouldBlock, "send would block")
	}
	if sendErr != nil {
		return 0, NewEngineError("TrySend", errnoOf(sendErr), sendErr)
	}
	return len(buf.Bytes()), nil
}

func (u *Udp) updateActive() {
	u.mu.Lock()
	reading := u.reading
	u.mu.Unlock()
	u.sendMu.Lock()
	sending := u.sendQ.Len() > 0
	u.sendMu.Unlock()
	u.setActive(reading || sending)
}

func (u *Udp) updateInterest() {
	fd, err := u.Fileno()
	if err != nil {
		return
	}
	var events engine.IOEvents
	u.mu.Lock()
	if u.reading {
		events |= engine.Readable
	}
	u.mu.Unlock()
	u.sendMu.Lock()
	if u.sendQ.Len() > 0 {
		events |= engine.Writable
	}
	u.sendMu.Unlock()
	_ = u.loop.reactor.ModFD(fd, events, u.id)
}

func (u *Udp) onIOEvent(ev engine.IOEvents) {
	if ev&engine.Writable != 0 {
		u.flushSend()
	}
	u.mu.Lock()
	reading := u.reading
	u.mu.Unlock()
	if ev&engine.Readable != 0 && reading {
		u.doRecv()
	}
}

func (u *Udp) flushSend() {
	fd, err := u.Fileno()
	if err != nil {
		return
	}
	for {
		u.sendMu.Lock()
		front := u.sendQ.Front()
		if front == nil {
			u.sendMu.Unlock()
			break
		}
		pd := front.Value.(*pendingDatagram)
		u.sendMu.Unlock()

		sendErr := unix.Sendto(fd, pd.buf.Bytes(), 0, rawSockaddr(pd.dest))
		if sendErr == unix.EAGAIN {
			return
		}
		status := KindOk
		if sendErr != nil {
			status = KindEngineError
		}
		u.sendMu.Lock()
		for e := u.sendQ.Front(); e != nil; e = e.Next() {
			if e.Value.(*pendingDatagram) == pd {
				u.sendQ.Remove(e)
				break
			}
		}
		u.pending -= uint64(len(pd.buf.Bytes()))
		u.sendMu.Unlock()

		pd.req.complete(status, pd.buf)
		pd.buf.Release()
	}
	u.updateActive()
	u.updateInterest()
}

func (u *Udp) doRecv() {
	fd, err := u.Fileno()
	if err != nil {
		return
	}
	u.mu.Lock()
	alloc := u.allocCB
	cb := u.recvCB
	u.mu.Unlock()
	if alloc == nil || cb == nil {
		return
	}
	buf := alloc(DefaultAllocSuggestion)
	buf.Retain()
	defer buf.Release()

	n, from, recvErr := unix.Recvfrom(fd, buf.Segment(0), 0)
	if recvErr == unix.EAGAIN {
		return
	}
	if recvErr != nil {
		u.setStatus(KindEngineError)
		cb(u, buf, -1, KindEngineError, netutil.SockAddr{})
		return
	}
	buf.SetLength(0, n)
	u.setStatus(KindOk)
	cb(u, buf, n, KindOk, sockaddrToNetutil(from))
}

func sockaddrToNetutil(sa unix.Sockaddr) netutil.SockAddr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make([]byte, 4)
		copy(ip, a.Addr[:])
		return netutil.NewSockAddrIn4(ip, uint16(a.Port))
	case *unix.SockaddrInet6:
		ip := make([]byte, 16)
		copy(ip, a.Addr[:])
		return netutil.NewSockAddrIn6(ip, uint16(a.Port), a.ZoneId)
	default:
		return netutil.SockAddr{}
	}
}

// Close deregisters the socket from the loop. The socket is closed once no
// other reference holds the handle: an active RecvStart keeps it open until
// RecvStop, a pending send until it completes.
func (u *Udp) Close(cb CloseCallback) {
	u.closeHandle(cb)
}
