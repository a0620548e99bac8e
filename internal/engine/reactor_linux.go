//go:build linux

// Package engine: Linux backend built directly on epoll/eventfd/timerfd/
// signalfd, the same way the teacher's internal/uring talks to io_uring
// through raw golang.org/x/sys/unix syscalls rather than a higher-level
// wrapper.
package engine

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/uvcc-go/uvcc/internal/logging"
)

type linuxReactor struct {
	epfd   int
	wakeFD int

	mu           sync.Mutex // guards maps touched only from the loop thread except via Wake's write, which needs none
	fdUserData   map[int]uint64
	timerUser    map[int]uint64 // timerfd -> userData
	armedSignals map[int]uint64 // signum -> userData
	sigset       unix.Sigset_t
	signalFD     int

	now time.Time

	pool *workerPool
}

// NewReactor constructs the Linux epoll-backed Reactor.
func NewReactor(cfg Config) (Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		logging.Default().Error("epoll_create1 failed", "error", err)
		return nil, fmt.Errorf("engine: epoll_create1: %w", err)
	}

	wakeFD, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		logging.Default().Error("eventfd failed", "error", err)
		unix.Close(epfd)
		return nil, fmt.Errorf("engine: eventfd: %w", err)
	}

	r := &linuxReactor{
		epfd:         epfd,
		wakeFD:       wakeFD,
		fdUserData:   make(map[int]uint64),
		timerUser:    make(map[int]uint64),
		armedSignals: make(map[int]uint64),
		signalFD:     -1,
		now:          time.Now(),
	}
	r.pool = newWorkerPool(cfg.WorkerCount, r.Wake)

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFD, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wakeFD),
	}); err != nil {
		logging.Default().Error("epoll_ctl(wakeFD) failed", "error", err)
		unix.Close(wakeFD)
		unix.Close(epfd)
		return nil, fmt.Errorf("engine: epoll_ctl(wakeFD): %w", err)
	}

	logging.Default().Debug("reactor started", "epfd", epfd, "workers", cfg.WorkerCount)
	return r, nil
}

func (r *linuxReactor) Close() error {
	r.pool.close()
	if r.signalFD >= 0 {
		unix.Close(r.signalFD)
	}
	for fd := range r.timerUser {
		unix.Close(fd)
	}
	unix.Close(r.wakeFD)
	return unix.Close(r.epfd)
}

func (r *linuxReactor) epollEvents(e IOEvents) uint32 {
	var out uint32
	if e&Readable != 0 {
		out |= unix.EPOLLIN
	}
	if e&Writable != 0 {
		out |= unix.EPOLLOUT
	}
	return out
}

func (r *linuxReactor) AddFD(fd int, events IOEvents, userData uint64) error {
	r.mu.Lock()
	r.fdUserData[fd] = userData
	r.mu.Unlock()
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: r.epollEvents(events),
		Fd:     int32(fd),
	})
}

func (r *linuxReactor) ModFD(fd int, events IOEvents, userData uint64) error {
	r.mu.Lock()
	r.fdUserData[fd] = userData
	r.mu.Unlock()
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: r.epollEvents(events),
		Fd:     int32(fd),
	})
}

func (r *linuxReactor) RemoveFD(fd int) error {
	r.mu.Lock()
	delete(r.fdUserData, fd)
	r.mu.Unlock()
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (r *linuxReactor) ArmTimer(userData uint64, d time.Duration) (uint64, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		logging.Default().Error("timerfd_create failed", "error", err)
		return 0, fmt.Errorf("engine: timerfd_create: %w", err)
	}
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(d.Nanoseconds()),
	}
	if spec.Value.Sec == 0 && spec.Value.Nsec == 0 {
		// timerfd_settime treats an all-zero Value as "disarm"; arm for the
		// smallest representable interval instead so a zero-timeout timer
		// still fires on the next loop iteration.
		spec.Value.Nsec = 1
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		logging.Default().Error("timerfd_settime failed", "fd", fd, "error", err)
		unix.Close(fd)
		return 0, fmt.Errorf("engine: timerfd_settime: %w", err)
	}
	r.mu.Lock()
	r.timerUser[fd] = userData
	r.mu.Unlock()
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
	}); err != nil {
		logging.Default().Error("epoll_ctl(timerfd) failed", "fd", fd, "error", err)
		r.mu.Lock()
		delete(r.timerUser, fd)
		r.mu.Unlock()
		unix.Close(fd)
		return 0, fmt.Errorf("engine: epoll_ctl(timerfd): %w", err)
	}
	return uint64(fd), nil
}

func (r *linuxReactor) CancelTimer(timerID uint64) error {
	fd := int(timerID)
	unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	r.mu.Lock()
	delete(r.timerUser, fd)
	r.mu.Unlock()
	return unix.Close(fd)
}

func (r *linuxReactor) updateSignalFD() error {
	flags := unix.SFD_CLOEXEC | unix.SFD_NONBLOCK
	fd, err := unix.Signalfd(r.signalFD, &r.sigset, flags)
	if err != nil {
		logging.Default().Error("signalfd failed", "error", err)
		return fmt.Errorf("engine: signalfd: %w", err)
	}
	if r.signalFD < 0 {
		r.signalFD = fd
		if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}); err != nil {
			logging.Default().Error("epoll_ctl(signalfd) failed", "fd", fd, "error", err)
			return fmt.Errorf("engine: epoll_ctl(signalfd): %w", err)
		}
	}
	return unix.Sigprocmask(unix.SIG_BLOCK, &r.sigset, nil)
}

func (r *linuxReactor) ArmSignal(sig int, userData uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armedSignals[sig] = userData
	addSignal(&r.sigset, sig)
	return r.updateSignalFD()
}

func (r *linuxReactor) DisarmSignal(sig int, userData uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.armedSignals, sig)
	removeSignal(&r.sigset, sig)
	if len(r.armedSignals) == 0 && r.signalFD >= 0 {
		unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, r.signalFD, nil)
		err := unix.Close(r.signalFD)
		r.signalFD = -1
		return err
	}
	return r.updateSignalFD()
}

func (r *linuxReactor) Wake() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	unix.Write(r.wakeFD, buf[:])
}

func (r *linuxReactor) QueueWork(userData uint64, fn WorkFunc) {
	r.pool.submit(userData, fn)
}

func (r *linuxReactor) DrainWork() []WorkResult {
	return r.pool.drain()
}

func (r *linuxReactor) Now() time.Time { return r.now }

func (r *linuxReactor) UpdateTime() { r.now = time.Now() }

func (r *linuxReactor) BackendFD() int { return r.epfd }

func (r *linuxReactor) drainSignalFD(out *[]Event) {
	var info unix.SignalfdSiginfo
	buf := signalfdSiginfoBytes(&info)
	for {
		n, err := unix.Read(r.signalFD, buf)
		if err != nil || n < len(buf) {
			return
		}
		r.mu.Lock()
		ud, ok := r.armedSignals[int(info.Signo)]
		r.mu.Unlock()
		if ok {
			*out = append(*out, Event{UserData: ud, IOEvents: Readable})
		}
	}
}

func (r *linuxReactor) Wait(timeoutMs int) ([]Event, error) {
	var raw [64]unix.EpollEvent
	n, err := unix.EpollWait(r.epfd, raw[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		logging.Default().Error("epoll_wait failed", "error", err)
		return nil, fmt.Errorf("engine: epoll_wait: %w", err)
	}
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		switch {
		case fd == r.wakeFD:
			var buf [8]byte
			unix.Read(fd, buf[:])
		case fd == r.signalFD:
			r.drainSignalFD(&out)
		default:
			r.mu.Lock()
			ud, isTimer := r.timerUser[fd]
			r.mu.Unlock()
			if isTimer {
				var buf [8]byte
				unix.Read(fd, buf[:])
				out = append(out, Event{UserData: ud, IOEvents: Readable})
				continue
			}
			r.mu.Lock()
			ud, ok := r.fdUserData[fd]
			r.mu.Unlock()
			if !ok {
				continue
			}
			var ev IOEvents
			if raw[i].Events&unix.EPOLLIN != 0 {
				ev |= Readable
			}
			if raw[i].Events&unix.EPOLLOUT != 0 {
				ev |= Writable
			}
			if raw[i].Events&unix.EPOLLHUP != 0 {
				ev |= Hangup
			}
			if raw[i].Events&unix.EPOLLERR != 0 {
				ev |= ErrorCondition
			}
			out = append(out, Event{UserData: ud, IOEvents: ev})
		}
	}
	return out, nil
}
