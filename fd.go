package uvcc

import (
	"errors"

	"golang.org/x/sys/unix"
)

// closeRawFD closes an OS file descriptor obtained from one of the
// platform syscalls in tcp.go/pipe.go/udp.go/file.go, ignoring EBADF (the
// handle may already be in the process of tearing down).
func closeRawFD(fd int) {
	_ = unix.Close(fd)
}

// setNonblock puts fd in non-blocking mode, required before registering it
// with the reactor's epoll instance.
func setNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}

// errnoOf extracts the raw errno from a syscall failure, or 0 if err
// doesn't carry one. Named wrappers use this instead of asserting
// err.(unix.Errno) directly, which panics on any error that isn't a bare
// unix.Errno.
func errnoOf(err error) int {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}

// guessHandleType fstats fd to pick the coarse OS object kind, then
// disambiguates character devices (tty vs. plain char device) via the
// TCGETS probe NewTty already performs, and sockets (tcp vs. udp vs. unix
// pipe) via getsockname's address family and SO_TYPE.
func guessHandleType(fd int) HandleType {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return HandleTypeUnknown
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		return HandleTypeFile
	case unix.S_IFIFO:
		return HandleTypePipe
	case unix.S_IFCHR:
		if _, err := unix.IoctlGetTermios(fd, unix.TCGETS); err == nil {
			return HandleTypeTTY
		}
		return HandleTypeUnknown
	case unix.S_IFSOCK:
		return guessSocketHandleType(fd)
	default:
		return HandleTypeUnknown
	}
}

func guessSocketHandleType(fd int) HandleType {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return HandleTypeUnknown
	}
	switch sa.(type) {
	case *unix.SockaddrUnix:
		return HandleTypePipe
	case *unix.SockaddrInet4, *unix.SockaddrInet6:
		typ, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
		if err != nil {
			return HandleTypeUnknown
		}
		if typ == unix.SOCK_DGRAM {
			return HandleTypeUDP
		}
		return HandleTypeTCP
	default:
		return HandleTypeUnknown
	}
}
