package netutil

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// SockAddr is a tagged union over the three address shapes spec.md names:
// sockaddr_in, sockaddr_in6, and sockaddr_storage. Exactly one of In4/In6 is
// populated; Family records which.
type SockAddr struct {
	Family int // unix.AF_INET or unix.AF_INET6
	In4    unix.RawSockaddrInet4
	In6    unix.RawSockaddrInet6
}

// NewSockAddrIn4 zeroes and tags a sockaddr_in: family AF_INET, network-order
// port, and the given IPv4 address.
func NewSockAddrIn4(ip net.IP, port uint16) SockAddr {
	var sa SockAddr
	sa.Family = unix.AF_INET
	sa.In4.Family = unix.AF_INET
	sa.In4.Port = Hton16(port)
	copy(sa.In4.Addr[:], ip.To4())
	return sa
}

// NewSockAddrIn6 zeroes and tags a sockaddr_in6: family AF_INET6,
// network-order port, and the given IPv6 address.
func NewSockAddrIn6(ip net.IP, port uint16, scopeID uint32) SockAddr {
	var sa SockAddr
	sa.Family = unix.AF_INET6
	sa.In6.Family = unix.AF_INET6
	sa.In6.Port = Hton16(port)
	sa.In6.Scope_id = scopeID
	copy(sa.In6.Addr[:], ip.To16())
	return sa
}

// ParseHostPort resolves host (a literal IP or a DNS name) and constructs
// the matching tagged sockaddr_storage equivalent. It prefers an IPv4
// result when the host resolves to both families, mirroring getaddrinfo's
// default ordering with AF_UNSPEC plus no explicit hints.
func ParseHostPort(host string, port uint16) (SockAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return NewSockAddrIn4(v4, port), nil
		}
		return NewSockAddrIn6(ip, port, 0), nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return SockAddr{}, fmt.Errorf("netutil: lookup %q: %w", host, err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return NewSockAddrIn4(v4, port), nil
		}
	}
	return NewSockAddrIn6(ips[0], port, 0), nil
}

// IP recovers the net.IP and port encoded in sa.
func (sa SockAddr) IP() (net.IP, uint16) {
	switch sa.Family {
	case unix.AF_INET:
		ip := make(net.IP, 4)
		copy(ip, sa.In4.Addr[:])
		return ip, Ntoh16(sa.In4.Port)
	case unix.AF_INET6:
		ip := make(net.IP, 16)
		copy(ip, sa.In6.Addr[:])
		return ip, Ntoh16(sa.In6.Port)
	default:
		return nil, 0
	}
}

// String renders sa as "host:port".
func (sa SockAddr) String() string {
	ip, port := sa.IP()
	if ip == nil {
		return "<invalid sockaddr>"
	}
	return net.JoinHostPort(ip.String(), fmt.Sprint(port))
}
