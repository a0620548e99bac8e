package uvcc

import (
	"golang.org/x/sys/unix"

	"github.com/uvcc-go/uvcc/internal/netutil"
)

// SockAddr is the tagged sockaddr union used by the public API where an
// address is passed as a value (Udp.Send's destination, UdpRecvCallback's
// from address, GetNameInfo); Tcp.Bind/Connect and Udp.Bind take a host
// string and port instead.
type SockAddr = netutil.SockAddr

// AFInet4 and AFInet6 are the address families accepted by NewTcp/NewUdp,
// re-exported so callers don't need to import golang.org/x/sys/unix just
// to pick a protocol family.
const (
	AFInet4 = unix.AF_INET
	AFInet6 = unix.AF_INET6
)

// NewSockAddrIn4, NewSockAddrIn6, and ParseHostPort re-export
// internal/netutil's address constructors at the package root, for callers
// building the SockAddr values the wrappers above take.
var (
	NewSockAddrIn4 = netutil.NewSockAddrIn4
	NewSockAddrIn6 = netutil.NewSockAddrIn6
	ParseHostPort  = netutil.ParseHostPort
)

// Byte-order helpers re-exported for user code building or parsing wire
// headers atop raw buffers (§6 "byte-order helpers" named wrapper).
var (
	Hton16 = netutil.Hton16
	Hton32 = netutil.Hton32
	Hton64 = netutil.Hton64
	Ntoh16 = netutil.Ntoh16
	Ntoh32 = netutil.Ntoh32
	Ntoh64 = netutil.Ntoh64
)
