// Package netutil provides the socket-address construction and byte-order
// helpers spec.md groups under "External interfaces" (§6): zeroing and
// tagging sockaddr_in/sockaddr_in6/sockaddr_storage equivalents, parsing
// textual host/port pairs into them, and host<->network byte-order
// conversion for 16/32/64-bit widths.
package netutil

import "encoding/binary"

// Hton16 converts a 16-bit value from host to network (big-endian) order.
func Hton16(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.NativeEndian.Uint16(b[:])
}

// Ntoh16 converts a 16-bit value from network to host order. It is its own
// inverse partner with Hton16: both directions are the same byte-shuffle.
func Ntoh16(v uint16) uint16 {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], v)
	return binary.BigEndian.Uint16(b[:])
}

// Hton32 converts a 32-bit value from host to network order.
func Hton32(v uint32) uint32 {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return binary.NativeEndian.Uint32(b[:])
}

// Ntoh32 converts a 32-bit value from network to host order.
func Ntoh32(v uint32) uint32 {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], v)
	return binary.BigEndian.Uint32(b[:])
}

// Hton64 and Ntoh64 implement the 64-bit conversion on little-endian hosts
// as two 32-bit network-order conversions of the high/low words, swapped --
// the same construction spec.md calls out explicitly rather than leaving to
// a generic 8-byte reversal, since some hosts only expose 32-bit byte-swap
// primitives natively. On big-endian hosts both return v unchanged.
func Hton64(v uint64) uint64 {
	if Hton32(1) == 1 {
		return v
	}
	hi := Hton32(uint32(v >> 32))
	lo := Hton32(uint32(v))
	return uint64(lo)<<32 | uint64(hi)
}

func Ntoh64(v uint64) uint64 {
	if Ntoh32(1) == 1 {
		return v
	}
	hi := Ntoh32(uint32(v >> 32))
	lo := Ntoh32(uint32(v))
	return uint64(lo)<<32 | uint64(hi)
}
