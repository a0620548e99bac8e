//go:build linux

package engine

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// addSignal and removeSignal manipulate a raw kernel sigset_t, since
// golang.org/x/sys/unix exposes Sigset_t as a bitmask but not helpers to
// set/clear individual signal numbers.
func addSignal(set *unix.Sigset_t, sig int) {
	idx, bit := sigsetIndex(sig)
	set.Val[idx] |= bit
}

func removeSignal(set *unix.Sigset_t, sig int) {
	idx, bit := sigsetIndex(sig)
	set.Val[idx] &^= bit
}

func sigsetIndex(sig int) (idx int, bit uint64) {
	n := sig - 1
	wordBits := 64
	return n / wordBits, 1 << uint(n%wordBits)
}

// signalfdSiginfoBytes views info as the flat byte buffer the signalfd read
// ABI expects.
func signalfdSiginfoBytes(info *unix.SignalfdSiginfo) []byte {
	return (*[unsafe.Sizeof(unix.SignalfdSiginfo{})]byte)(unsafe.Pointer(info))[:]
}
