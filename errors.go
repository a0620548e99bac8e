package uvcc

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of error categories surfaced by the core
// (§7): every operation that can fail reports one of these, never a raw
// panic or a language-level exception.
type ErrorKind string

const (
	// KindOk means status >= 0; no error.
	KindOk ErrorKind = "ok"
	// KindEndOfStream means a read observed end-of-input.
	KindEndOfStream ErrorKind = "end of stream"
	// KindInvalid means preconditions were not met (e.g. empty callbacks on
	// ReadStart).
	KindInvalid ErrorKind = "invalid"
	// KindWouldBlock means a non-blocking attempt could not complete
	// immediately.
	KindWouldBlock ErrorKind = "would block"
	// KindCancelled means a request was cancelled before or during
	// execution.
	KindCancelled ErrorKind = "cancelled"
	// KindBadHandle means the operation does not apply to the handle's
	// variant.
	KindBadHandle ErrorKind = "bad handle"
	// KindEngineError is an opaque pass-through of a negative engine status.
	KindEngineError ErrorKind = "engine error"
	// KindResurrection means a refcount was incremented from zero.
	KindResurrection ErrorKind = "resurrection"
	// KindUnsupportedPlatform means the reactor has no backend for this OS.
	KindUnsupportedPlatform ErrorKind = "unsupported platform"
)

// Error is the structured error type returned from every fallible
// operation. It carries enough context (Op, the error kind, an optional
// errno, and an optional wrapped engine error) to answer "what failed, why"
// without needing a stack trace.
type Error struct {
	Op    string    // operation that failed, e.g. "ReadStart", "Write"
	Kind  ErrorKind // high-level category
	Errno int       // raw engine/errno code, 0 if not applicable
	Msg   string    // human-readable message
	Inner error     // wrapped error, if any
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op == "" {
		return fmt.Sprintf("uvcc: %s", msg)
	}
	if e.Errno != 0 {
		return fmt.Sprintf("uvcc: %s: %s (errno=%d)", e.Op, msg, e.Errno)
	}
	return fmt.Sprintf("uvcc: %s: %s", e.Op, msg)
}

// Unwrap supports errors.Is/errors.As against the wrapped error.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports comparing against a bare ErrorKind as well as another *Error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if k, ok := target.(kindSentinel); ok {
		return e.Kind == ErrorKind(k)
	}
	if te, ok := target.(*Error); ok {
		return e.Kind == te.Kind
	}
	return false
}

// kindSentinel lets ErrorKind values be compared directly with errors.Is,
// e.g. errors.Is(err, ErrEndOfStream).
type kindSentinel ErrorKind

func (k kindSentinel) Error() string { return string(k) }

// Sentinel errors for the common kinds, usable with errors.Is.
var (
	ErrEndOfStream         error = kindSentinel(KindEndOfStream)
	ErrInvalid             error = kindSentinel(KindInvalid)
	ErrWouldBlock          error = kindSentinel(KindWouldBlock)
	ErrCancelled           error = kindSentinel(KindCancelled)
	ErrBadHandle           error = kindSentinel(KindBadHandle)
	ErrResurrection        error = kindSentinel(KindResurrection)
	ErrUnsupportedPlatform error = kindSentinel(KindUnsupportedPlatform)
)

// NewError constructs a structured error of the given kind.
func NewError(op string, kind ErrorKind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// NewEngineError wraps a raw engine/errno failure.
func NewEngineError(op string, errno int, inner error) *Error {
	msg := ""
	if inner != nil {
		msg = inner.Error()
	}
	return &Error{Op: op, Kind: KindEngineError, Errno: errno, Msg: msg, Inner: inner}
}

// WrapError re-tags an existing error with a new operation name, preserving
// its kind and wrapped cause. Structured *Error values have their Op
// replaced; anything else is wrapped as a generic engine error.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ue, ok := inner.(*Error); ok {
		return &Error{Op: op, Kind: ue.Kind, Errno: ue.Errno, Msg: ue.Msg, Inner: ue.Inner}
	}
	return &Error{Op: op, Kind: KindEngineError, Msg: inner.Error(), Inner: inner}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind == kind
	}
	return false
}

// kindOrder fixes a stable integer encoding for ErrorKind so it can be
// stored in an atomic field (handle.go's lastStatus, request.go's
// equivalent).
var kindOrder = []ErrorKind{
	KindOk, KindEndOfStream, KindInvalid, KindWouldBlock, KindCancelled,
	KindBadHandle, KindEngineError, KindResurrection, KindUnsupportedPlatform,
}

func kindIndex(k ErrorKind) int {
	for i, v := range kindOrder {
		if v == k {
			return i
		}
	}
	return 0
}

func kindFromIndex(i int) ErrorKind {
	if i < 0 || i >= len(kindOrder) {
		return KindOk
	}
	return kindOrder[i]
}
