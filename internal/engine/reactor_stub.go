//go:build !linux

package engine

// NewReactor reports ErrUnsupportedPlatform: only the Linux epoll/timerfd/
// signalfd/eventfd backend is implemented, the same way the teacher's
// internal/uring has no non-Linux real backend either.
func NewReactor(cfg Config) (Reactor, error) {
	return nil, ErrUnsupportedPlatform
}
