package uvcc

// IdleCallback is invoked once per loop iteration while the handle is
// active, intended for work that should happen when the loop would
// otherwise be about to block.
type IdleCallback func(*Idle)

// Idle is a handle whose callback fires once per Run iteration (§6's named
// wrappers list). It has no file descriptor.
type Idle struct {
	*Handle
	cb IdleCallback
}

// NewIdle constructs an Idle handle on loop, inactive until Start is
// called.
func NewIdle(loop *Loop) *Idle {
	return &Idle{Handle: newHandle(loop, KindIdle, -1)}
}

// Start begins firing cb once per loop iteration.
func (i *Idle) Start(cb IdleCallback) error {
	if cb == nil {
		return NewError("Start", KindInvalid, "nil callback")
	}
	i.cb = cb
	i.setActive(true)
	i.loop.mu.Lock()
	i.loop.idle[i.id] = i
	i.loop.mu.Unlock()
	return nil
}

// Stop stops cb from firing.
func (i *Idle) Stop() {
	i.setActive(false)
	i.loop.mu.Lock()
	delete(i.loop.idle, i.id)
	i.loop.mu.Unlock()
}

// Close closes the handle, firing cb (the close callback, not the idle
// callback) once fully released.
func (i *Idle) Close(cb CloseCallback) {
	i.Stop()
	i.closeHandle(cb)
}

func (i *Idle) fire() {
	if i.cb != nil {
		i.cb(i)
	}
}
