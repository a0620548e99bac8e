package uvcc

// CheckCallback fires once per loop iteration, right after the reactor has
// polled for I/O.
type CheckCallback func(*Check)

// Check is a handle whose callback fires right after each poll.
type Check struct {
	*Handle
	cb CheckCallback
}

// NewCheck constructs a Check handle, inactive until Start is called.
func NewCheck(loop *Loop) *Check {
	return &Check{Handle: newHandle(loop, KindCheck, -1)}
}

// Start begins firing cb after each poll.
func (c *Check) Start(cb CheckCallback) error {
	if cb == nil {
		return NewError("Start", KindInvalid, "nil callback")
	}
	c.cb = cb
	c.setActive(true)
	c.loop.mu.Lock()
	c.loop.check[c.id] = c
	c.loop.mu.Unlock()
	return nil
}

// Stop stops cb from firing.
func (c *Check) Stop() {
	c.setActive(false)
	c.loop.mu.Lock()
	delete(c.loop.check, c.id)
	c.loop.mu.Unlock()
}

// Close closes the handle.
func (c *Check) Close(cb CloseCallback) {
	c.Stop()
	c.closeHandle(cb)
}

func (c *Check) fire() {
	if c.cb != nil {
		c.cb(c)
	}
}
