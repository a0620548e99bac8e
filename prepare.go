package uvcc

// PrepareCallback fires once per loop iteration, just before the reactor
// polls for I/O.
type PrepareCallback func(*Prepare)

// Prepare is a handle whose callback fires right before each poll.
type Prepare struct {
	*Handle
	cb PrepareCallback
}

// NewPrepare constructs a Prepare handle, inactive until Start is called.
func NewPrepare(loop *Loop) *Prepare {
	return &Prepare{Handle: newHandle(loop, KindPrepare, -1)}
}

// Start begins firing cb before each poll.
func (p *Prepare) Start(cb PrepareCallback) error {
	if cb == nil {
		return NewError("Start", KindInvalid, "nil callback")
	}
	p.cb = cb
	p.setActive(true)
	p.loop.mu.Lock()
	p.loop.prepare[p.id] = p
	p.loop.mu.Unlock()
	return nil
}

// Stop stops cb from firing.
func (p *Prepare) Stop() {
	p.setActive(false)
	p.loop.mu.Lock()
	delete(p.loop.prepare, p.id)
	p.loop.mu.Unlock()
}

// Close closes the handle.
func (p *Prepare) Close(cb CloseCallback) {
	p.Stop()
	p.closeHandle(cb)
}

func (p *Prepare) fire() {
	if p.cb != nil {
		p.cb(p)
	}
}
