package uvcc

// WorkFunc is user code submitted to the fixed worker pool; it runs off
// the loop thread and its return value is delivered to cb back on the
// loop thread once the current Run iteration observes completion (§8
// scenario 6: "completion callback invoked exactly once on the loop
// thread after loop.run(DEFAULT) exits" holds because Run keeps iterating
// until the request it represents finishes).
type WorkFunc func() (any, error)

// QueueWork submits fn to loop's worker pool, delivering its result to cb
// on the loop thread.
func QueueWork(loop *Loop, fn WorkFunc, cb RequestCompletion) *Request {
	r := newRequest(loop, KindWork, nil, cb)
	loop.reactor.QueueWork(r.id, func() (any, error) {
		return fn()
	})
	return r
}
