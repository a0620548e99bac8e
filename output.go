package uvcc

import (
	"container/list"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

type pendingWrite struct {
	req *Request
	buf *Buffer
	off int // bytes of buf already written
}

// outputQueue is the shared write/backpressure bookkeeping every stream
// variant (tcp, pipe, tty) embeds via streamCore. §4.H: every output
// bumps refcounts on target handle and buffer, and exposes pendingBytes
// for the §4.G backpressure contract.
type outputQueue struct {
	mu           sync.Mutex
	queue        list.List // of *pendingWrite
	pendingBytes atomic.Uint64
	shutdownReq  *Request
}

func newOutputQueue() *outputQueue {
	return &outputQueue{}
}

func (q *outputQueue) hasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queue.Len() > 0
}

// submit queues buf for writing against the handle behind target.
func (q *outputQueue) submit(target *streamCore, r *Request, buf *Buffer) {
	buf.Retain()
	q.mu.Lock()
	q.queue.PushBack(&pendingWrite{req: r, buf: buf})
	q.pendingBytes.Add(uint64(len(buf.Bytes())))
	q.mu.Unlock()
	if target.loop.metrics != nil {
		target.loop.metrics.RecordPendingWriteBytes(q.pendingBytes.Load())
	}
	q.flush(target)
}

func (q *outputQueue) submitShutdown(target *streamCore, r *Request) {
	q.mu.Lock()
	empty := q.queue.Len() == 0
	if empty {
		q.shutdownReq = nil
	} else {
		q.shutdownReq = r
	}
	q.mu.Unlock()
	if empty {
		fd, err := target.Fileno()
		if err == nil {
			_ = unix.Shutdown(fd, unix.SHUT_WR)
		}
		r.complete(KindOk, nil)
	}
}

// flush writes as much of the queue as the fd will currently accept,
// completing each request's on_request(output, buffer) callback as its
// buffer fully drains (§4.H).
func (q *outputQueue) flush(target *streamCore) {
	fd, err := target.Fileno()
	if err != nil {
		return
	}
	for {
		q.mu.Lock()
		front := q.queue.Front()
		if front == nil {
			q.mu.Unlock()
			break
		}
		pw := front.Value.(*pendingWrite)
		q.mu.Unlock()

		data := pw.buf.Bytes()[pw.off:]
		if len(data) == 0 {
			q.popFront(target, pw, KindOk)
			continue
		}
		n, errno := unix.Write(fd, data)
		if errno == unix.EAGAIN {
			return
		}
		if errno != nil {
			q.popFront(target, pw, KindEngineError)
			continue
		}
		pw.off += n
		q.pendingBytes.Add(^uint64(n - 1)) // subtract n
		if target.loop.metrics != nil {
			target.loop.metrics.RecordPendingWriteBytes(q.pendingBytes.Load())
		}
		if pw.off >= len(pw.buf.Bytes()) {
			q.popFront(target, pw, KindOk)
		}
	}

	q.mu.Lock()
	drained := q.queue.Len() == 0
	pending := q.shutdownReq
	if drained {
		q.shutdownReq = nil
	}
	q.mu.Unlock()
	if drained && pending != nil {
		_ = unix.Shutdown(fd, unix.SHUT_WR)
		pending.complete(KindOk, nil)
	}
}

func (q *outputQueue) popFront(target *streamCore, pw *pendingWrite, status ErrorKind) {
	q.mu.Lock()
	for e := q.queue.Front(); e != nil; e = e.Next() {
		if e.Value.(*pendingWrite) == pw {
			q.queue.Remove(e)
			break
		}
	}
	q.mu.Unlock()

	if target.loop.observer != nil {
		target.loop.observer.ObserveWrite(uint64(pw.off), 0, status == KindOk)
	}
	if target.loop.metrics != nil {
		target.loop.metrics.RecordWrite(uint64(pw.off), 0, status == KindOk)
	}
	pw.req.complete(status, pw.buf)
	pw.buf.Release()
}
