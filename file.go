package uvcc

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// FileReadCallback receives the outcome of one positional read: nread (or
// a negative status), the buffer it landed in, and the offset it was read
// from.
type FileReadCallback func(f *File, buf *Buffer, nread int, status ErrorKind, offset int64)

// File is a handle over an open file descriptor. Per §4.G, files are not
// "started" by the engine: reads and writes are positional requests
// dispatched to the worker pool, and continuous reading is emulated by
// re-arming a new positional read after each completion.
type File struct {
	*Handle

	mu         sync.Mutex
	allocCB    AllocCallback
	readCB     FileReadCallback
	readOffset int64 // -1 means "current position"
	reading    bool

	writeQueueBytes atomic.Uint64
}

// OpenFile opens path with the given flags/mode and wraps the result as a
// File handle.
func OpenFile(loop *Loop, path string, flags int, mode uint32) (*File, error) {
	fd, err := unix.Open(path, flags, mode)
	if err != nil {
		return nil, NewEngineError("OpenFile", errnoOf(err), err)
	}
	h := newHandle(loop, KindFile, fd)
	return &File{Handle: h, readOffset: -1}, nil
}

// ReadStart begins emulated continuous reading at offset (-1 for "current
// position"), re-arming after each completion and advancing by the
// number of bytes actually read.
func (f *File) ReadStart(offset int64, alloc AllocCallback, cb FileReadCallback) error {
	f.mu.Lock()
	was := f.reading
	if alloc != nil {
		f.allocCB = alloc
	}
	if f.allocCB == nil {
		f.mu.Unlock()
		return NewError("ReadStart", KindInvalid, "no alloc callback registered")
	}
	if cb != nil {
		f.readCB = cb
	}
	if f.readCB == nil {
		f.mu.Unlock()
		return NewError("ReadStart", KindInvalid, "no read callback registered")
	}
	f.readOffset = offset
	f.reading = true
	f.mu.Unlock()

	if !was {
		f.retain()
	}
	f.setActive(true)
	f.armNextRead()
	return nil
}

// ReadStop halts emulated continuous reading; idempotent.
func (f *File) ReadStop() {
	f.mu.Lock()
	was := f.reading
	f.reading = false
	f.mu.Unlock()
	f.setActive(false)
	if was {
		f.unref()
	}
}

func (f *File) armNextRead() {
	f.mu.Lock()
	if !f.reading {
		f.mu.Unlock()
		return
	}
	alloc := f.allocCB
	offset := f.readOffset
	f.mu.Unlock()

	fd, err := f.Fileno()
	if err != nil {
		return
	}
	buf := alloc(DefaultAllocSuggestion)
	buf.Retain()

	r := newRequest(f.loop, KindFSRead, f.Handle, nil)
	f.loop.reactor.QueueWork(r.id, func() (any, error) {
		var n int
		var rerr error
		if offset < 0 {
			n, rerr = unix.Read(fd, buf.Segment(0))
		} else {
			n, rerr = unix.Pread(fd, buf.Segment(0), offset)
		}
		return n, rerr
	})
	r.completion.Set(func(_ *Request, status ErrorKind, result any) {
		n, _ := result.(int)
		defer buf.Release()
		if status != KindOk {
			f.setStatus(KindEngineError)
			f.readCB(f, buf, -1, KindEngineError, offset)
			return
		}
		if n == 0 {
			f.setStatus(KindEndOfStream)
			f.readCB(f, buf, -1, KindEndOfStream, offset)
			return
		}
		buf.SetLength(0, n)
		f.setStatus(KindOk)
		f.readCB(f, buf, n, KindOk, offset)

		f.mu.Lock()
		if f.readOffset >= 0 {
			f.readOffset += int64(n)
		}
		f.mu.Unlock()
		f.armNextRead()
	})
}

// Write submits a positional write request; offset < 0 writes at the
// file's current position. §4.H: accumulates the pending byte count into
// the file's write-queue-bytes accumulator, subtracted atomically on
// completion.
func (f *File) Write(buf *Buffer, offset int64, cb RequestCompletion) *Request {
	buf.Retain()
	n := len(buf.Bytes())
	f.writeQueueBytes.Add(uint64(n))

	r := newRequest(f.loop, KindFSWrite, f.Handle, nil)
	fd, ferr := f.Fileno()
	r.completion.Set(func(_ *Request, status ErrorKind, result any) {
		f.writeQueueBytes.Add(^uint64(n - 1))
		defer buf.Release()
		if cb != nil {
			cb(r, status, buf)
		}
	})
	if ferr != nil {
		r.complete(KindBadHandle, nil)
		return r
	}
	f.loop.reactor.QueueWork(r.id, func() (any, error) {
		if offset < 0 {
			written, err := unix.Write(fd, buf.Bytes())
			return written, err
		}
		written, err := unix.Pwrite(fd, buf.Bytes(), offset)
		return written, err
	})
	return r
}

// WriteQueueBytes reports pending write bytes for backpressure (§4.G).
func (f *File) WriteQueueBytes() uint64 {
	return f.writeQueueBytes.Load()
}

// Close closes the underlying file descriptor.
func (f *File) Close(cb CloseCallback) {
	f.ReadStop()
	f.closeHandle(cb)
}
