package uvcc

import "time"

// Tunables and fixed thresholds referenced throughout the core (§8's
// testable properties pin several of these to exact values, so they are
// named constants rather than inline literals).
const (
	// DefaultAllocSuggestion is the buffer size suggested to on_alloc when
	// the caller hasn't chosen one, used by both stream reads and the
	// file-handle emulated continuous read (§4.G, spec.md line about
	// "default 65536").
	DefaultAllocSuggestion = 64 * 1024

	// StreamChunkSize is the bookkeeping unit backpressure is measured in.
	StreamChunkSize = 8 * 1024

	// HighWaterMark is the queued-byte threshold at which a paused-writer
	// sink must stop the source's reads (14 chunks, §8 scenario 3).
	HighWaterMark = 14 * StreamChunkSize // 114688

	// LowWaterMark is the queued-byte threshold below which reads resume
	// (2 chunks, §8 scenario 3).
	LowWaterMark = 2 * StreamChunkSize // 16384

	// DefaultWorkerCount is the worker-pool size internal/engine picks when
	// no WorkerCount is given (libuv's own default thread-pool size); the
	// engine applies that value itself rather than reading this constant.
	DefaultWorkerCount = 4

	// DefaultBacklog is the listen backlog used by Tcp/Pipe Listen when the
	// caller doesn't specify one.
	DefaultBacklog = 128
)

// RunMode selects loop.run's blocking behavior.
type RunMode int

const (
	// RunDefault runs until there are no more active handles/requests.
	RunDefault RunMode = iota
	// RunOnce polls for I/O once, blocking if nothing is ready, then
	// returns.
	RunOnce
	// RunNoWait polls for I/O once without blocking, then returns.
	RunNoWait
)

// defaultPollTimeout bounds how long a RunDefault iteration blocks in the
// reactor when no timers are armed, so loop.Stop (called from a signal
// handler or another goroutine via Wake) is always noticed promptly.
const defaultPollTimeout = 5 * time.Second
