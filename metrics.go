package uvcc

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the read/write completion-latency histogram
// buckets in nanoseconds, from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks loop-wide I/O and handle/request lifecycle statistics. A
// Loop holds one and feeds it from the completion paths in stream.go,
// request.go, and handle.go; it is safe to read concurrently with the loop
// thread since every field is atomic.
type Metrics struct {
	ReadOps  atomic.Uint64
	WriteOps atomic.Uint64

	ReadBytes  atomic.Uint64
	WriteBytes atomic.Uint64

	ReadErrors  atomic.Uint64
	WriteErrors atomic.Uint64

	// PendingWriteBytesTotal/Count feed the average queued-write-bytes
	// statistic; MaxPendingWriteBytes is a running high-water mark, useful
	// for diagnosing how close a stream got to HighWaterMark.
	PendingWriteBytesTotal atomic.Uint64
	PendingWriteSamples    atomic.Uint64
	MaxPendingWriteBytes   atomic.Uint64

	// ActiveHandles/ActiveRequests are incremented on construction and
	// decremented on close/completion, giving a live count of outstanding
	// core objects (useful both for metrics and for LeakCheck in
	// testing.go).
	ActiveHandles  atomic.Int64
	ActiveRequests atomic.Int64

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordRead records a completed (or failed) read.
func (m *Metrics) RecordRead(bytes uint64, latencyNs uint64, success bool) {
	m.ReadOps.Add(1)
	if success {
		m.ReadBytes.Add(bytes)
	} else {
		m.ReadErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordWrite records a completed (or failed) write.
func (m *Metrics) RecordWrite(bytes uint64, latencyNs uint64, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(bytes)
	} else {
		m.WriteErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordPendingWriteBytes samples the current queued-write-byte count for a
// stream (§4.H backpressure accounting).
func (m *Metrics) RecordPendingWriteBytes(bytes uint64) {
	m.PendingWriteBytesTotal.Add(bytes)
	m.PendingWriteSamples.Add(1)
	for {
		cur := m.MaxPendingWriteBytes.Load()
		if bytes <= cur {
			break
		}
		if m.MaxPendingWriteBytes.CompareAndSwap(cur, bytes) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// HandleCreated/HandleClosed and RequestStarted/RequestFinished feed the
// Active* counters; handle.go and request.go call these at
// construction/close time.
func (m *Metrics) HandleCreated()   { m.ActiveHandles.Add(1) }
func (m *Metrics) HandleClosed()    { m.ActiveHandles.Add(-1) }
func (m *Metrics) RequestStarted()  { m.ActiveRequests.Add(1) }
func (m *Metrics) RequestFinished() { m.ActiveRequests.Add(-1) }

// Stop marks StopTime, freezing Snapshot's uptime calculation.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics with derived rates.
type MetricsSnapshot struct {
	ReadOps, WriteOps     uint64
	ReadBytes, WriteBytes uint64
	ReadErrors, WriteErrors uint64

	AvgPendingWriteBytes float64
	MaxPendingWriteBytes uint64

	ActiveHandles, ActiveRequests int64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns, LatencyP99Ns, LatencyP999Ns uint64
	LatencyHistogram                          [numLatencyBuckets]uint64

	ReadIOPS, WriteIOPS           float64
	ReadBandwidth, WriteBandwidth float64
	TotalOps, TotalBytes          uint64
	ErrorRate                     float64
}

// Snapshot computes a MetricsSnapshot from the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		ReadOps:              m.ReadOps.Load(),
		WriteOps:             m.WriteOps.Load(),
		ReadBytes:            m.ReadBytes.Load(),
		WriteBytes:           m.WriteBytes.Load(),
		ReadErrors:           m.ReadErrors.Load(),
		WriteErrors:          m.WriteErrors.Load(),
		MaxPendingWriteBytes: m.MaxPendingWriteBytes.Load(),
		ActiveHandles:        m.ActiveHandles.Load(),
		ActiveRequests:       m.ActiveRequests.Load(),
	}

	snap.TotalOps = snap.ReadOps + snap.WriteOps
	snap.TotalBytes = snap.ReadBytes + snap.WriteBytes

	if total, count := m.PendingWriteBytesTotal.Load(), m.PendingWriteSamples.Load(); count > 0 {
		snap.AvgPendingWriteBytes = float64(total) / float64(count)
	}

	totalLatencyNs, opCount := m.TotalLatencyNs.Load(), m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime, stopTime := m.StartTime.Load(), m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.ReadIOPS = float64(snap.ReadOps) / uptimeSeconds
		snap.WriteIOPS = float64(snap.WriteOps) / uptimeSeconds
		snap.ReadBandwidth = float64(snap.ReadBytes) / uptimeSeconds
		snap.WriteBandwidth = float64(snap.WriteBytes) / uptimeSeconds
	}

	totalErrors := snap.ReadErrors + snap.WriteErrors
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}
	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}
	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes all counters except the active-object gauges, which reflect
// real outstanding state and would be wrong to zero out from under the loop.
func (m *Metrics) Reset() {
	m.ReadOps.Store(0)
	m.WriteOps.Store(0)
	m.ReadBytes.Store(0)
	m.WriteBytes.Store(0)
	m.ReadErrors.Store(0)
	m.WriteErrors.Store(0)
	m.PendingWriteBytesTotal.Store(0)
	m.PendingWriteSamples.Store(0)
	m.MaxPendingWriteBytes.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection alongside (or instead of)
// the built-in Metrics struct.
type Observer interface {
	ObserveRead(bytes uint64, latencyNs uint64, success bool)
	ObserveWrite(bytes uint64, latencyNs uint64, success bool)
	ObservePendingWriteBytes(bytes uint64)
	ObserveHandleCreated()
	ObserveHandleClosed()
}

// NoOpObserver discards everything.
type NoOpObserver struct{}

func (NoOpObserver) ObserveRead(uint64, uint64, bool)  {}
func (NoOpObserver) ObserveWrite(uint64, uint64, bool) {}
func (NoOpObserver) ObservePendingWriteBytes(uint64)   {}
func (NoOpObserver) ObserveHandleCreated()             {}
func (NoOpObserver) ObserveHandleClosed()              {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver returns an observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveRead(bytes, latencyNs uint64, success bool) {
	o.metrics.RecordRead(bytes, latencyNs, success)
}
func (o *MetricsObserver) ObserveWrite(bytes, latencyNs uint64, success bool) {
	o.metrics.RecordWrite(bytes, latencyNs, success)
}
func (o *MetricsObserver) ObservePendingWriteBytes(bytes uint64) {
	o.metrics.RecordPendingWriteBytes(bytes)
}
func (o *MetricsObserver) ObserveHandleCreated() { o.metrics.HandleCreated() }
func (o *MetricsObserver) ObserveHandleClosed()  { o.metrics.HandleClosed() }

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
