package uvcc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver implements Observer by recording directly into
// prometheus collectors, built the same way rcproxy's core.ProxyStats
// registers a fixed set of CounterVec/GaugeVec/HistogramVec instruments
// under a namespace at construction time.
type PrometheusObserver struct {
	readBytes  prometheus.Counter
	writeBytes prometheus.Counter
	readOps    prometheus.Counter
	writeOps   prometheus.Counter
	readErrs   prometheus.Counter
	writeErrs  prometheus.Counter
	latency    *prometheus.HistogramVec

	pendingWriteBytes prometheus.Gauge
	activeHandles     prometheus.Gauge
}

// NewPrometheusObserver registers a new set of collectors under namespace
// and returns an Observer backed by them. Callers typically register it
// once per process and pass it to Loop via WithObserver.
func NewPrometheusObserver(namespace string) *PrometheusObserver {
	o := &PrometheusObserver{
		readBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "read_bytes_total", Help: "total bytes read",
		}),
		writeBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "write_bytes_total", Help: "total bytes written",
		}),
		readOps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "read_ops_total", Help: "total read completions",
		}),
		writeOps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "write_ops_total", Help: "total write completions",
		}),
		readErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "read_errors_total", Help: "total read errors",
		}),
		writeErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "write_errors_total", Help: "total write errors",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "io_latency_seconds", Help: "I/O completion latency",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
		}, []string{"op"}),
		pendingWriteBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pending_write_bytes", Help: "most recently sampled queued write bytes",
		}),
		activeHandles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_handles", Help: "currently live handles",
		}),
	}
	prometheus.MustRegister(
		o.readBytes, o.writeBytes, o.readOps, o.writeOps,
		o.readErrs, o.writeErrs, o.latency, o.pendingWriteBytes, o.activeHandles,
	)
	return o
}

func (o *PrometheusObserver) ObserveRead(bytes, latencyNs uint64, success bool) {
	o.readOps.Inc()
	if success {
		o.readBytes.Add(float64(bytes))
	} else {
		o.readErrs.Inc()
	}
	o.latency.WithLabelValues("read").Observe(time.Duration(latencyNs).Seconds())
}

func (o *PrometheusObserver) ObserveWrite(bytes, latencyNs uint64, success bool) {
	o.writeOps.Inc()
	if success {
		o.writeBytes.Add(float64(bytes))
	} else {
		o.writeErrs.Inc()
	}
	o.latency.WithLabelValues("write").Observe(time.Duration(latencyNs).Seconds())
}

func (o *PrometheusObserver) ObservePendingWriteBytes(bytes uint64) {
	o.pendingWriteBytes.Set(float64(bytes))
}

func (o *PrometheusObserver) ObserveHandleCreated() { o.activeHandles.Inc() }
func (o *PrometheusObserver) ObserveHandleClosed()  { o.activeHandles.Dec() }

var _ Observer = (*PrometheusObserver)(nil)
