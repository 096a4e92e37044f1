// Package metrics exports product operation counters and latencies to
// Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stevemurr/comparison-api/product"
)

// Result labels.
const (
	ResultOK          = "ok"
	ResultNotFound    = "not_found"
	ResultDataFormat  = "data_format"
	ResultPersistence = "persistence"
	ResultError       = "error"
)

// Recorder implements service.MetricsRecorder.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// New registers the product metrics, plus the Go and process collectors, on
// a private registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "products",
			Name:      "operations_total",
			Help:      "Product operations by name and result.",
		}, []string{"op", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "products",
			Name:      "operation_duration_seconds",
			Help:      "Latency of product operations, including storage I/O.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(
		r.operations,
		r.durations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveOperation(op string, d time.Duration, err error) {
	r.operations.WithLabelValues(op, Result(err)).Inc()
	r.durations.WithLabelValues(op).Observe(d.Seconds())
}

// Counter returns the operations counter for op and result.
func (r *Recorder) Counter(op, result string) prometheus.Counter {
	return r.operations.WithLabelValues(op, result)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Result maps an operation error to its label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, product.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, product.ErrDataFormat):
		return ResultDataFormat
	case errors.Is(err, product.ErrPersistence):
		return ResultPersistence
	default:
		return ResultError
	}
}
