// Package metrics records Prometheus counters for platform requests and
// migrated objects. Runs are short-lived, so metrics are written once as a
// node-exporter textfile instead of being served.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/panelport/internal/savedobject"
)

const namespace = "panelport"

// Recorder holds the metrics of one run on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	// Requests counts HTTP attempts by method, endpoint and status code.
	Requests *prometheus.CounterVec
	// RequestDuration observes attempt latency by endpoint.
	RequestDuration *prometheus.HistogramVec
	// Objects counts migrated objects by operation, type and outcome.
	Objects *prometheus.CounterVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests sent to the platform.",
		}, []string{"method", "endpoint", "code"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests sent to the platform.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		Objects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_total",
			Help:      "Saved objects processed by operation, type and outcome.",
		}, []string{"operation", "type", "outcome"}),
	}
}

// ObserveRequest records one HTTP attempt. A zero status is recorded as
// "error".
func (r *Recorder) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}

	r.Requests.WithLabelValues(method, endpoint, code).Inc()
	r.RequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveObject records the outcome for one object.
func (r *Recorder) ObserveObject(operation string, t savedobject.Type, outcome string) {
	r.Objects.WithLabelValues(operation, string(t), outcome).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}

	return nil
}
