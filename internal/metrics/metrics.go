// Package metrics exposes the bridge's Prometheus metrics (SPEC_FULL.md
// §4.16), repurposing the teacher's client_golang dependency from a query
// client into an exposition role via promhttp.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HeapDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_scheduler_heap_depth",
		Help: "Number of devices currently queued in the scheduler's priority queue.",
	})

	DevicesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_devices_in_flight",
		Help: "Number of devices currently being fetched by a worker.",
	})

	OutputQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_output_queue_depth",
		Help: "Number of batches buffered in the output queue awaiting publish.",
	})

	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_fetch_errors_total",
		Help: "Total number of failed upstream fetch attempts.",
	})

	BatchesPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_batches_published_total",
		Help: "Total number of device batches successfully published to the bus.",
	})

	PublishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_publish_failures_total",
		Help: "Total number of flush attempts that failed to publish.",
	})
)

// Handler returns the HTTP handler serving the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
