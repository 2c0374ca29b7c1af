// Package observability exposes Prometheus metrics for the service.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editor_mutations_total",
			Help: "Editor mutation operations by kind and outcome.",
		},
		[]string{"op", "outcome"},
	)

	historyOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_ops_total",
			Help: "Undo/redo/save operations by outcome.",
		},
		[]string{"op", "outcome"},
	)

	historySnapshots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "history_snapshots_held",
			Help: "Total snapshots currently retained across all courses.",
		},
	)

	gatewayOpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_operation_duration_seconds",
			Help:    "Duration of persistence gateway operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"op", "outcome"},
	)

	gatewayCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_results_total",
			Help: "Gateway read-cache results by outcome.",
		},
		[]string{"outcome"},
	)

	changefeedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "changefeed_events_total",
			Help: "Change feed events by direction and outcome.",
		},
		[]string{"direction", "outcome"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveMutation(op string, err error) {
	mutationsTotal.WithLabelValues(op, outcome(err)).Inc()
}

// ObserveHistory records a history operation. applied distinguishes a
// real undo/redo from a no-op on an empty stack.
func ObserveHistory(op string, applied bool, err error) {
	o := outcome(err)
	if err == nil && !applied {
		o = "noop"
	}
	historyOpsTotal.WithLabelValues(op, o).Inc()
}

func SetSnapshotsHeld(n int) {
	historySnapshots.Set(float64(n))
}

func ObserveGatewayOp(op string, err error, durationSeconds float64) {
	gatewayOpSeconds.WithLabelValues(op, outcome(err)).Observe(durationSeconds)
}

func IncGatewayCacheHit()  { gatewayCacheTotal.WithLabelValues("hit").Inc() }
func IncGatewayCacheMiss() { gatewayCacheTotal.WithLabelValues("miss").Inc() }

func IncChangefeedPublished(err error) {
	changefeedEventsTotal.WithLabelValues("publish", outcome(err)).Inc()
}

func IncChangefeedConsumed(o string) {
	changefeedEventsTotal.WithLabelValues("consume", o).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
