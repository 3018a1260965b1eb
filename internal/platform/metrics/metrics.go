// Package metrics provides Prometheus metrics for the recall service.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CallsDispatchedTotal counts per-patient call attempts by source and outcome.
	CallsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "dispatch",
			Name:      "calls_total",
			Help:      "Total number of outbound call attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// CallRecordsTotal counts provider call records seen by the normalizer.
	CallRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "history",
			Name:      "records_total",
			Help:      "Total number of provider call records processed by result",
		},
		[]string{"result"},
	)

	// UpstreamRequestsTotal tracks requests to the auth service, calling
	// provider, patient registry and mail service.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of outbound requests by service, operation and status code",
		},
		[]string{"service", "operation", "status_code"},
	)

	// UpstreamRequestDuration tracks outbound request latency.
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recall",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "operation"},
	)
)

// ObserveUpstream records one outbound request. A status of 0 means the
// request failed before a response arrived.
func ObserveUpstream(service, operation string, status int, start time.Time) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	UpstreamRequestsTotal.WithLabelValues(service, operation, code).Inc()
	UpstreamRequestDuration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
}

// Handler exposes the default registry for scraping.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
