package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "arthings",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arthings",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "arthings",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	rentalsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "arthings",
			Subsystem: "rentals",
			Name:      "created_total",
			Help:      "Total number of rental requests created.",
		},
	)

	rentalTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arthings",
			Subsystem: "rentals",
			Name:      "status_transitions_total",
			Help:      "Total number of rental status changes by target status and initiator.",
		},
		[]string{"status", "by"},
	)

	ratingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arthings",
			Subsystem: "ratings",
			Name:      "created_total",
			Help:      "Total number of ratings submitted by score.",
		},
		[]string{"score"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		rentalsCreated,
		rentalTransitions,
		ratingsCreated,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per matched route. Unmatched
// paths share one label so scanners cannot blow up cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func RecordRentalCreated() {
	rentalsCreated.Inc()
}

// RecordRentalTransition counts a status change; by is "owner", "renter" or "admin".
func RecordRentalTransition(status, by string) {
	rentalTransitions.WithLabelValues(status, by).Inc()
}

func RecordRating(score int) {
	ratingsCreated.WithLabelValues(strconv.Itoa(score)).Inc()
}
