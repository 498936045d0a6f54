package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unmatchedRoute labels requests that hit no registered route, so probing
// clients cannot mint new series.
const unmatchedRoute = "unmatched"

var (
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency in seconds, including synchronous pipeline stages.",
			Buckets:   []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"method", "route"},
	)

	apiResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "responses_total",
			Help:      "API responses by route and status class.",
		},
		[]string{"method", "route", "class"},
	)

	apiUploadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "upload_bytes",
			Help:      "Declared size of résumé and job description uploads.",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 4, 6),
		},
		[]string{"route"},
	)

	apiInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_in_flight",
			Help:      "API requests currently being served.",
		},
	)
)

// GinMiddleware records latency, status class and upload size per route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		apiInFlight.Inc()
		defer apiInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method

		apiRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		apiResponses.WithLabelValues(method, route, statusClass(c.Writer.Status())).Inc()

		if c.ContentType() == gin.MIMEMultipartPOSTForm && c.Request.ContentLength > 0 {
			apiUploadBytes.WithLabelValues(route).Observe(float64(c.Request.ContentLength))
		}
	}
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
