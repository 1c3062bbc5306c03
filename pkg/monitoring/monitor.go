package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AttemptsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "anchor_attempts_started_total",
			Help: "Total number of anchor tag attempts started",
		},
	)

	AttemptsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchor_attempts_closed_total",
			Help: "Total number of anchor tag attempts closed, by outcome",
		},
		[]string{"outcome"}, // completed, failed, abandoned
	)

	VerificationBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_batches_total",
			Help: "Total number of verification batches scored",
		},
		[]string{"knowledge"}, // available, degraded
	)

	VerificationQuestionTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_question_timeouts_total",
			Help: "Open-ended questions marked indeterminate after a lookup timeout",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(AttemptsStarted)
	prometheus.MustRegister(AttemptsClosed)
	prometheus.MustRegister(VerificationBatches)
	prometheus.MustRegister(VerificationQuestionTimeouts)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
