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

	SignupCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_signups_total",
			Help: "Sign-up attempts by role and outcome",
		},
		[]string{"role", "result"},
	)

	CodesIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_codes_issued_total",
			Help: "Access codes issued by type",
		},
		[]string{"type"},
	)

	ApprovalDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "school_change_decisions_total",
			Help: "School change requests decided, by outcome",
		},
		[]string{"status"},
	)

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notifications created, by type",
		},
		[]string{"type"},
	)

	StreamConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_stream_connections",
			Help: "Open notification WebSocket connections",
		},
	)
)

func Init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		SignupCounter,
		CodesIssued,
		ApprovalDecisions,
		NotificationsSent,
		StreamConnections,
	)
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
