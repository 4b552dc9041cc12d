package frontdoor

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/mcp-demo-server/internal/capability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mcpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_server_http_requests_total",
		Help: "Total HTTP requests by method, route, and response status.",
	}, []string{"method", "route", "status"})

	mcpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcp_server_http_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	mcpHealthChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mcp_server_health_checks_total",
		Help: "Total health check requests served.",
	})

	mcpCapabilityCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_server_capability_calls_total",
		Help: "Total tool calls and resource reads by kind, name, and result.",
	}, []string{"kind", "name", "result"})

	mcpCapabilityCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcp_server_capability_call_duration_seconds",
		Help:    "Tool call and resource read duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "name"})
)

// routeKey is set by handlers that serve paths gin does not know about, so
// metrics are labelled by mount rather than raw path.
const routeKey = "frontdoor.route"

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		route := c.FullPath()
		if route == "" {
			route = c.GetString(routeKey)
		}
		if route == "" {
			route = "unmatched"
		}

		mcpRequestsTotal.WithLabelValues(method, route, status).Inc()
		mcpRequestDuration.WithLabelValues(method, route).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordCapabilityCall records a tool call or resource read. Its signature
// matches capability.CallObserver.
func RecordCapabilityCall(kind capability.CallKind, name string, success bool, elapsed time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	mcpCapabilityCallsTotal.WithLabelValues(string(kind), name, result).Inc()
	mcpCapabilityCallDuration.WithLabelValues(string(kind), name).Observe(elapsed.Seconds())
}

func recordHealthCheck() {
	mcpHealthChecksTotal.Inc()
}
