package middleware

import (
	"log/slog"
	"time"

	"github.com/agrineural/agrineural/internal/metrics"
	"github.com/gin-gonic/gin"
)

// StructuredLogging logs one line per request and records request metrics.
// m may be nil.
func StructuredLogging(logger *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.ObserveRequest(c.Request.Method, route, status, latency)

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"latency", latency,
			"client_ip", c.ClientIP(),
		}
		if callerID := GetCallerID(c); callerID != "" {
			attrs = append(attrs, "caller_id", callerID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Error("request", attrs...)
		case status >= 400:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}
