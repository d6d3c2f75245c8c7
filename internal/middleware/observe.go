package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/metrics"
)

// Observe logs every request and records it in the HTTP metrics.  The route
// template, not the raw URL, labels the metrics so cardinality stays bounded.
func Observe(log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo write the error response so the status is final
				c.Error(err)
			}

			req := c.Request()
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := c.Response().Status
			elapsed := time.Since(start)

			if path != "/metrics" {
				metrics.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
				metrics.HTTPRequestDurationSeconds.WithLabelValues(req.Method, path).Observe(elapsed.Seconds())
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", elapsed),
				zap.String("remote", c.RealIP()),
			}
			switch {
			case status >= 500:
				log.Error("http request", append(fields, zap.Error(err))...)
			case path == "/health" || path == "/metrics":
				log.Debug("http request", fields...)
			default:
				log.Info("http request", fields...)
			}
			return nil
		}
	}
}
