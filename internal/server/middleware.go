package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ragqa/server/internal/metrics"
	logx "github.com/ragqa/server/pkg/logger"
)

// requestObserver logs every request and records HTTP metrics. Handler errors
// are rendered here so the logged status is the one sent to the client.
func requestObserver(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			duration := time.Since(start)

			req := c.Request()
			status := c.Response().Status
			route := routeLabel(c.Path())

			if m != nil {
				m.HTTPRequestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
				m.HTTPRequestDuration.WithLabelValues(req.Method, route).Observe(duration.Seconds())
			}

			ev := logx.Info()
			if status >= 500 {
				ev = logx.Error()
			}
			ev.Str("method", req.Method).
				Str("uri", req.RequestURI).
				Int("status", status).
				Dur("duration", duration).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("http request")
			return nil
		}
	}
}

// routeLabel keeps metric cardinality bounded: routes are echo path templates
// (/api/v1/documents/:id), and unmatched requests share one label.
func routeLabel(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}
