package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsMiddleware records per-request counters and latencies. Endpoint
// labels use the route pattern (e.g. /roast), not the raw URL, so query
// parameters never explode label cardinality.
type MetricsMiddleware struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewMetricsMiddleware(requestsTotal *prometheus.CounterVec, requestDuration *prometheus.HistogramVec) *MetricsMiddleware {
	return &MetricsMiddleware{
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
	}
}

// CollectHTTPMetrics observes every request except scrapes of /metrics
// itself.
func (m *MetricsMiddleware) CollectHTTPMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = c.Request().URL.Path
			}
			if endpoint == "/metrics" {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			m.requestsTotal.WithLabelValues(
				c.Request().Method,
				endpoint,
				strconv.Itoa(c.Response().Status),
			).Inc()
			m.requestDuration.WithLabelValues(c.Request().Method, endpoint).
				Observe(time.Since(start).Seconds())

			return err
		}
	}
}
