package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        *prometheus.GaugeVec
	httpResponseSize    *prometheus.HistogramVec

	regOnce sync.Once
)

func registerHTTPMetrics() {
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulator_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simulator_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method", "status"},
	)
	httpInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "simulator_http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		},
		[]string{"route", "method"},
	)
	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simulator_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{200, 500, 1_000, 2_000, 5_000, 10_000, 50_000, 100_000, 500_000, 1_000_000},
		},
		[]string{"route", "method", "status"},
	)
}

// Metrics records request metrics with low-cardinality labels. The route
// label uses echo's route template (e.g. /api/data/:name), never the raw URL.
func Metrics() echo.MiddlewareFunc {
	regOnce.Do(registerHTTPMetrics)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			httpInFlight.WithLabelValues(route, method).Inc()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := strconv.Itoa(c.Response().Status)
			httpRequestsTotal.WithLabelValues(route, method, status).Inc()
			httpRequestDuration.WithLabelValues(route, method, status).Observe(time.Since(start).Seconds())
			httpResponseSize.WithLabelValues(route, method, status).Observe(float64(c.Response().Size))
			httpInFlight.WithLabelValues(route, method).Dec()

			return err
		}
	}
}
