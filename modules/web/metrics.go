package web

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the HTTP and form-action collectors of one web module.
type metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	actionsTotal    *prometheus.CounterVec
}

// newMetrics builds a private registry holding the runtime collectors, the
// HTTP collectors and any extra collectors supplied by the caller.
func newMetrics(extra ...prometheus.Collector) *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	registry.MustRegister(extra...)
	factory := promauto.With(registry)

	return &metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.3, 1, 3},
			},
			[]string{"method", "route"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_in_flight_requests",
				Help: "Current number of in-flight HTTP requests",
			},
		),
		actionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "task_form_actions_total",
				Help: "Form submissions by parsed action",
			},
			[]string{"action"},
		),
	}
}

// middleware records count, latency and in-flight gauge per route.
func (mt *metrics) middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		mt.inFlight.Inc()
		defer mt.inFlight.Dec()

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		// Unmatched requests report Fiber's fallback route, not their own.
		route := c.Route().Path
		if status == fiber.StatusNotFound {
			route = "unmatched"
		}
		method := c.Method()
		mt.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		mt.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

func (mt *metrics) observeAction(req Request) {
	mt.actionsTotal.WithLabelValues(req.kind()).Inc()
}

// handler serves the registry in the Prometheus text format.
func (mt *metrics) handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(mt.registry, promhttp.HandlerOpts{}))
}
