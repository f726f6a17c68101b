package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the HTTP surface and the
// checkout pipeline.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	OrdersPlaced  prometheus.Counter
	CheckoutFails prometheus.Counter
}

// New registers the instruments on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astrobite",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served, by route, method and status.",
		}, []string{"route", "method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "astrobite",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		RequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "astrobite",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being handled.",
		}),
		OrdersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "astrobite",
			Subsystem: "checkout",
			Name:      "orders_placed_total",
			Help:      "Orders successfully committed.",
		}),
		CheckoutFails: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "astrobite",
			Subsystem: "checkout",
			Name:      "failures_total",
			Help:      "Checkout attempts that did not produce an order.",
		}),
	}
}
