// Package metrics exposes Prometheus instrumentation for the catalog.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/musicmoon/marketplace/internal/catalog"
)

// Catalog records catalog load outcomes. It satisfies catalog.Observer.
type Catalog struct {
	loads    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCatalog registers the catalog collectors on reg.
func NewCatalog(reg prometheus.Registerer) *Catalog {
	factory := promauto.With(reg)
	return &Catalog{
		loads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "musicmoon",
				Subsystem: "catalog",
				Name:      "loads_total",
				Help:      "Catalog loads by scope kind and outcome (ok, fallback, error).",
			},
			[]string{"scope", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "musicmoon",
				Subsystem: "catalog",
				Name:      "load_duration_seconds",
				Help:      "Catalog load latency including identity resolution.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"scope"},
		),
	}
}

// ObserveLoad implements catalog.Observer.
func (c *Catalog) ObserveLoad(scope catalog.ScopeKind, outcome string, elapsed time.Duration) {
	c.loads.WithLabelValues(string(scope), outcome).Inc()
	c.duration.WithLabelValues(string(scope)).Observe(elapsed.Seconds())
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}
