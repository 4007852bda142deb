package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus instruments exported by the tuner service.
type metrics struct {
	iterations        *prometheus.CounterVec
	trustRegionLength prometheus.Gauge
	paretoSize        prometheus.Gauge
	bestCost          prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		iterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tuner",
			Name:      "iterations_total",
			Help:      "Completed ask/tell cycles per phase.",
		}, []string{"phase"}),
		trustRegionLength: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tuner",
			Name:      "trust_region_length",
			Help:      "Current trust-region length of the active stage optimizer.",
		}),
		paretoSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tuner",
			Name:      "pareto_front_size",
			Help:      "Number of archived non-dominated configurations.",
		}),
		bestCost: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tuner",
			Name:      "best_cost",
			Help:      "Best observed stage cost in the active phase.",
		}),
	}
}
