// Package metrics records validation activity in Prometheus collectors.
package metrics

import (
	"context"
	"net/http"

	"github.com/aretw0/formguard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors fed by the engine hooks and the HTTP cache.
type Metrics struct {
	Validations *prometheus.CounterVec
	FieldErrors *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	Cache       *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formguard_validations_total",
				Help: "Total number of payload validations",
			},
			[]string{"entity", "outcome"},
		),
		FieldErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formguard_field_errors_total",
				Help: "Total number of field errors reported",
			},
			[]string{"entity", "code"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "formguard_validation_duration_seconds",
				Help:    "Duration of payload validations",
				Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
			},
			[]string{"entity"},
		),
		Cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formguard_cache_lookups_total",
				Help: "Result cache lookups by outcome",
			},
			[]string{"result"},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.Validations, m.FieldErrors, m.Duration, m.Cache)
	return m
}

// Hooks returns hooks that record every validation, including verdicts the
// HTTP server serves from its cache. The duration histogram only covers
// evaluations that ran the rules.
func (m *Metrics) Hooks() formguard.Hooks {
	return formguard.Hooks{
		OnValidated: func(_ context.Context, e *formguard.ValidationEvent) {
			outcome := "valid"
			if !e.Valid {
				outcome = "invalid"
			}
			m.Validations.WithLabelValues(e.Entity, outcome).Inc()
			if !e.Cached {
				m.Duration.WithLabelValues(e.Entity).Observe(e.Duration.Seconds())
			}
			for _, fe := range e.Errors {
				m.FieldErrors.WithLabelValues(e.Entity, fe.Code).Inc()
			}
		},
	}
}

// ObserveCache records a result cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.Cache.WithLabelValues(result).Inc()
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
