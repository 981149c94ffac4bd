// Package metrics exposes Prometheus collectors for the voice agent.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives dialogue events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveLatency(op string, d time.Duration)
	ObserveExtraction(source, outcome string)
	ObserveFallback(field string)
	ObserveBooking(provider string, booked bool)
	ObserveCompletion(grade string)
}

// Noop discards every observation.
type Noop struct{}

func (Noop) ObserveLatency(string, time.Duration) {}
func (Noop) ObserveExtraction(string, string)     {}
func (Noop) ObserveFallback(string)               {}
func (Noop) ObserveBooking(string, bool)          {}
func (Noop) ObserveCompletion(string)             {}

// Prometheus records observations into collectors registered on a registry.
type Prometheus struct {
	latency     *prometheus.HistogramVec
	extractions *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	bookings    *prometheus.CounterVec
	completions *prometheus.CounterVec
}

// NewPrometheus registers the voice collectors on reg. Pass
// prometheus.DefaultRegisterer to expose them through promhttp.Handler.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voice_response_latency_seconds",
				Help:    "Wall-clock time to produce an agent utterance",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3, 5, 8},
			},
			[]string{"op"},
		),
		extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voice_extraction_total",
				Help: "Extraction attempts by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voice_fallback_total",
				Help: "Fields force-filled after repeated unresolved prompts",
			},
			[]string{"field"},
		),
		bookings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voice_bookings_total",
				Help: "Demo booking attempts by provider and result",
			},
			[]string{"provider", "booked"},
		),
		completions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voice_calls_completed_total",
				Help: "Qualified calls by lead grade",
			},
			[]string{"grade"},
		),
	}
}

func (p *Prometheus) ObserveLatency(op string, d time.Duration) {
	p.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (p *Prometheus) ObserveExtraction(source, outcome string) {
	p.extractions.WithLabelValues(source, outcome).Inc()
}

func (p *Prometheus) ObserveFallback(field string) {
	p.fallbacks.WithLabelValues(field).Inc()
}

func (p *Prometheus) ObserveBooking(provider string, booked bool) {
	p.bookings.WithLabelValues(provider, strconv.FormatBool(booked)).Inc()
}

func (p *Prometheus) ObserveCompletion(grade string) {
	p.completions.WithLabelValues(grade).Inc()
}
