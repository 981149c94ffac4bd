package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Observations(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.ObserveLatency("next", 350*time.Millisecond)
	p.ObserveLatency("next", 2*time.Second)
	p.ObserveExtraction("llm", "timeout")
	p.ObserveExtraction("llm", "timeout")
	p.ObserveFallback("interestLevel")
	p.ObserveBooking("mock", true)
	p.ObserveCompletion("A")

	assert.InDelta(t, 2.0, testutil.ToFloat64(p.extractions.WithLabelValues("llm", "timeout")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(p.fallbacks.WithLabelValues("interestLevel")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(p.bookings.WithLabelValues("mock", "true")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(p.completions.WithLabelValues("A")), 0.001)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "voice_response_latency_seconds")
	assert.Equal(t, 1, testutil.CollectAndCount(p.latency))
}

func TestPrometheus_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	NewPrometheus(reg)
	assert.Panics(t, func() { NewPrometheus(reg) })
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var r Recorder = Noop{}
	assert.NotPanics(t, func() {
		r.ObserveLatency("start", time.Second)
		r.ObserveExtraction("heuristic", "hit")
		r.ObserveFallback("budgetMonthlyEur")
		r.ObserveBooking("calcom", false)
		r.ObserveCompletion("C")
	})
}
