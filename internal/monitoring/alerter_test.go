package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/voice-agent/internal/config"
	"github.com/sells-group/voice-agent/internal/model"
)

func thresholds() config.MonitoringConfig {
	return config.MonitoringConfig{
		MinCompletedCalls:      5,
		MinConversionPercent:   20,
		MaxP95LatencyMS:        2500,
		MinFastResponsePercent: 80,
		HeartbeatPrefix:        "Voice Agent Status",
	}
}

type recordingNotifier struct {
	name  string
	err   error
	calls []Alert
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(_ context.Context, alert Alert) error {
	r.calls = append(r.calls, alert)
	return r.err
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	t.Parallel()

	a := NewAlerter(thresholds())
	alerts := a.Evaluate(&Snapshot{
		LookbackHours: 24,
		KPIs: model.KPISnapshot{
			CompletedCalls:         10,
			BookedCalls:            4,
			ConversionRatePercent:  40,
			AverageVoiceLatencyMS:  600,
			P95VoiceLatencyMS:      1200,
			Under1500msRatePercent: 97.5,
		},
	})
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_LowConversion(t *testing.T) {
	t.Parallel()

	a := NewAlerter(thresholds())
	alerts := a.Evaluate(&Snapshot{
		LookbackHours: 24,
		KPIs: model.KPISnapshot{
			CompletedCalls:        10,
			BookedCalls:           1,
			ConversionRatePercent: 10,
		},
	})

	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLowConversion, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "10.0%")
	assert.Contains(t, alerts[0].Message, "1 booked / 10 completed")
	assert.Equal(t, 10, alerts[0].Details["completed"])
}

func TestAlerter_Evaluate_MinimumCallsRequired(t *testing.T) {
	t.Parallel()

	a := NewAlerter(thresholds())
	alerts := a.Evaluate(&Snapshot{KPIs: model.KPISnapshot{CompletedCalls: 2}})
	assert.Empty(t, alerts, "two unbooked calls are below the sample floor")
}

func TestAlerter_Evaluate_Latency(t *testing.T) {
	t.Parallel()

	a := NewAlerter(thresholds())
	alerts := a.Evaluate(&Snapshot{
		LookbackHours: 1,
		KPIs: model.KPISnapshot{
			AverageVoiceLatencyMS:  1900,
			P95VoiceLatencyMS:      3200,
			Under1500msRatePercent: 40,
		},
	})

	require.Len(t, alerts, 2)
	assert.Equal(t, AlertHighLatency, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "3200ms")
	assert.Equal(t, AlertSlowResponses, alerts[1].Type)
	assert.Contains(t, alerts[1].Message, "40.0%")
}

func TestAlerter_Evaluate_NoLatencySamples(t *testing.T) {
	t.Parallel()

	a := NewAlerter(thresholds())
	assert.Empty(t, a.Evaluate(&Snapshot{}))
}

func TestAlerter_Evaluate_ZeroThresholdsDisable(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{})
	alerts := a.Evaluate(&Snapshot{KPIs: model.KPISnapshot{
		CompletedCalls:         50,
		P95VoiceLatencyMS:      9000,
		Under1500msRatePercent: 1,
	}})
	assert.Empty(t, alerts)
}

func TestAlerter_Status(t *testing.T) {
	t.Parallel()

	a := NewAlerter(thresholds())
	st := a.Status(&Snapshot{
		CollectedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		KPIs: model.KPISnapshot{
			TotalCalls:            4,
			CompletedCalls:        2,
			BookedCalls:           1,
			ConversionRatePercent: 50,
			P95VoiceLatencyMS:     800,
		},
	})
	assert.Equal(t, AlertStatus, st.Type)
	assert.Equal(t, "Voice Agent Status: 4 Calls, 2 abgeschlossen, 1 gebucht (50.0%), p95 800ms (2026-03-02T12:00:00Z)", st.Message)

	st = NewAlerter(config.MonitoringConfig{}).Status(&Snapshot{})
	assert.Contains(t, st.Message, "Status: 0 Calls")
}

func TestAlerter_SendAlerts(t *testing.T) {
	t.Parallel()

	ok := &recordingNotifier{name: "ok"}
	broken := &recordingNotifier{name: "broken", err: eris.New("nope")}
	a := NewAlerter(thresholds(), broken, ok)

	alerts := []Alert{
		{Type: AlertHighLatency, Severity: "medium", Message: "a"},
		{Type: AlertStatus, Severity: "info", Message: "b"},
	}
	assert.Equal(t, 2, a.SendAlerts(context.Background(), alerts))
	assert.Len(t, ok.calls, 2)
	assert.Len(t, broken.calls, 2)
}

func TestAlerter_SendAlerts_AllFail(t *testing.T) {
	t.Parallel()

	a := NewAlerter(thresholds(), &recordingNotifier{name: "broken", err: eris.New("nope")})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Message: "a"}}))
}

func TestAlerter_SendAlerts_Empty(t *testing.T) {
	t.Parallel()

	n := &recordingNotifier{name: "ok"}
	assert.Equal(t, 0, NewAlerter(thresholds()).SendAlerts(context.Background(), []Alert{{Message: "a"}}))
	assert.Equal(t, 0, NewAlerter(thresholds(), n).SendAlerts(context.Background(), nil))
	assert.Empty(t, n.calls)
}
