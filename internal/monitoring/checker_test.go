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

func TestChecker_Check(t *testing.T) {
	t.Parallel()

	src := &fakeCalls{kpis: model.KPISnapshot{
		CompletedCalls:        10,
		BookedCalls:           1,
		ConversionRatePercent: 10,
	}}
	cfg := thresholds()
	n := &recordingNotifier{name: "rec"}
	checker := NewChecker(NewCollector(src), NewAlerter(cfg, n), cfg)

	assert.Equal(t, 1, checker.Check(context.Background()))
	require.Len(t, n.calls, 1)
	assert.Equal(t, AlertLowConversion, n.calls[0].Type)
}

func TestChecker_Heartbeat(t *testing.T) {
	t.Parallel()

	cfg := thresholds()
	cfg.Heartbeat = true
	n := &recordingNotifier{name: "rec"}
	checker := NewChecker(NewCollector(&fakeCalls{}), NewAlerter(cfg, n), cfg)

	assert.Equal(t, 1, checker.Check(context.Background()))
	require.Len(t, n.calls, 1)
	assert.Equal(t, AlertStatus, n.calls[0].Type)
	assert.Contains(t, n.calls[0].Message, "Voice Agent Status: 0 Calls")
}

func TestChecker_CollectError(t *testing.T) {
	t.Parallel()

	cfg := thresholds()
	cfg.Heartbeat = true
	n := &recordingNotifier{name: "rec"}
	checker := NewChecker(NewCollector(&fakeCalls{kpiErr: eris.New("down")}), NewAlerter(cfg, n), cfg)

	assert.Equal(t, 0, checker.Check(context.Background()))
	assert.Empty(t, n.calls)
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := config.MonitoringConfig{CheckIntervalSecs: 1}
	checker := NewChecker(NewCollector(&fakeCalls{}), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	t.Parallel()

	checker := NewChecker(NewCollector(&fakeCalls{}), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}
