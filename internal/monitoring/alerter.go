package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/voice-agent/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertLowConversion AlertType = "low_conversion"
	AlertHighLatency   AlertType = "high_latency"
	AlertSlowResponses AlertType = "slow_responses"
	AlertStatus        AlertType = "status"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notifier delivers one alert to an external channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}

// Alerter evaluates snapshots against configured thresholds and fans alerts
// out to its notifiers.
type Alerter struct {
	cfg       config.MonitoringConfig
	notifiers []Notifier
}

// NewAlerter creates an Alerter. Without notifiers alerts are only logged.
func NewAlerter(cfg config.MonitoringConfig, notifiers ...Notifier) *Alerter {
	return &Alerter{cfg: cfg, notifiers: notifiers}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
// Conversion is only judged once MinCompletedCalls calls have completed;
// latency checks need at least one latency sample. Zero thresholds disable
// their check.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()
	k := snap.KPIs

	if a.cfg.MinConversionPercent > 0 && k.CompletedCalls > 0 &&
		k.CompletedCalls >= a.cfg.MinCompletedCalls &&
		k.ConversionRatePercent < a.cfg.MinConversionPercent {
		alerts = append(alerts, Alert{
			Type:     AlertLowConversion,
			Severity: "high",
			Message: fmt.Sprintf(
				"Conversion rate %.1f%% below threshold %.1f%% (%d booked / %d completed in last %dh)",
				k.ConversionRatePercent, a.cfg.MinConversionPercent,
				k.BookedCalls, k.CompletedCalls, snap.LookbackHours,
			),
			Details: map[string]any{
				"conversion_rate_percent": k.ConversionRatePercent,
				"threshold_percent":       a.cfg.MinConversionPercent,
				"booked":                  k.BookedCalls,
				"completed":               k.CompletedCalls,
			},
			Timestamp: now,
		})
	}

	hasLatency := k.AverageVoiceLatencyMS > 0 || k.P95VoiceLatencyMS > 0 || k.Under1500msRatePercent > 0

	if a.cfg.MaxP95LatencyMS > 0 && hasLatency && k.P95VoiceLatencyMS > a.cfg.MaxP95LatencyMS {
		alerts = append(alerts, Alert{
			Type:     AlertHighLatency,
			Severity: "medium",
			Message: fmt.Sprintf(
				"p95 voice latency %dms exceeds threshold %dms in last %dh",
				k.P95VoiceLatencyMS, a.cfg.MaxP95LatencyMS, snap.LookbackHours,
			),
			Details: map[string]any{
				"p95_latency_ms":     k.P95VoiceLatencyMS,
				"average_latency_ms": k.AverageVoiceLatencyMS,
				"threshold_ms":       a.cfg.MaxP95LatencyMS,
			},
			Timestamp: now,
		})
	}

	if a.cfg.MinFastResponsePercent > 0 && hasLatency && k.Under1500msRatePercent < a.cfg.MinFastResponsePercent {
		alerts = append(alerts, Alert{
			Type:     AlertSlowResponses,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Only %.1f%% of responses under 1500ms, threshold %.1f%% in last %dh",
				k.Under1500msRatePercent, a.cfg.MinFastResponsePercent, snap.LookbackHours,
			),
			Details: map[string]any{
				"under_1500ms_percent": k.Under1500msRatePercent,
				"threshold_percent":    a.cfg.MinFastResponsePercent,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// Status builds the heartbeat message for a snapshot.
func (a *Alerter) Status(snap *Snapshot) Alert {
	k := snap.KPIs
	prefix := a.cfg.HeartbeatPrefix
	if prefix == "" {
		prefix = "Status"
	}
	return Alert{
		Type:     AlertStatus,
		Severity: "info",
		Message: fmt.Sprintf(
			"%s: %d Calls, %d abgeschlossen, %d gebucht (%.1f%%), p95 %dms (%s)",
			prefix, k.TotalCalls, k.CompletedCalls, k.BookedCalls,
			k.ConversionRatePercent, k.P95VoiceLatencyMS,
			snap.CollectedAt.Format(time.RFC3339),
		),
		Details: map[string]any{
			"total_calls":     k.TotalCalls,
			"completed_calls": k.CompletedCalls,
			"booked_calls":    k.BookedCalls,
		},
		Timestamp: snap.CollectedAt,
	}
}

// SendAlerts delivers alerts to every notifier. Returns the number of alerts
// that reached at least one notifier.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if len(a.notifiers) == 0 || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		delivered := false
		for _, n := range a.notifiers {
			if err := n.Notify(ctx, alert); err != nil {
				zap.L().Error("monitoring: failed to send alert",
					zap.String("type", string(alert.Type)),
					zap.String("notifier", n.Name()),
					zap.Error(err),
				)
				continue
			}
			delivered = true
		}
		if delivered {
			zap.L().Info("monitoring: alert sent",
				zap.String("type", string(alert.Type)),
				zap.String("severity", alert.Severity),
			)
			sent++
		}
	}
	return sent
}
