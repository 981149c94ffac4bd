// Package monitoring evaluates call KPIs against thresholds and delivers
// alerts and status heartbeats to a webhook or a Telegram chat.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/voice-agent/internal/model"
	"github.com/sells-group/voice-agent/internal/store"
)

// Snapshot is a point-in-time KPI view over the lookback window.
type Snapshot struct {
	KPIs          model.KPISnapshot `json:"kpis"`
	LookbackHours int               `json:"lookbackHours"`
	CollectedAt   time.Time         `json:"collectedAt"`
}

// CallSource is the slice of the call store the collector reads.
type CallSource interface {
	ListCalls(ctx context.Context, limit int) ([]model.CallRecord, error)
	KPIs(ctx context.Context) (model.KPISnapshot, error)
}

// Collector builds KPI snapshots from the call store.
type Collector struct {
	calls CallSource
	now   func() time.Time
}

// NewCollector creates a collector over calls.
func NewCollector(calls CallSource) *Collector {
	return &Collector{calls: calls, now: time.Now}
}

// Collect aggregates KPIs over calls started in the last lookbackHours. A
// non-positive window covers every stored call. Windowed snapshots see at
// most store.MaxListLimit of the newest calls.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{LookbackHours: lookbackHours, CollectedAt: now}

	if lookbackHours <= 0 {
		kpis, err := c.calls.KPIs(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: load kpis")
		}
		snap.KPIs = kpis
		return snap, nil
	}

	calls, err := c.calls.ListCalls(ctx, store.MaxListLimit)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list calls")
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	recent := make([]model.CallRecord, 0, len(calls))
	for _, call := range calls {
		if !call.StartedAt.Before(cutoff) {
			recent = append(recent, call)
		}
	}
	snap.KPIs = store.CalculateKPIs(recent)
	return snap, nil
}
