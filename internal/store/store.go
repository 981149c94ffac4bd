// Package store persists calls, transcripts, latency samples and completion
// records, and aggregates them into dashboard KPIs.
package store

import (
	"context"
	"math"

	"github.com/sells-group/voice-agent/internal/model"
)

// Listing limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// CallStore is the persistence contract used by the dialogue manager and the
// HTTP adapters.
type CallStore interface {
	// GetOrCreateCall returns the call, creating an empty record on first use.
	GetOrCreateCall(ctx context.Context, callID string) (*model.CallRecord, error)
	AddTurn(ctx context.Context, callID string, turn model.TranscriptTurn) (*model.CallRecord, error)
	CompleteCall(ctx context.Context, callID string, rec model.CompletionRecord) (*model.CallRecord, error)
	// AddVoiceLatency appends a latency sample. Negative values are stored as 0.
	AddVoiceLatency(ctx context.Context, callID string, latencyMS int) error
	// GetCall returns nil without error when the call does not exist.
	GetCall(ctx context.Context, callID string) (*model.CallRecord, error)
	ListCalls(ctx context.Context, limit int) ([]model.CallRecord, error)
	ListBookedCalls(ctx context.Context, limit int) ([]model.CallRecord, error)
	KPIs(ctx context.Context) (model.KPISnapshot, error)

	Migrate(ctx context.Context) error
	Close() error
}

// ClampLimit maps a requested list size into [1, MaxListLimit]. Zero means
// DefaultListLimit.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultListLimit
	case limit < 1:
		return 1
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func clampLatency(ms int) int {
	return int(math.Max(0, float64(ms)))
}
