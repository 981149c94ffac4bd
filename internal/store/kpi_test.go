package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/voice-agent/internal/model"
)

func completedCall(id string, grade model.Grade, booked bool, dropOff string, start time.Time, dur time.Duration) model.CallRecord {
	done := start.Add(dur)
	return model.CallRecord{
		ID:        id,
		StartedAt: start,
		Transcript: []model.TranscriptTurn{
			{Speaker: model.SpeakerAgent, Text: "Hallo", Timestamp: start},
			{Speaker: model.SpeakerLead, Text: "Tschuess", Timestamp: done},
		},
		CompletedAt:   &done,
		LeadScore:     &model.LeadScore{Numeric: 70, Grade: grade},
		Booking:       &model.BookingResult{Booked: booked, Provider: "mock"},
		DropOffReason: dropOff,
	}
}

func TestCalculateKPIs_Empty(t *testing.T) {
	t.Parallel()

	snap := CalculateKPIs(nil)
	assert.Equal(t, 0, snap.TotalCalls)
	assert.Zero(t, snap.ConversionRatePercent)
	assert.Zero(t, snap.P95VoiceLatencyMS)
	assert.NotNil(t, snap.DropOffPoints)
	assert.Empty(t, snap.DropOffPoints)
}

func TestCalculateKPIs_Latency(t *testing.T) {
	t.Parallel()

	calls := []model.CallRecord{
		{ID: "call-1", VoiceResponseLatenciesMS: []int{900, 1200, 2000}},
		{ID: "call-2", VoiceResponseLatenciesMS: []int{800}},
	}

	snap := CalculateKPIs(calls)
	assert.Equal(t, 2, snap.TotalCalls)
	assert.Equal(t, 1225, snap.AverageVoiceLatencyMS)
	assert.Equal(t, 2000, snap.P95VoiceLatencyMS)
	assert.InDelta(t, 75.0, snap.Under1500msRatePercent, 0.001)
}

func TestCalculateKPIs_Outcomes(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	calls := []model.CallRecord{
		completedCall("a", model.GradeA, true, "", start, 90*time.Second),
		completedCall("b", model.GradeB, false, "calendar_unavailable", start, 61*time.Second),
		completedCall("c", model.GradeC, false, "calendar_unavailable", start, 30*time.Second),
		{ID: "open", StartedAt: start, DropOffReason: "hangup"},
	}

	snap := CalculateKPIs(calls)
	assert.Equal(t, 4, snap.TotalCalls)
	assert.Equal(t, 3, snap.CompletedCalls)
	assert.Equal(t, 1, snap.BookedCalls)
	assert.InDelta(t, 33.3, snap.ConversionRatePercent, 0.001)
	assert.Equal(t, 60, snap.AverageDurationSeconds)
	assert.Equal(t, model.GradeCounts{A: 1, B: 1, C: 1}, snap.LeadScoreDistribution)
	assert.Equal(t, []model.DropOffPoint{
		{Reason: "calendar_unavailable", Count: 2},
		{Reason: "hangup", Count: 1},
	}, snap.DropOffPoints)
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want int
	}{
		{0, DefaultListLimit},
		{-5, 1},
		{1, 1},
		{250, 250},
		{5000, MaxListLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in), "limit %d", tt.in)
	}
}
