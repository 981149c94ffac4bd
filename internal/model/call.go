package model

import "time"

// Speaker identifies who produced a transcript turn.
type Speaker string

const (
	SpeakerLead  Speaker = "lead"
	SpeakerAgent Speaker = "agent"
)

// Valid reports whether s is lead or agent.
func (s Speaker) Valid() bool {
	return s == SpeakerLead || s == SpeakerAgent
}

// TranscriptTurn is one utterance of a call.
type TranscriptTurn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Grade is the letter bucket of a lead score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
)

// LeadScore is derived from a complete qualification.
type LeadScore struct {
	Numeric int   `json:"numeric"`
	Grade   Grade `json:"grade"`
}

// BookingResult is the calendar collaborator's answer to a demo booking.
// Booked=false is a normal outcome; Reason then explains why.
type BookingResult struct {
	Booked   bool   `json:"booked"`
	SlotISO  string `json:"slotIso,omitempty"`
	Provider string `json:"provider"`
	Reason   string `json:"reason,omitempty"`
}

// CallSummary is the human-readable outcome of a qualified call.
type CallSummary struct {
	SummaryText string   `json:"summaryText"`
	NextSteps   []string `json:"nextSteps"`
}

// CompletionRecord is persisted once per completed call.
type CompletionRecord struct {
	Qualification Qualification `json:"qualification"`
	LeadScore     LeadScore     `json:"leadScore"`
	Booking       BookingResult `json:"booking"`
	Summary       CallSummary   `json:"summary"`
	CompletedAt   time.Time     `json:"completedAt"`
	DropOffReason string        `json:"dropOffReason,omitempty"`
}

// CallRecord is the persisted view of a call.
type CallRecord struct {
	ID                       string           `json:"id"`
	StartedAt                time.Time        `json:"startedAt"`
	CompletedAt              *time.Time       `json:"completedAt,omitempty"`
	Transcript               []TranscriptTurn `json:"transcript"`
	VoiceResponseLatenciesMS []int            `json:"voiceResponseLatenciesMs"`
	Qualification            *Qualification   `json:"qualification,omitempty"`
	LeadScore                *LeadScore       `json:"leadScore,omitempty"`
	Booking                  *BookingResult   `json:"booking,omitempty"`
	Summary                  *CallSummary     `json:"summary,omitempty"`
	DropOffReason            string           `json:"dropOffReason,omitempty"`
}

// Completed reports whether the call has a completion record.
func (c *CallRecord) Completed() bool {
	return c != nil && c.CompletedAt != nil
}

// ApplyCompletion copies a completion record onto the call.
func (c *CallRecord) ApplyCompletion(rec CompletionRecord) {
	completedAt := rec.CompletedAt
	qualification := rec.Qualification
	score := rec.LeadScore
	booking := rec.Booking
	summary := rec.Summary
	c.CompletedAt = &completedAt
	c.Qualification = &qualification
	c.LeadScore = &score
	c.Booking = &booking
	c.Summary = &summary
	c.DropOffReason = rec.DropOffReason
}

// GradeCounts tallies completed calls per lead grade.
type GradeCounts struct {
	A int `json:"A"`
	B int `json:"B"`
	C int `json:"C"`
}

// DropOffPoint counts calls that ended without a booking for one reason.
type DropOffPoint struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// KPISnapshot aggregates dashboard metrics over stored calls.
type KPISnapshot struct {
	TotalCalls             int            `json:"totalCalls"`
	CompletedCalls         int            `json:"completedCalls"`
	BookedCalls            int            `json:"bookedCalls"`
	ConversionRatePercent  float64        `json:"conversionRatePercent"`
	AverageDurationSeconds int            `json:"averageDurationSeconds"`
	AverageVoiceLatencyMS  int            `json:"averageVoiceLatencyMs"`
	P95VoiceLatencyMS      int            `json:"p95VoiceLatencyMs"`
	Under1500msRatePercent float64        `json:"under1500msRatePercent"`
	LeadScoreDistribution  GradeCounts    `json:"leadScoreDistribution"`
	DropOffPoints          []DropOffPoint `json:"dropOffPoints"`
}
