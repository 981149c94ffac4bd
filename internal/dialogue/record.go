package dialogue

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/voice-agent/internal/model"
	"github.com/sells-group/voice-agent/internal/scorer"
	"github.com/sells-group/voice-agent/internal/summary"
)

// NoBookingProvider marks a completion that skipped the calendar.
const NoBookingProvider = "none"

// ExternalCompletion closes a call qualified outside the voice flow, for
// example by a human agent.
type ExternalCompletion struct {
	CallID           string
	Qualification    model.Qualification
	PreferredSlotISO string
	Profile          model.LeadProfile
	// DropOffReason skips booking and records the call as not booked.
	DropOffReason string
}

// RecordTurn appends a transcript turn without running the state machine.
// A zero timestamp is replaced by the current time.
func (m *Manager) RecordTurn(ctx context.Context, callID string, turn model.TranscriptTurn) (*model.CallRecord, error) {
	if strings.TrimSpace(callID) == "" {
		return nil, eris.Wrap(ErrInvalidInput, "callId is required")
	}
	if !turn.Speaker.Valid() {
		return nil, eris.Wrapf(ErrInvalidInput, "speaker %q must be lead or agent", turn.Speaker)
	}
	if strings.TrimSpace(turn.Text) == "" {
		return nil, eris.Wrap(ErrInvalidInput, "text is required")
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = m.now()
	}
	turn.Timestamp = turn.Timestamp.UTC()

	call, err := m.calls.AddTurn(ctx, callID, turn)
	if err != nil {
		return nil, eris.Wrap(err, "dialogue: record turn")
	}
	return call, nil
}

// CompleteExternal scores, books and persists an externally gathered
// qualification. Any live session for the call is marked completed.
func (m *Manager) CompleteExternal(ctx context.Context, in ExternalCompletion) (*model.CallRecord, error) {
	if err := validateExternal(in); err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("call_id", in.CallID))

	score := scorer.Score(in.Qualification)

	var booking model.BookingResult
	if in.DropOffReason != "" {
		booking = model.BookingResult{Booked: false, Provider: NoBookingProvider, Reason: in.DropOffReason}
	} else {
		booking = m.book(ctx, in.CallID, in.PreferredSlotISO, in.Profile)
	}

	rec := model.CompletionRecord{
		Qualification: in.Qualification,
		LeadScore:     score,
		Booking:       booking,
		Summary: summary.Build(summary.Input{
			ProductName:   m.cfg.ProductName,
			Qualification: in.Qualification,
			LeadScore:     score,
			Booking:       booking,
		}),
		CompletedAt:   m.now().UTC(),
		DropOffReason: in.DropOffReason,
	}
	call, err := m.calls.CompleteCall(ctx, in.CallID, rec)
	if err != nil {
		return nil, eris.Wrap(err, "dialogue: record completion")
	}
	m.metrics.ObserveCompletion(string(score.Grade))

	sess, err := m.sessions.Get(ctx, in.CallID)
	if err != nil {
		return nil, eris.Wrap(err, "dialogue: load session")
	}
	profile := in.Profile
	if sess != nil {
		sess.Completed = true
		sess.Draft = in.Qualification.Draft()
		sess.Profile = sess.Profile.Merge(in.Profile)
		profile = sess.Profile
		if err := m.save(ctx, sess); err != nil {
			return nil, err
		}
	}

	log.Info("call completed externally",
		zap.Int("score", score.Numeric),
		zap.String("grade", string(score.Grade)),
		zap.Bool("booked", booking.Booked),
		zap.String("reason", booking.Reason),
	)
	if m.onComplete != nil {
		m.onComplete(ctx, call, profile)
	}
	return call, nil
}

func validateExternal(in ExternalCompletion) error {
	q := in.Qualification
	var problems []string
	if strings.TrimSpace(in.CallID) == "" {
		problems = append(problems, "callId is required")
	}
	if !q.InterestLevel.Valid() {
		problems = append(problems, "interestLevel must be low, medium or high")
	}
	if q.BudgetMonthlyEUR < 0 {
		problems = append(problems, "budgetMonthlyEur must be >= 0")
	}
	if q.CompanySizeEmployees <= 0 {
		problems = append(problems, "companySizeEmployees must be > 0")
	}
	if q.TimelineWeeks <= 0 {
		problems = append(problems, "timelineWeeks must be > 0")
	}
	if strings.TrimSpace(q.UseCase) == "" {
		problems = append(problems, "useCase is required")
	}
	if strings.TrimSpace(q.PainPoint) == "" {
		problems = append(problems, "painPoint is required")
	}
	if in.PreferredSlotISO != "" {
		if _, err := time.Parse(time.RFC3339, in.PreferredSlotISO); err != nil {
			problems = append(problems, "preferredSlotIso must be RFC3339")
		}
	}
	if len(problems) > 0 {
		return eris.Wrap(ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}
