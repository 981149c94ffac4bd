// Package dialogue runs the per-call qualification state machine: it asks for
// the next missing field, merges extraction results, force-fills fields after
// repeated misses and hands a complete qualification to scoring and booking.
package dialogue

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/voice-agent/internal/calendar"
	"github.com/sells-group/voice-agent/internal/extract"
	"github.com/sells-group/voice-agent/internal/flow"
	"github.com/sells-group/voice-agent/internal/metrics"
	"github.com/sells-group/voice-agent/internal/model"
	"github.com/sells-group/voice-agent/internal/scorer"
	"github.com/sells-group/voice-agent/internal/store"
	"github.com/sells-group/voice-agent/internal/summary"
)

// DefaultMaxMissesPerField is the number of consecutive unresolved prompts
// after which a field is force-filled.
const DefaultMaxMissesPerField = 2

// Fixed agent texts.
const (
	AcknowledgeText   = "Verstanden, danke."
	AlreadyDoneText   = "Der Call ist bereits abgeschlossen. Wenn du willst, starte ich gerne einen neuen Termin-Check."
	unknownReasonText = "unbekannter Grund"
)

// ErrInvalidInput marks a malformed turn request. Session state is untouched.
var ErrInvalidInput = eris.New("dialogue: invalid input")

// Config holds the deployment settings of a Manager.
type Config struct {
	ProductName       string
	Timezone          string
	MaxMissesPerField int
	MinFreeTextLen    int
}

// NextRequest is one lead turn.
type NextRequest struct {
	CallID           string
	LeadUtterance    string
	Profile          model.LeadProfile
	PreferredSlotISO string
}

// TurnResult is the agent's answer to Start or Next.
type TurnResult struct {
	CallID         string               `json:"callId"`
	AgentUtterance string               `json:"agentUtterance"`
	Captured       model.Draft          `json:"captured"`
	MissingFields  []model.Field        `json:"missingFields"`
	Completed      bool                 `json:"completed"`
	LatencyMS      int64                `json:"agentResponseLatencyMs"`
	Booking        *model.BookingResult `json:"booking,omitempty"`
	Summary        *model.CallSummary   `json:"summary,omitempty"`
}

// CompletionHook is called after a call's completion record is persisted,
// with the contact details collected for the session.
type CompletionHook func(ctx context.Context, call *model.CallRecord, profile model.LeadProfile)

// Option configures a Manager.
type Option func(*Manager)

// WithSessionStore replaces the in-memory session store.
func WithSessionStore(s SessionStore) Option {
	return func(m *Manager) { m.sessions = s }
}

// WithLLMExtractor enables language-model extraction.
func WithLLMExtractor(e *extract.LLMExtractor) Option {
	return func(m *Manager) { m.llm = e }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCompletionHook registers a hook run after every completed call.
func WithCompletionHook(h CompletionHook) Option {
	return func(m *Manager) { m.onComplete = h }
}

// Manager owns the sessions of all calls. Turns for one call id must be
// serialized by the caller; different call ids may run concurrently.
type Manager struct {
	calls      store.CallStore
	calendar   calendar.Service
	flow       *flow.Flow
	cfg        Config
	sessions   SessionStore
	llm        *extract.LLMExtractor
	metrics    metrics.Recorder
	now        func() time.Time
	onComplete CompletionHook
}

// NewManager wires a Manager. A nil flow uses the built-in German defaults.
func NewManager(calls store.CallStore, cal calendar.Service, fl *flow.Flow, cfg Config, opts ...Option) *Manager {
	if cfg.MaxMissesPerField <= 0 {
		cfg.MaxMissesPerField = DefaultMaxMissesPerField
	}
	if cfg.MinFreeTextLen <= 0 {
		cfg.MinFreeTextLen = extract.DefaultMinFreeTextLen
	}
	if fl == nil {
		fl = flow.Default(cfg.ProductName)
	}
	m := &Manager{
		calls:    calls,
		calendar: cal,
		flow:     fl,
		cfg:      cfg,
		sessions: NewMemorySessionStore(),
		metrics:  metrics.Noop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens the call: opening lines plus the question for the first
// missing field.
func (m *Manager) Start(ctx context.Context, callID string, profile model.LeadProfile) (*TurnResult, error) {
	if strings.TrimSpace(callID) == "" {
		return nil, eris.Wrap(ErrInvalidInput, "callId is required")
	}
	begin := m.now()

	sess, err := m.session(ctx, callID)
	if err != nil {
		return nil, err
	}
	sess.Profile = sess.Profile.Merge(profile)

	res, err := m.open(ctx, sess)
	if err != nil {
		return nil, err
	}
	res.LatencyMS = m.recordLatency(ctx, callID, "start", begin)
	return res, nil
}

// Next processes one lead utterance and returns the agent's reply.
func (m *Manager) Next(ctx context.Context, req NextRequest) (*TurnResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	begin := m.now()
	log := zap.L().With(zap.String("call_id", req.CallID))

	sess, err := m.session(ctx, req.CallID)
	if err != nil {
		return nil, err
	}
	sess.Profile = sess.Profile.Merge(req.Profile)

	if !sess.Started {
		openBegin := m.now()
		if _, err := m.open(ctx, sess); err != nil {
			return nil, err
		}
		m.recordLatency(ctx, req.CallID, "start", openBegin)
	}

	if sess.Completed {
		log.Info("turn on completed call ignored")
		if err := m.say(ctx, req.CallID, AlreadyDoneText); err != nil {
			return nil, err
		}
		if err := m.save(ctx, sess); err != nil {
			return nil, err
		}
		return &TurnResult{
			CallID:         req.CallID,
			AgentUtterance: AlreadyDoneText,
			Captured:       sess.Draft,
			MissingFields:  []model.Field{},
			Completed:      true,
			LatencyMS:      m.recordLatency(ctx, req.CallID, "next", begin),
		}, nil
	}

	if _, err := m.calls.AddTurn(ctx, req.CallID, model.TranscriptTurn{
		Speaker:   model.SpeakerLead,
		Text:      req.LeadUtterance,
		Timestamp: m.now().UTC(),
	}); err != nil {
		return nil, eris.Wrap(err, "dialogue: record lead turn")
	}

	missing := model.MissingFields(sess.Draft)
	var prompted model.Field
	if len(missing) > 0 {
		prompted = missing[0]
	}

	sess.Draft = extract.Apply(sess.Draft, m.extractPatches(ctx, req.LeadUtterance, sess.Draft, prompted)...)
	missing = model.MissingFields(sess.Draft)

	var notice string
	if prompted != "" {
		if slices.Contains(missing, prompted) {
			sess.FieldMisses[prompted]++
			if sess.FieldMisses[prompted] >= m.cfg.MaxMissesPerField {
				log.Info("field force-filled after repeated misses",
					zap.String("field", string(prompted)),
					zap.Int("misses", sess.FieldMisses[prompted]),
				)
				sess.Draft = sess.Draft.Merge(fallbackPatch(prompted))
				sess.FieldMisses[prompted] = 0
				notice = fallbackNotice(prompted)
				missing = model.MissingFields(sess.Draft)
				m.metrics.ObserveFallback(string(prompted))
			}
		} else {
			sess.FieldMisses[prompted] = 0
		}
	}

	if len(missing) > 0 {
		utterance := m.followUp(notice, req.LeadUtterance, missing[0])
		if err := m.say(ctx, req.CallID, utterance); err != nil {
			return nil, err
		}
		if err := m.save(ctx, sess); err != nil {
			return nil, err
		}
		return &TurnResult{
			CallID:         req.CallID,
			AgentUtterance: utterance,
			Captured:       sess.Draft,
			MissingFields:  missing,
			Completed:      false,
			LatencyMS:      m.recordLatency(ctx, req.CallID, "next", begin),
		}, nil
	}

	return m.complete(ctx, sess, req, begin)
}

// EvictIdle drops sessions idle for longer than ttl.
func (m *Manager) EvictIdle(ctx context.Context, ttl time.Duration) (int, error) {
	n, err := m.sessions.Evict(ctx, m.now().Add(-ttl))
	return n, eris.Wrap(err, "dialogue: evict idle sessions")
}

// open marks the session started and emits the opening utterance.
func (m *Manager) open(ctx context.Context, sess *Session) (*TurnResult, error) {
	sess.Started = true

	missing := model.MissingFields(sess.Draft)
	nextField := model.FieldInterestLevel
	if len(missing) > 0 {
		nextField = missing[0]
	}
	utterance := strings.TrimSpace(m.flow.OpeningText() + " " + m.flow.Question(nextField))

	if err := m.say(ctx, sess.CallID, utterance); err != nil {
		return nil, err
	}
	if err := m.save(ctx, sess); err != nil {
		return nil, err
	}
	return &TurnResult{
		CallID:         sess.CallID,
		AgentUtterance: utterance,
		Captured:       sess.Draft,
		MissingFields:  missing,
		Completed:      false,
	}, nil
}

// extractPatches returns the patches in merge order: language model,
// heuristic, then the direct parse for the prompted field.
func (m *Manager) extractPatches(ctx context.Context, text string, draft model.Draft, prompted model.Field) []extract.Patch {
	var llmPatch extract.Patch
	if m.llm.Enabled() {
		res := m.llm.Run(ctx, text, draft)
		m.metrics.ObserveExtraction("llm", res.Reason)
		if res.Err != nil {
			zap.L().Debug("llm extraction degraded to empty patch",
				zap.String("reason", res.Reason),
				zap.Error(res.Err),
			)
		}
		llmPatch = res.Patch
	}

	heuristic := extract.Heuristic(text, draft)
	m.metrics.ObserveExtraction("heuristic", outcome(heuristic))

	var direct extract.Patch
	if prompted != "" {
		direct = extract.Prompted(prompted, text, m.cfg.MinFreeTextLen)
		m.metrics.ObserveExtraction("prompted", outcome(direct))
	}
	return []extract.Patch{llmPatch, heuristic, direct}
}

func (m *Manager) followUp(notice, leadUtterance string, nextField model.Field) string {
	prefix := notice
	if prefix == "" {
		prefix = AcknowledgeText
	}
	parts := []string{prefix}
	if hint := m.flow.ObjectionHint(leadUtterance); hint != "" {
		parts = append(parts, hint)
	}
	parts = append(parts, m.flow.Question(nextField))
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (m *Manager) complete(ctx context.Context, sess *Session, req NextRequest, begin time.Time) (*TurnResult, error) {
	log := zap.L().With(zap.String("call_id", req.CallID))

	qualification, _ := sess.Draft.Complete()
	score := scorer.Score(qualification)

	booking := m.book(ctx, req.CallID, req.PreferredSlotISO, sess.Profile)

	callSummary := summary.Build(summary.Input{
		ProductName:   m.cfg.ProductName,
		Qualification: qualification,
		LeadScore:     score,
		Booking:       booking,
	})

	rec := model.CompletionRecord{
		Qualification: qualification,
		LeadScore:     score,
		Booking:       booking,
		Summary:       callSummary,
		CompletedAt:   m.now().UTC(),
	}
	if !booking.Booked {
		rec.DropOffReason = booking.Reason
	}
	call, err := m.calls.CompleteCall(ctx, req.CallID, rec)
	if err != nil {
		return nil, eris.Wrap(err, "dialogue: record completion")
	}
	// A retried turn must see the call as completed even if the closing turn fails.
	sess.Completed = true
	if err := m.save(ctx, sess); err != nil {
		return nil, err
	}
	m.metrics.ObserveCompletion(string(score.Grade))

	closing := closingText(booking)
	if err := m.say(ctx, req.CallID, closing); err != nil {
		return nil, err
	}

	log.Info("call qualified",
		zap.Int("score", score.Numeric),
		zap.String("grade", string(score.Grade)),
		zap.Bool("booked", booking.Booked),
		zap.String("reason", booking.Reason),
	)
	if m.onComplete != nil {
		m.onComplete(ctx, call, sess.Profile)
	}

	return &TurnResult{
		CallID:         req.CallID,
		AgentUtterance: closing,
		Captured:       qualification.Draft(),
		MissingFields:  []model.Field{},
		Completed:      true,
		LatencyMS:      m.recordLatency(ctx, req.CallID, "next", begin),
		Booking:        &booking,
		Summary:        &callSummary,
	}, nil
}

// book asks the calendar for a demo slot. A provider error becomes an
// unbooked result carrying the error text.
func (m *Manager) book(ctx context.Context, callID, preferredSlot string, profile model.LeadProfile) model.BookingResult {
	booking, err := m.calendar.BookDemo(ctx, calendar.BookingRequest{
		CallID:           callID,
		Timezone:         m.cfg.Timezone,
		PreferredSlotISO: preferredSlot,
		AttendeeName:     profile.Name,
		AttendeeEmail:    profile.Email,
	})
	if err != nil {
		zap.L().Warn("demo booking failed",
			zap.String("call_id", callID),
			zap.String("provider", booking.Provider),
			zap.Error(err),
		)
		booking.Booked = false
		if booking.Reason == "" {
			booking.Reason = err.Error()
		}
	}
	m.metrics.ObserveBooking(booking.Provider, booking.Booked)
	return booking
}

func closingText(b model.BookingResult) string {
	if b.Booked {
		return "Perfekt, Termin ist fuer " + b.SlotISO + " reserviert. Ich sende dir die Details im Anschluss."
	}
	reason := b.Reason
	if reason == "" {
		reason = unknownReasonText
	}
	return "Danke fuer die Infos. Ich konnte den Termin noch nicht buchen: " + reason + "."
}

// session loads the call's session, seeding a new one from any persisted
// qualification.
func (m *Manager) session(ctx context.Context, callID string) (*Session, error) {
	sess, err := m.sessions.Get(ctx, callID)
	if err != nil {
		return nil, eris.Wrap(err, "dialogue: load session")
	}
	if sess != nil {
		return sess, nil
	}

	call, err := m.calls.GetCall(ctx, callID)
	if err != nil {
		return nil, eris.Wrap(err, "dialogue: load prior call")
	}
	sess = &Session{CallID: callID, FieldMisses: make(map[model.Field]int)}
	if call != nil {
		if call.Qualification != nil {
			sess.Draft = call.Qualification.Draft()
		}
		sess.Completed = call.Completed()
	}
	return sess, nil
}

func (m *Manager) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = m.now()
	return eris.Wrap(m.sessions.Put(ctx, sess), "dialogue: save session")
}

func (m *Manager) say(ctx context.Context, callID, text string) error {
	_, err := m.calls.AddTurn(ctx, callID, model.TranscriptTurn{
		Speaker:   model.SpeakerAgent,
		Text:      text,
		Timestamp: m.now().UTC(),
	})
	return eris.Wrap(err, "dialogue: record agent turn")
}

// recordLatency reports the elapsed time since begin. A failed write is logged
// and does not fail the turn.
func (m *Manager) recordLatency(ctx context.Context, callID, op string, begin time.Time) int64 {
	elapsed := m.now().Sub(begin)
	ms := elapsed.Milliseconds()
	m.metrics.ObserveLatency(op, elapsed)
	if err := m.calls.AddVoiceLatency(ctx, callID, int(ms)); err != nil {
		zap.L().Warn("record voice latency failed",
			zap.String("call_id", callID),
			zap.Int64("latency_ms", ms),
			zap.Error(err),
		)
	}
	return ms
}

func validate(req NextRequest) error {
	if strings.TrimSpace(req.CallID) == "" {
		return eris.Wrap(ErrInvalidInput, "callId is required")
	}
	if strings.TrimSpace(req.LeadUtterance) == "" {
		return eris.Wrap(ErrInvalidInput, "leadUtterance is required")
	}
	if req.PreferredSlotISO != "" {
		if _, err := time.Parse(time.RFC3339, req.PreferredSlotISO); err != nil {
			return eris.Wrapf(ErrInvalidInput, "preferredSlotIso %q is not RFC3339", req.PreferredSlotISO)
		}
	}
	return nil
}

func outcome(p extract.Patch) string {
	if p.Empty() {
		return "miss"
	}
	return "hit"
}
