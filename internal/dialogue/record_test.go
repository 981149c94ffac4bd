package dialogue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/voice-agent/internal/calendar"
	"github.com/sells-group/voice-agent/internal/model"
)

func externalQualification() model.Qualification {
	return model.Qualification{
		InterestLevel:        model.InterestHigh,
		BudgetMonthlyEUR:     2400,
		CompanySizeEmployees: 180,
		TimelineWeeks:        4,
		HasAuthority:         true,
		UseCase:              "Inbound-B2B Qualifizierung",
		PainPoint:            "Antwortzeiten nachts und am Wochenende",
	}
}

func TestManager_RecordTurn(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, calendar.NewMock())
	ctx := context.Background()

	ts := time.Date(2026, 3, 2, 11, 0, 0, 0, time.FixedZone("CET", 3600))
	call, err := m.RecordTurn(ctx, "call-1", model.TranscriptTurn{Speaker: model.SpeakerLead, Text: "Hallo", Timestamp: ts})
	require.NoError(t, err)
	require.Len(t, call.Transcript, 1)
	assert.Equal(t, time.UTC, call.Transcript[0].Timestamp.Location())
	assert.True(t, ts.Equal(call.Transcript[0].Timestamp))

	call, err = m.RecordTurn(ctx, "call-1", model.TranscriptTurn{Speaker: model.SpeakerAgent, Text: "Hi"})
	require.NoError(t, err)
	require.Len(t, call.Transcript, 2)
	assert.False(t, call.Transcript[1].Timestamp.IsZero())
}

func TestManager_RecordTurn_Invalid(t *testing.T) {
	t.Parallel()

	m, calls := newTestManager(t, calendar.NewMock())
	ctx := context.Background()

	tests := []struct {
		name   string
		callID string
		turn   model.TranscriptTurn
	}{
		{"empty call id", " ", model.TranscriptTurn{Speaker: model.SpeakerLead, Text: "x"}},
		{"bad speaker", "c", model.TranscriptTurn{Speaker: "bot", Text: "x"}},
		{"empty text", "c", model.TranscriptTurn{Speaker: model.SpeakerLead, Text: "  "}},
	}
	for _, tt := range tests {
		_, err := m.RecordTurn(ctx, tt.callID, tt.turn)
		assert.ErrorIs(t, err, ErrInvalidInput, tt.name)
	}
	list, err := calls.ListCalls(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestManager_CompleteExternal_KPIs(t *testing.T) {
	t.Parallel()

	m, calls := newTestManager(t, calendar.NewMock())
	ctx := context.Background()

	_, err := m.RecordTurn(ctx, "call-1", model.TranscriptTurn{Speaker: model.SpeakerLead, Text: "Wir wollen schneller qualifizieren"})
	require.NoError(t, err)
	booked, err := m.CompleteExternal(ctx, ExternalCompletion{CallID: "call-1", Qualification: externalQualification()})
	require.NoError(t, err)
	require.NotNil(t, booked.Booking)
	assert.True(t, booked.Booking.Booked)
	assert.Empty(t, booked.DropOffReason)

	lost := externalQualification()
	lost.InterestLevel = model.InterestMedium
	lost.BudgetMonthlyEUR = 700
	lost.HasAuthority = false
	dropped, err := m.CompleteExternal(ctx, ExternalCompletion{
		CallID:        "call-2",
		Qualification: lost,
		DropOffReason: "Budget zu hoch",
	})
	require.NoError(t, err)
	assert.False(t, dropped.Booking.Booked)
	assert.Equal(t, NoBookingProvider, dropped.Booking.Provider)
	assert.Equal(t, "Budget zu hoch", dropped.DropOffReason)

	kpis, err := calls.KPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, kpis.CompletedCalls)
	assert.Equal(t, 1, kpis.BookedCalls)
	assert.InDelta(t, 50.0, kpis.ConversionRatePercent, 0.001)
	require.NotEmpty(t, kpis.DropOffPoints)
	assert.Equal(t, "Budget zu hoch", kpis.DropOffPoints[0].Reason)
}

func TestManager_CompleteExternal_DropOffSkipsCalendar(t *testing.T) {
	t.Parallel()

	cal := &calendarMock{}
	m, _ := newTestManager(t, cal)
	_, err := m.CompleteExternal(context.Background(), ExternalCompletion{
		CallID:        "call-x",
		Qualification: externalQualification(),
		DropOffReason: "Kein Interesse",
	})
	require.NoError(t, err)
	cal.AssertNotCalled(t, "BookDemo", mock.Anything, mock.Anything)
}

func TestManager_CompleteExternal_ClosesLiveSession(t *testing.T) {
	t.Parallel()

	var hooked model.LeadProfile
	m, _ := newTestManager(t, calendar.NewMock(), WithCompletionHook(func(_ context.Context, _ *model.CallRecord, p model.LeadProfile) {
		hooked = p
	}))
	ctx := context.Background()

	_, err := m.Start(ctx, "call-live", model.LeadProfile{Name: "Jana"})
	require.NoError(t, err)
	_, err = m.CompleteExternal(ctx, ExternalCompletion{
		CallID:        "call-live",
		Qualification: externalQualification(),
		Profile:       model.LeadProfile{Email: "jana@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.LeadProfile{Name: "Jana", Email: "jana@example.com"}, hooked)

	res := next(t, m, "call-live", "Noch eine Frage")
	assert.True(t, res.Completed)
	assert.Equal(t, AlreadyDoneText, res.AgentUtterance)
}

func TestManager_CompleteExternal_Invalid(t *testing.T) {
	t.Parallel()

	m, calls := newTestManager(t, calendar.NewMock())
	q := externalQualification()
	q.InterestLevel = "urgent"
	q.CompanySizeEmployees = 0
	_, err := m.CompleteExternal(context.Background(), ExternalCompletion{CallID: "c", Qualification: q, PreferredSlotISO: "morgen"})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "interestLevel")
	assert.Contains(t, err.Error(), "companySizeEmployees")
	assert.Contains(t, err.Error(), "preferredSlotIso")

	call, err := calls.GetCall(context.Background(), "c")
	require.NoError(t, err)
	assert.Nil(t, call)
}
