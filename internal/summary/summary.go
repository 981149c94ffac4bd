// Package summary formats the post-call summary and next steps.
package summary

import (
	"fmt"
	"strings"

	"github.com/sells-group/voice-agent/internal/model"
)

var (
	bookedNextSteps    = []string{"Demo vorbereiten", "Use-Case-Deck auf Bedarf zuschneiden", "Follow-up E-Mail versenden"}
	notBookedNextSteps = []string{"Einwand analysieren", "Alternative Offer senden", "Follow-up in 7 Tagen"}
)

// Input is everything the summary is built from.
type Input struct {
	ProductName   string
	Qualification model.Qualification
	LeadScore     model.LeadScore
	Booking       model.BookingResult
}

// Build returns a one-paragraph summary and the next steps for the booking
// outcome.
func Build(in Input) model.CallSummary {
	parts := []string{
		fmt.Sprintf("Lead interessiert an %s fuer Use Case: %s.", in.ProductName, in.Qualification.UseCase),
		fmt.Sprintf("Pain Point: %s.", in.Qualification.PainPoint),
		fmt.Sprintf("Lead Score: %s (%d/100).", in.LeadScore.Grade, in.LeadScore.Numeric),
		bookingLine(in.Booking),
	}

	steps := notBookedNextSteps
	if in.Booking.Booked {
		steps = bookedNextSteps
	}

	return model.CallSummary{
		SummaryText: strings.Join(parts, " "),
		NextSteps:   append([]string(nil), steps...),
	}
}

func bookingLine(b model.BookingResult) string {
	if b.Booked {
		return fmt.Sprintf("Demo gebucht fuer %s.", b.SlotISO)
	}
	reason := b.Reason
	if reason == "" {
		reason = "kein Grund angegeben"
	}
	return fmt.Sprintf("Keine Demo gebucht (%s).", reason)
}
