// Package crm pushes qualified calls into the sales CRM.
package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/voice-agent/internal/model"
	"github.com/sells-group/voice-agent/pkg/salesforce"
)

// Sink receives every completed call.
type Sink interface {
	Push(ctx context.Context, call *model.CallRecord, profile model.LeadProfile) error
}

// Noop discards calls.
type Noop struct{}

// Push implements Sink.
func (Noop) Push(context.Context, *model.CallRecord, model.LeadProfile) error { return nil }

const (
	unknownLastName = "Unbekannt"
	unknownCompany  = "Unbekannt"
	leadSource      = "Voice Agent"

	statusBooked    = "Working - Contacted"
	statusNotBooked = "Open - Not Contacted"
)

// SalesforceSink upserts a Lead per completed call, matched by email.
type SalesforceSink struct {
	client salesforce.Client
}

// NewSalesforceSink wraps a Salesforce client.
func NewSalesforceSink(client salesforce.Client) *SalesforceSink {
	return &SalesforceSink{client: client}
}

// Push creates the Lead, or updates it when one with the same email exists.
// Calls without an email always create a new Lead.
func (s *SalesforceSink) Push(ctx context.Context, call *model.CallRecord, profile model.LeadProfile) error {
	if !call.Completed() {
		return eris.Errorf("crm: call %s is not completed", callID(call))
	}

	if !UsableEmail(profile.Email) {
		profile.Email = ""
	}
	fields := LeadFields(call, profile)
	log := zap.L().With(zap.String("call_id", call.ID))

	if profile.Email != "" {
		existing, err := salesforce.FindLeadByEmail(ctx, s.client, profile.Email)
		if err != nil {
			return eris.Wrap(err, "crm: lookup lead")
		}
		if existing != nil {
			// Name and company stay as the sales team entered them.
			delete(fields, "LastName")
			delete(fields, "Company")
			if existing.FirstName != "" {
				delete(fields, "FirstName")
			}
			if err := salesforce.UpdateLead(ctx, s.client, existing.ID, fields); err != nil {
				return eris.Wrap(err, "crm: update lead")
			}
			log.Info("crm: lead updated", zap.String("lead_id", existing.ID))
			return nil
		}
	}

	id, err := salesforce.CreateLead(ctx, s.client, fields)
	if err != nil {
		return eris.Wrap(err, "crm: create lead")
	}
	log.Info("crm: lead created", zap.String("lead_id", id))
	return nil
}

// LeadFields maps a completed call onto Salesforce Lead fields.
func LeadFields(call *model.CallRecord, profile model.LeadProfile) map[string]any {
	first, last := splitName(profile.Name)
	fields := map[string]any{
		"FirstName":  first,
		"LastName":   last,
		"Company":    unknownCompany,
		"LeadSource": leadSource,
		"Status":     statusNotBooked,
	}
	if profile.Email != "" {
		fields["Email"] = profile.Email
	}
	if call.LeadScore != nil {
		fields["Rating"] = rating(call.LeadScore.Grade)
	}
	if call.Booking != nil && call.Booking.Booked {
		fields["Status"] = statusBooked
	}
	fields["Description"] = description(call)
	return fields
}

// UsableEmail reports whether email can identify a Lead. Placeholder
// addresses under the reserved .invalid TLD, as assigned to phone callers,
// are not.
func UsableEmail(email string) bool {
	email = strings.TrimSpace(strings.ToLower(email))
	return email != "" && strings.Contains(email, "@") && !strings.HasSuffix(email, ".invalid")
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", unknownLastName
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func rating(g model.Grade) string {
	switch g {
	case model.GradeA:
		return "Hot"
	case model.GradeB:
		return "Warm"
	default:
		return "Cold"
	}
}

func description(call *model.CallRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Voice call %s", call.ID)
	if call.LeadScore != nil {
		fmt.Fprintf(&b, " | Score %d (%s)", call.LeadScore.Numeric, call.LeadScore.Grade)
	}
	b.WriteString("\n")
	if call.Summary != nil {
		b.WriteString(call.Summary.SummaryText)
		b.WriteString("\n")
		for _, step := range call.Summary.NextSteps {
			b.WriteString("- ")
			b.WriteString(step)
			b.WriteString("\n")
		}
	}
	if call.Booking != nil {
		if call.Booking.Booked {
			fmt.Fprintf(&b, "Demo: %s (%s)\n", call.Booking.SlotISO, call.Booking.Provider)
		} else {
			fmt.Fprintf(&b, "Keine Demo gebucht: %s\n", call.Booking.Reason)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func callID(call *model.CallRecord) string {
	if call == nil {
		return "<nil>"
	}
	return call.ID
}
