// Package calendar books demo appointments once a lead is qualified.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/sells-group/voice-agent/internal/config"
	"github.com/sells-group/voice-agent/internal/model"
)

// Provider names.
const (
	ProviderMock   = "mock"
	ProviderCalCom = "calcom"
)

// BookingRequest describes the demo to book.
type BookingRequest struct {
	CallID           string
	Timezone         string
	PreferredSlotISO string
	AttendeeName     string
	AttendeeEmail    string
}

// Service books demos. A booking that cannot be made is reported as
// BookingResult{Booked: false, Reason: ...}. An error is returned in addition
// when the provider could not be reached at all; the result still carries a
// reason in that case.
type Service interface {
	BookDemo(ctx context.Context, req BookingRequest) (model.BookingResult, error)
}

// Mock books every request: the preferred slot when given, otherwise the next
// day at 09:00 UTC.
type Mock struct {
	now func() time.Time
}

// NewMock returns a Mock using the wall clock.
func NewMock() *Mock {
	return &Mock{now: time.Now}
}

// BookDemo implements Service.
func (m *Mock) BookDemo(_ context.Context, req BookingRequest) (model.BookingResult, error) {
	slot := req.PreferredSlotISO
	if slot == "" {
		next := m.now().UTC().AddDate(0, 0, 1)
		slot = time.Date(next.Year(), next.Month(), next.Day(), 9, 0, 0, 0, time.UTC).Format(time.RFC3339)
	}
	return model.BookingResult{Booked: true, SlotISO: slot, Provider: ProviderMock}, nil
}

// Unconfigured always declines with a fixed reason.
type Unconfigured struct {
	Provider string
	Reason   string
}

// BookDemo implements Service.
func (u Unconfigured) BookDemo(context.Context, BookingRequest) (model.BookingResult, error) {
	return model.BookingResult{Booked: false, Provider: u.Provider, Reason: u.Reason}, nil
}

// New builds the Service selected by cfg.Calendar.Provider.
func New(cfg *config.Config, opts ...CalComOption) Service {
	switch cfg.Calendar.Provider {
	case ProviderMock, "":
		return NewMock()
	case ProviderCalCom:
		if cfg.CalCom.Key == "" || cfg.CalCom.EventTypeID == 0 {
			return Unconfigured{Provider: ProviderCalCom, Reason: "Missing CALCOM_API_KEY or CALCOM_EVENT_TYPE_ID"}
		}
		return NewCalCom(cfg.CalCom, opts...)
	default:
		return Unconfigured{
			Provider: cfg.Calendar.Provider,
			Reason:   fmt.Sprintf("%s integration is not implemented yet.", cfg.Calendar.Provider),
		}
	}
}
