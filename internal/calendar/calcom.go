package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/voice-agent/internal/config"
	"github.com/sells-group/voice-agent/internal/model"
	"github.com/sells-group/voice-agent/internal/resilience"
)

const (
	slotLookaheadDays = 14

	// Oldest API versions that serve the v2 slots and bookings endpoints.
	slotsAPIVersion    = "2024-09-04"
	bookingsAPIVersion = "2024-08-13"

	defaultAttendeeName = "Contest Lead"
)

// CalComOption configures the Cal.com client.
type CalComOption func(*CalCom)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) CalComOption {
	return func(c *CalCom) {
		c.http = hc
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(rc resilience.RetryConfig) CalComOption {
	return func(c *CalCom) {
		c.retry = rc
	}
}

// WithClock sets the clock used to compute the slot search window.
func WithClock(now func() time.Time) CalComOption {
	return func(c *CalCom) {
		c.now = now
	}
}

// CalCom books demos through the Cal.com v2 API.
type CalCom struct {
	cfg     config.CalComConfig
	http    *http.Client
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	now     func() time.Time
}

// NewCalCom creates a Cal.com booking client.
func NewCalCom(cfg config.CalComConfig, opts ...CalComOption) *CalCom {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cal.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.APIVersion == "" {
		cfg.APIVersion = slotsAPIVersion
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("calcom", "request")

	c := &CalCom{
		cfg:     cfg,
		http:    &http.Client{Timeout: 10 * time.Second},
		retry:   retry,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type slotsResponse struct {
	Data map[string][]struct {
		Start string `json:"start"`
	} `json:"data"`
}

type bookingPayload struct {
	Start       string            `json:"start"`
	EventTypeID int               `json:"eventTypeId"`
	Attendee    bookingAttendee   `json:"attendee"`
	Metadata    map[string]string `json:"metadata"`
}

type bookingAttendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"timeZone"`
}

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

// BookDemo implements Service.
func (c *CalCom) BookDemo(ctx context.Context, req BookingRequest) (model.BookingResult, error) {
	result, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (model.BookingResult, error) {
		return c.book(ctx, req)
	})
	if eris.Is(err, resilience.ErrCircuitOpen) {
		return model.BookingResult{
			Provider: ProviderCalCom,
			Reason:   "Cal.com temporarily unavailable: circuit breaker is open",
		}, nil
	}
	return result, err
}

// book returns an error only for transport failures so the circuit breaker
// sees outages, not declined bookings.
func (c *CalCom) book(ctx context.Context, req BookingRequest) (model.BookingResult, error) {
	slot := req.PreferredSlotISO
	if slot == "" {
		found, err := c.firstAvailableSlot(ctx, req.Timezone)
		if err != nil {
			zap.L().Warn("calcom: slot lookup failed", zap.String("call_id", req.CallID), zap.Error(err))
		}
		if found == "" {
			return model.BookingResult{
				Provider: ProviderCalCom,
				Reason:   "No available slots found for this event type.",
			}, nil
		}
		slot = found
	}

	resp, err := c.createBooking(ctx, slot, req)
	if err != nil {
		return model.BookingResult{
			Provider: ProviderCalCom,
			Reason:   fmt.Sprintf("Cal.com request error: %v", err),
		}, err
	}
	if resp.status < 200 || resp.status >= 300 {
		return model.BookingResult{
			Provider: ProviderCalCom,
			Reason:   fmt.Sprintf("Cal.com booking failed (%d): %s", resp.status, strings.TrimSpace(string(resp.body))),
		}, nil
	}

	return model.BookingResult{Booked: true, SlotISO: slot, Provider: ProviderCalCom}, nil
}

// firstAvailableSlot returns the earliest slot in the lookahead window
// starting tomorrow, or "" when there is none.
func (c *CalCom) firstAvailableSlot(ctx context.Context, timezone string) (string, error) {
	start := c.now().UTC().AddDate(0, 0, 1)
	end := start.AddDate(0, 0, slotLookaheadDays)

	query := url.Values{}
	query.Set("eventTypeId", strconv.Itoa(c.cfg.EventTypeID))
	query.Set("start", start.Format(time.DateOnly))
	query.Set("end", end.Format(time.DateOnly))
	query.Set("timeZone", timezone)
	endpoint := c.cfg.BaseURL + "/v2/slots?" + query.Encode()

	for _, version := range versions(c.cfg.APIVersion, slotsAPIVersion) {
		resp, err := c.do(ctx, http.MethodGet, endpoint, version, nil)
		if err != nil {
			return "", err
		}
		if resp.status == http.StatusNotFound {
			continue
		}
		if resp.status < 200 || resp.status >= 300 {
			return "", eris.Errorf("calcom: slots status %d", resp.status)
		}

		var payload slotsResponse
		if err := json.Unmarshal(resp.body, &payload); err != nil {
			return "", eris.Wrap(err, "calcom: decode slots")
		}
		return earliestSlot(payload), nil
	}
	return "", nil
}

func earliestSlot(payload slotsResponse) string {
	dates := make([]string, 0, len(payload.Data))
	for d := range payload.Data {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		for _, s := range payload.Data[d] {
			if s.Start != "" {
				return s.Start
			}
		}
	}
	return ""
}

func (c *CalCom) createBooking(ctx context.Context, slot string, req BookingRequest) (response, error) {
	name := req.AttendeeName
	if name == "" {
		name = defaultAttendeeName
	}
	email := req.AttendeeEmail
	if email == "" {
		email = req.CallID + "@example.invalid"
	}

	body, err := json.Marshal(bookingPayload{
		Start:       slot,
		EventTypeID: c.cfg.EventTypeID,
		Attendee:    bookingAttendee{Name: name, Email: email, TimeZone: req.Timezone},
		Metadata:    map[string]string{"callId": req.CallID},
	})
	if err != nil {
		return response{}, eris.Wrap(err, "calcom: marshal booking")
	}

	var last response
	for _, version := range versions(c.cfg.APIVersion, bookingsAPIVersion) {
		last, err = c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/bookings", version, body)
		if err != nil {
			return response{}, err
		}
		if last.status != http.StatusNotFound {
			return last, nil
		}
	}
	return last, nil
}

// do sends one request, retrying transient statuses and network errors. A
// transient status that survives all attempts is returned as a response.
func (c *CalCom) do(ctx context.Context, method, endpoint, version string, body []byte) (response, error) {
	var last response
	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (response, error) {
		last = response{}
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return response{}, eris.Wrap(err, "calcom: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.Key)
		req.Header.Set("cal-api-version", version)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		httpResp, err := c.http.Do(req)
		if err != nil {
			return response{}, eris.Wrap(err, "calcom: request")
		}
		defer httpResp.Body.Close() //nolint:errcheck

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return response{}, eris.Wrap(err, "calcom: read body")
		}
		last = response{status: httpResp.StatusCode, body: data}
		if resilience.IsTransientHTTPStatus(httpResp.StatusCode) {
			return last, resilience.HTTPStatusError("calcom", httpResp.StatusCode, string(data))
		}
		return last, nil
	})
	if err != nil && last.status != 0 {
		return last, nil
	}
	return resp, err
}

// versions returns preferred followed by fallback, without duplicates.
func versions(preferred, fallback string) []string {
	if preferred == fallback {
		return []string{preferred}
	}
	return []string{preferred, fallback}
}
