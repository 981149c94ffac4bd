package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/voice-agent/internal/dialogue"
	"github.com/sells-group/voice-agent/internal/model"
)

type turnRequest struct {
	Speaker   model.Speaker `json:"speaker"`
	Text      string        `json:"text"`
	Timestamp string        `json:"timestamp,omitempty"`
}

type completeRequest struct {
	Qualification    model.Draft `json:"qualification"`
	PreferredSlotISO string      `json:"preferredSlotIso,omitempty"`
	LeadName         string      `json:"leadName,omitempty"`
	LeadEmail        string      `json:"leadEmail,omitempty"`
	DropOffReason    string      `json:"dropOffReason,omitempty"`
}

type completeResponse struct {
	CallID    string               `json:"callId"`
	LeadScore *model.LeadScore     `json:"leadScore"`
	Booking   *model.BookingResult `json:"booking"`
	Summary   *model.CallSummary   `json:"summary"`
}

func (a *api) addTurn(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	var req turnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ts, ok := parseTimestamp(req.Timestamp)
	if !ok {
		badRequest(w, "timestamp must be RFC3339")
		return
	}

	unlock := a.env.Locks.Lock(callID)
	call, err := a.env.Manager.RecordTurn(r.Context(), callID, model.TranscriptTurn{
		Speaker:   req.Speaker,
		Text:      req.Text,
		Timestamp: ts,
	})
	unlock()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"callId": callID,
		"turns":  len(call.Transcript),
	})
}

func (a *api) completeCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	var req completeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	q, ok := req.Qualification.Complete()
	if !ok {
		names := make([]string, 0, 7)
		for _, f := range model.MissingFields(req.Qualification) {
			names = append(names, string(f))
		}
		badRequest(w, "qualification is missing: "+strings.Join(names, ", "))
		return
	}
	profile, problem := profileFrom(req.LeadName, req.LeadEmail)
	if problem != "" {
		badRequest(w, problem)
		return
	}

	unlock := a.env.Locks.Lock(callID)
	call, err := a.env.Manager.CompleteExternal(r.Context(), dialogue.ExternalCompletion{
		CallID:           callID,
		Qualification:    q,
		PreferredSlotISO: req.PreferredSlotISO,
		Profile:          profile,
		DropOffReason:    strings.TrimSpace(req.DropOffReason),
	})
	unlock()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{
		CallID:    call.ID,
		LeadScore: call.LeadScore,
		Booking:   call.Booking,
		Summary:   call.Summary,
	})
}

func (a *api) getCall(w http.ResponseWriter, r *http.Request) {
	call, err := a.env.Store.GetCall(r.Context(), chi.URLParam(r, "callID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if call == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "NotFound", Message: "call not found"})
		return
	}
	writeJSON(w, http.StatusOK, call)
}

func (a *api) listCalls(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	calls, err := a.env.Store.ListCalls(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": nonNil(calls)})
}

func (a *api) listBookedCalls(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	calls, err := a.env.Store.ListBookedCalls(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": nonNil(calls)})
}

func (a *api) kpis(w http.ResponseWriter, r *http.Request) {
	snap, err := a.env.Store.KPIs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// limitParam parses ?limit=; the store clamps the value.
func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(w, "limit must be an integer")
		return 0, false
	}
	return n, true
}

func nonNil(calls []model.CallRecord) []model.CallRecord {
	if calls == nil {
		return []model.CallRecord{}
	}
	return calls
}
