package main

import (
	"context"
	"net/http"
	"net/mail"
	"strings"

	"github.com/sells-group/voice-agent/internal/dialogue"
	"github.com/sells-group/voice-agent/internal/model"
)

type startRequest struct {
	CallID    string `json:"callId"`
	LeadName  string `json:"leadName,omitempty"`
	LeadEmail string `json:"leadEmail,omitempty"`
}

type nextRequest struct {
	CallID           string `json:"callId"`
	LeadUtterance    string `json:"leadUtterance"`
	PreferredSlotISO string `json:"preferredSlotIso,omitempty"`
	LeadName         string `json:"leadName,omitempty"`
	LeadEmail        string `json:"leadEmail,omitempty"`
}

// profileFrom validates the optional contact fields.
func profileFrom(name, email string) (model.LeadProfile, string) {
	email = strings.TrimSpace(email)
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return model.LeadProfile{}, "leadEmail is not a valid email address"
		}
	}
	return model.LeadProfile{Name: strings.TrimSpace(name), Email: email}, ""
}

func (a *api) voiceStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, problem := profileFrom(req.LeadName, req.LeadEmail)
	if problem != "" {
		badRequest(w, problem)
		return
	}

	res, err := a.start(r.Context(), req.CallID, profile)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) voiceNext(w http.ResponseWriter, r *http.Request) {
	var req nextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, problem := profileFrom(req.LeadName, req.LeadEmail)
	if problem != "" {
		badRequest(w, problem)
		return
	}

	res, err := a.next(r.Context(), dialogue.NextRequest{
		CallID:           req.CallID,
		LeadUtterance:    req.LeadUtterance,
		Profile:          profile,
		PreferredSlotISO: req.PreferredSlotISO,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// start and next hold the call lock for the duration of the turn.
func (a *api) start(ctx context.Context, callID string, profile model.LeadProfile) (*dialogue.TurnResult, error) {
	unlock := a.env.Locks.Lock(callID)
	defer unlock()
	return a.env.Manager.Start(ctx, callID, profile)
}

func (a *api) next(ctx context.Context, req dialogue.NextRequest) (*dialogue.TurnResult, error) {
	unlock := a.env.Locks.Lock(req.CallID)
	defer unlock()
	return a.env.Manager.Next(ctx, req)
}
