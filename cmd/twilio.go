package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/voice-agent/internal/dialogue"
	"github.com/sells-group/voice-agent/internal/model"
	"github.com/sells-group/voice-agent/internal/twilio"
)

// verifyTwilio rejects webhooks without a valid Twilio signature.
func (a *api) verifyTwilio(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := twilio.VerifyRequest(r, a.twilio.PublicBaseURL, a.twilio.AuthToken); err != nil {
			zap.L().Warn("twilio webhook rejected", zap.String("path", r.URL.Path), zap.Error(err))
			status := http.StatusForbidden
			if !errors.Is(err, twilio.ErrInvalidSignature) {
				status = http.StatusBadRequest
			}
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *api) twilioVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "invalid form body")
		return
	}
	callID := strings.TrimSpace(r.PostForm.Get("CallSid"))
	if callID == "" {
		callID = uuid.NewString()
	}
	// Phone callers have no email; the placeholder keeps calendar providers
	// that require one working.
	profile := model.LeadProfile{
		Name:  r.PostForm.Get("From"),
		Email: callID + "@example.invalid",
	}

	res, err := a.start(r.Context(), callID, profile)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeTwiML(w, r, res, callID)
}

func (a *api) twilioGather(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "invalid form body")
		return
	}
	callID := r.URL.Query().Get("callId")
	if callID == "" {
		callID = r.PostForm.Get("CallSid")
	}
	if callID == "" {
		callID = uuid.NewString()
	}

	utterance := strings.TrimSpace(r.PostForm.Get("SpeechResult"))
	if utterance == "" {
		utterance = strings.TrimSpace(r.PostForm.Get("Digits"))
	}
	if utterance == "" {
		a.writeTwiML(w, r, &dialogue.TurnResult{AgentUtterance: twilio.NoInputText}, callID)
		return
	}

	res, err := a.next(r.Context(), dialogue.NextRequest{
		CallID:        callID,
		LeadUtterance: utterance,
		Profile:       model.LeadProfile{Name: r.PostForm.Get("From")},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeTwiML(w, r, res, callID)
}

func (a *api) writeTwiML(w http.ResponseWriter, r *http.Request, res *dialogue.TurnResult, callID string) {
	var (
		body []byte
		err  error
	)
	if res.Completed {
		body, err = twilio.CloseTwiML(res.AgentUtterance)
	} else {
		body, err = twilio.GatherTwiML(res.AgentUtterance, callID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", twilio.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
