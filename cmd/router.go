package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/voice-agent/internal/config"
	"github.com/sells-group/voice-agent/internal/dialogue"
	"github.com/sells-group/voice-agent/internal/twilio"
)

const maxBodyBytes = 1 << 20

// api serves the HTTP adapters over one Manager.
type api struct {
	env    *appEnv
	twilio config.TwilioConfig
}

// buildRouter mounts every route on a chi router.
func buildRouter(env *appEnv, c *config.Config) http.Handler {
	a := &api{env: env, twilio: c.Twilio}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: c.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", twilio.SignatureHeader},
		MaxAge:         300,
	}))

	r.Get("/health", a.health)
	r.Handle("/metrics", promhttp.HandlerFor(env.Registry, promhttp.HandlerOpts{}))
	r.Get("/dashboard", a.dashboard)

	r.Route("/api", func(r chi.Router) {
		r.Post("/voice/start", a.voiceStart)
		r.Post("/voice/next", a.voiceNext)
		r.Get("/voice/stream", a.voiceStream)

		r.Get("/calls", a.listCalls)
		r.Get("/calls/booked", a.listBookedCalls)
		r.Get("/calls/{callID}", a.getCall)
		r.Post("/calls/{callID}/turn", a.addTurn)
		r.Post("/calls/{callID}/complete", a.completeCall)

		r.Get("/dashboard/kpis", a.kpis)

		r.Group(func(r chi.Router) {
			if c.Twilio.ValidateSignature {
				r.Use(a.verifyTwilio)
			}
			r.Post("/providers/twilio/voice", a.twilioVoice)
			r.Post("/providers/twilio/gather", a.twilioGather)
		})
	})

	return r
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response failed", zap.Error(err))
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "BadRequest", Message: msg})
}

// writeError maps invalid input to 400 and everything else to 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, dialogue.ErrInvalidInput) {
		badRequest(w, err.Error())
		return
	}
	zap.L().Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "InternalError", Message: "internal error"})
}

// decodeJSON reads a bounded JSON body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	return ts, err == nil
}

func wrapInvalid(msg string) error {
	return eris.Wrap(dialogue.ErrInvalidInput, msg)
}
