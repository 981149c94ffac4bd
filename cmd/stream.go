package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sells-group/voice-agent/internal/dialogue"
)

const (
	streamReadLimit   = 64 << 10
	streamIdleTimeout = 2 * time.Minute
	streamWriteWait   = 10 * time.Second
)

// streamFrame is a client message on /api/voice/stream. After the first
// frame callId may be omitted; the connection keeps the last one used.
type streamFrame struct {
	Type             string `json:"type"`
	CallID           string `json:"callId,omitempty"`
	LeadUtterance    string `json:"leadUtterance,omitempty"`
	PreferredSlotISO string `json:"preferredSlotIso,omitempty"`
	LeadName         string `json:"leadName,omitempty"`
	LeadEmail        string `json:"leadEmail,omitempty"`
}

type streamReply struct {
	Type    string               `json:"type"`
	Result  *dialogue.TurnResult `json:"result,omitempty"`
	Error   string               `json:"error,omitempty"`
	Message string               `json:"message,omitempty"`
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// voiceStream runs start/next turns over one websocket. Frames are handled
// in order, so turns on a connection never overlap.
func (a *api) voiceStream(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close() //nolint:errcheck
	conn.SetReadLimit(streamReadLimit)

	log := zap.L().With(zap.String("remote", r.RemoteAddr))
	ctx := r.Context()
	var callID string

	for {
		_ = conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("voice stream closed", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			if !writeFrame(conn, streamReply{Type: "error", Error: "BadRequest", Message: "frames must be JSON text"}) {
				return
			}
			continue
		}

		var frame streamFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			if !writeFrame(conn, streamReply{Type: "error", Error: "BadRequest", Message: "invalid frame: " + err.Error()}) {
				return
			}
			continue
		}
		if frame.CallID == "" {
			frame.CallID = callID
		}

		res, err := a.streamTurn(ctx, frame)
		if err != nil {
			reply := streamReply{Type: "error", Error: "InternalError", Message: "internal error"}
			if errors.Is(err, dialogue.ErrInvalidInput) {
				reply = streamReply{Type: "error", Error: "BadRequest", Message: err.Error()}
			} else {
				log.Error("voice stream turn failed", zap.String("call_id", frame.CallID), zap.Error(err))
			}
			if !writeFrame(conn, reply) {
				return
			}
			continue
		}
		callID = res.CallID
		if !writeFrame(conn, streamReply{Type: "turn", Result: res}) {
			return
		}
	}
}

func (a *api) streamTurn(ctx context.Context, f streamFrame) (*dialogue.TurnResult, error) {
	profile, problem := profileFrom(f.LeadName, f.LeadEmail)
	if problem != "" {
		return nil, wrapInvalid(problem)
	}
	switch f.Type {
	case "start":
		return a.start(ctx, f.CallID, profile)
	case "next":
		return a.next(ctx, dialogue.NextRequest{
			CallID:           f.CallID,
			LeadUtterance:    f.LeadUtterance,
			Profile:          profile,
			PreferredSlotISO: f.PreferredSlotISO,
		})
	default:
		return nil, wrapInvalid(`type must be "start" or "next"`)
	}
}

func writeFrame(conn *websocket.Conn, reply streamReply) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(reply); err != nil {
		zap.L().Debug("voice stream write failed", zap.Error(err))
		return false
	}
	return true
}
