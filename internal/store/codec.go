package store

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/voice-agent/internal/model"
)

// callColumns is the column order shared by every SQL backend.
const callColumns = `id, started_at, completed_at, transcript, voice_response_latencies, ` +
	`qualification, lead_score, booking, summary, drop_off_reason`

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// jsonColumns holds the JSON payload columns of a call row.
type jsonColumns struct {
	transcript    []byte
	latencies     []byte
	qualification []byte
	leadScore     []byte
	booking       []byte
	summary       []byte
}

func (c *jsonColumns) targets() []any {
	return []any{&c.transcript, &c.latencies, &c.qualification, &c.leadScore, &c.booking, &c.summary}
}

func (c *jsonColumns) decodeInto(call *model.CallRecord) error {
	call.Transcript = []model.TranscriptTurn{}
	call.VoiceResponseLatenciesMS = []int{}
	if err := unmarshalOptional(c.transcript, &call.Transcript); err != nil {
		return eris.Wrap(err, "transcript")
	}
	if err := unmarshalOptional(c.latencies, &call.VoiceResponseLatenciesMS); err != nil {
		return eris.Wrap(err, "latencies")
	}
	if len(c.qualification) > 0 {
		call.Qualification = new(model.Qualification)
		if err := json.Unmarshal(c.qualification, call.Qualification); err != nil {
			return eris.Wrap(err, "qualification")
		}
	}
	if len(c.leadScore) > 0 {
		call.LeadScore = new(model.LeadScore)
		if err := json.Unmarshal(c.leadScore, call.LeadScore); err != nil {
			return eris.Wrap(err, "lead score")
		}
	}
	if len(c.booking) > 0 {
		call.Booking = new(model.BookingResult)
		if err := json.Unmarshal(c.booking, call.Booking); err != nil {
			return eris.Wrap(err, "booking")
		}
	}
	if len(c.summary) > 0 {
		call.Summary = new(model.CallSummary)
		if err := json.Unmarshal(c.summary, call.Summary); err != nil {
			return eris.Wrap(err, "summary")
		}
	}
	return nil
}

func unmarshalOptional(data []byte, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

// completionPayload is the JSON encoding of a completion record's columns.
type completionPayload struct {
	qualification, leadScore, booking, summary []byte
}

func encodeCompletion(rec model.CompletionRecord) (completionPayload, error) {
	var p completionPayload
	var err error
	if p.qualification, err = json.Marshal(rec.Qualification); err != nil {
		return p, eris.Wrap(err, "marshal qualification")
	}
	if p.leadScore, err = json.Marshal(rec.LeadScore); err != nil {
		return p, eris.Wrap(err, "marshal lead score")
	}
	if p.booking, err = json.Marshal(rec.Booking); err != nil {
		return p, eris.Wrap(err, "marshal booking")
	}
	if p.summary, err = json.Marshal(rec.Summary); err != nil {
		return p, eris.Wrap(err, "marshal summary")
	}
	return p, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
