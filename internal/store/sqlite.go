package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/voice-agent/internal/model"
)

// sqliteTimeLayout is fixed width so timestamps sort lexically.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

// SQLiteStore implements CallStore using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS calls (
	id                       TEXT PRIMARY KEY,
	started_at               TEXT NOT NULL,
	completed_at             TEXT,
	transcript               TEXT NOT NULL DEFAULT '[]',
	voice_response_latencies TEXT NOT NULL DEFAULT '[]',
	qualification            TEXT,
	lead_score               TEXT,
	booking                  TEXT,
	summary                  TEXT,
	drop_off_reason          TEXT,
	booked                   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_calls_started_at ON calls(started_at);
CREATE INDEX IF NOT EXISTS idx_calls_completed_at ON calls(completed_at);
CREATE INDEX IF NOT EXISTS idx_calls_booked ON calls(booked);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensure(ctx context.Context, callID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO calls (id, started_at) VALUES (?, ?)`,
		callID, s.now().UTC().Format(sqliteTimeLayout),
	)
	return eris.Wrap(err, "sqlite: ensure call")
}

func (s *SQLiteStore) GetOrCreateCall(ctx context.Context, callID string) (*model.CallRecord, error) {
	if err := s.ensure(ctx, callID); err != nil {
		return nil, err
	}
	return s.mustGet(ctx, callID)
}

func (s *SQLiteStore) AddTurn(ctx context.Context, callID string, turn model.TranscriptTurn) (*model.CallRecord, error) {
	if err := s.ensure(ctx, callID); err != nil {
		return nil, err
	}
	turnJSON, err := json.Marshal(turn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal turn")
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE calls SET transcript = json_insert(transcript, '$[#]', json(?)) WHERE id = ?`,
		string(turnJSON), callID,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: add turn")
	}
	return s.mustGet(ctx, callID)
}

func (s *SQLiteStore) CompleteCall(ctx context.Context, callID string, rec model.CompletionRecord) (*model.CallRecord, error) {
	if err := s.ensure(ctx, callID); err != nil {
		return nil, err
	}
	p, err := encodeCompletion(rec)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: complete call")
	}
	booked := 0
	if rec.Booking.Booked {
		booked = 1
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE calls
		SET qualification = ?, lead_score = ?, booking = ?, summary = ?,
			completed_at = ?, drop_off_reason = ?, booked = ?
		WHERE id = ?`,
		string(p.qualification), string(p.leadScore), string(p.booking), string(p.summary),
		rec.CompletedAt.UTC().Format(sqliteTimeLayout), nullableString(rec.DropOffReason), booked,
		callID,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: complete call")
	}
	return s.mustGet(ctx, callID)
}

func (s *SQLiteStore) AddVoiceLatency(ctx context.Context, callID string, latencyMS int) error {
	if err := s.ensure(ctx, callID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE calls SET voice_response_latencies = json_insert(voice_response_latencies, '$[#]', ?) WHERE id = ?`,
		clampLatency(latencyMS), callID,
	)
	return eris.Wrap(err, "sqlite: add voice latency")
}

func (s *SQLiteStore) GetCall(ctx context.Context, callID string) (*model.CallRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+callColumns+` FROM calls WHERE id = ?`, callID)
	call, err := scanSQLiteCall(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get call")
	}
	return call, nil
}

func (s *SQLiteStore) mustGet(ctx context.Context, callID string) (*model.CallRecord, error) {
	call, err := s.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, eris.Errorf("sqlite: call %s vanished", callID)
	}
	return call, nil
}

func (s *SQLiteStore) ListCalls(ctx context.Context, limit int) ([]model.CallRecord, error) {
	return s.query(ctx, "list calls",
		`SELECT `+callColumns+` FROM calls ORDER BY started_at DESC LIMIT ?`, ClampLimit(limit))
}

func (s *SQLiteStore) ListBookedCalls(ctx context.Context, limit int) ([]model.CallRecord, error) {
	return s.query(ctx, "list booked calls",
		`SELECT `+callColumns+` FROM calls WHERE booked = 1
		ORDER BY completed_at IS NULL, completed_at DESC LIMIT ?`, ClampLimit(limit))
}

func (s *SQLiteStore) KPIs(ctx context.Context) (model.KPISnapshot, error) {
	calls, err := s.query(ctx, "kpis", `SELECT `+callColumns+` FROM calls`)
	if err != nil {
		return model.KPISnapshot{}, err
	}
	return CalculateKPIs(calls), nil
}

func (s *SQLiteStore) query(ctx context.Context, op, q string, args ...any) ([]model.CallRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", op)
	}
	defer rows.Close() //nolint:errcheck

	calls := []model.CallRecord{}
	for rows.Next() {
		call, err := scanSQLiteCall(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: %s scan", op)
		}
		calls = append(calls, *call)
	}
	return calls, eris.Wrapf(rows.Err(), "sqlite: %s rows", op)
}

func scanSQLiteCall(row rowScanner) (*model.CallRecord, error) {
	var (
		call      model.CallRecord
		started   string
		completed sql.NullString
		dropOff   sql.NullString
		cols      jsonColumns
	)
	dest := append([]any{&call.ID, &started, &completed}, cols.targets()...)
	dest = append(dest, &dropOff)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if call.StartedAt, err = time.ParseInLocation(sqliteTimeLayout, started, time.UTC); err != nil {
		return nil, eris.Wrap(err, "parse started_at")
	}
	if completed.Valid {
		t, err := time.ParseInLocation(sqliteTimeLayout, completed.String, time.UTC)
		if err != nil {
			return nil, eris.Wrap(err, "parse completed_at")
		}
		call.CompletedAt = &t
	}
	call.DropOffReason = dropOff.String
	if err := cols.decodeInto(&call); err != nil {
		return nil, err
	}
	return &call, nil
}
