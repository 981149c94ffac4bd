package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/voice-agent/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it as well.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements CallStore using pgxpool and JSONB columns.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS calls (
	id                       TEXT PRIMARY KEY,
	started_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at             TIMESTAMPTZ,
	transcript               JSONB NOT NULL DEFAULT '[]'::jsonb,
	voice_response_latencies JSONB NOT NULL DEFAULT '[]'::jsonb,
	qualification            JSONB,
	lead_score               JSONB,
	booking                  JSONB,
	summary                  JSONB,
	drop_off_reason          TEXT
);

CREATE INDEX IF NOT EXISTS idx_calls_started_at ON calls(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_calls_completed_at ON calls(completed_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ensure(ctx context.Context, callID string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO calls (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, callID)
	return eris.Wrap(err, "postgres: ensure call")
}

func (s *PostgresStore) GetOrCreateCall(ctx context.Context, callID string) (*model.CallRecord, error) {
	if err := s.ensure(ctx, callID); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE id = $1`, callID)
	call, err := scanPostgresCall(row)
	return call, eris.Wrap(err, "postgres: get or create call")
}

func (s *PostgresStore) AddTurn(ctx context.Context, callID string, turn model.TranscriptTurn) (*model.CallRecord, error) {
	if err := s.ensure(ctx, callID); err != nil {
		return nil, err
	}
	turnJSON, err := json.Marshal([]model.TranscriptTurn{turn})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal turn")
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE calls SET transcript = transcript || $2::jsonb
		WHERE id = $1
		RETURNING `+callColumns, callID, turnJSON)
	call, err := scanPostgresCall(row)
	return call, eris.Wrap(err, "postgres: add turn")
}

func (s *PostgresStore) CompleteCall(ctx context.Context, callID string, rec model.CompletionRecord) (*model.CallRecord, error) {
	if err := s.ensure(ctx, callID); err != nil {
		return nil, err
	}
	p, err := encodeCompletion(rec)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: complete call")
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE calls
		SET qualification = $2::jsonb, lead_score = $3::jsonb, booking = $4::jsonb, summary = $5::jsonb,
			completed_at = $6, drop_off_reason = $7
		WHERE id = $1
		RETURNING `+callColumns,
		callID, p.qualification, p.leadScore, p.booking, p.summary,
		rec.CompletedAt.UTC(), nullableString(rec.DropOffReason),
	)
	call, err := scanPostgresCall(row)
	return call, eris.Wrap(err, "postgres: complete call")
}

func (s *PostgresStore) AddVoiceLatency(ctx context.Context, callID string, latencyMS int) error {
	if err := s.ensure(ctx, callID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE calls SET voice_response_latencies = voice_response_latencies || to_jsonb($2::int) WHERE id = $1`,
		callID, clampLatency(latencyMS),
	)
	return eris.Wrap(err, "postgres: add voice latency")
}

func (s *PostgresStore) GetCall(ctx context.Context, callID string) (*model.CallRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE id = $1`, callID)
	call, err := scanPostgresCall(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get call")
	}
	return call, nil
}

func (s *PostgresStore) ListCalls(ctx context.Context, limit int) ([]model.CallRecord, error) {
	return s.query(ctx, "list calls",
		`SELECT `+callColumns+` FROM calls ORDER BY started_at DESC LIMIT $1`, ClampLimit(limit))
}

func (s *PostgresStore) ListBookedCalls(ctx context.Context, limit int) ([]model.CallRecord, error) {
	return s.query(ctx, "list booked calls",
		`SELECT `+callColumns+` FROM calls WHERE booking ->> 'booked' = 'true'
		ORDER BY completed_at DESC NULLS LAST LIMIT $1`, ClampLimit(limit))
}

func (s *PostgresStore) KPIs(ctx context.Context) (model.KPISnapshot, error) {
	calls, err := s.query(ctx, "kpis", `SELECT `+callColumns+` FROM calls ORDER BY started_at DESC`)
	if err != nil {
		return model.KPISnapshot{}, err
	}
	return CalculateKPIs(calls), nil
}

func (s *PostgresStore) query(ctx context.Context, op, q string, args ...any) ([]model.CallRecord, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", op)
	}
	defer rows.Close()

	calls := []model.CallRecord{}
	for rows.Next() {
		call, err := scanPostgresCall(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: %s scan", op)
		}
		calls = append(calls, *call)
	}
	return calls, eris.Wrapf(rows.Err(), "postgres: %s rows", op)
}

func scanPostgresCall(row rowScanner) (*model.CallRecord, error) {
	var (
		call    model.CallRecord
		dropOff *string
		cols    jsonColumns
	)
	dest := append([]any{&call.ID, &call.StartedAt, &call.CompletedAt}, cols.targets()...)
	dest = append(dest, &dropOff)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if dropOff != nil {
		call.DropOffReason = *dropOff
	}
	if err := cols.decodeInto(&call); err != nil {
		return nil, err
	}
	return &call, nil
}
