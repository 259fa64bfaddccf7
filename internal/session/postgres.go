package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/speaktrainer/internal/analysis"
)

// Schema is the SQL DDL for the sessions table.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id             TEXT PRIMARY KEY,
    prompt_id      TEXT NOT NULL DEFAULT '',
    expected_text  TEXT NOT NULL,
    user_id        TEXT,
    transcription  TEXT NOT NULL,
    score          INTEGER NOT NULL,
    analysis_data  JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id, created_at DESC);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by PostgreSQL. The analysis result is
// kept as JSONB in analysis_data.
type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore]. Call [PostgresStore.Migrate]
// before the first query.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the sessions table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("session: migrate: %w", err)
	}
	return nil
}

func (p *PostgresStore) Create(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	var analysisJSON []byte
	if s.Analysis != nil {
		var err error
		if analysisJSON, err = json.Marshal(s.Analysis); err != nil {
			return fmt.Errorf("session: marshal analysis: %w", err)
		}
	}

	const query = `
		INSERT INTO sessions (
			id, prompt_id, expected_text, user_id, transcription, score, analysis_data
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`

	err := p.db.QueryRow(ctx, query,
		s.ID, s.PromptID, s.ExpectedText, s.UserID, s.Transcription, s.Score, analysisJSON,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, prompt_id, expected_text, user_id, transcription, score,
	       analysis_data, created_at, updated_at
	FROM sessions`

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var s Session
	var analysisJSON []byte
	if err := row.Scan(
		&s.ID, &s.PromptID, &s.ExpectedText, &s.UserID, &s.Transcription, &s.Score,
		&analysisJSON, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(analysisJSON) > 0 {
		s.Analysis = new(analysis.Result)
		if err := json.Unmarshal(analysisJSON, s.Analysis); err != nil {
			return nil, fmt.Errorf("session: unmarshal analysis of %q: %w", s.ID, err)
		}
	}
	return &s, nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	s, err := scanSession(p.db.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: get %q: %w", id, err)
	}
	return s, nil
}

func (p *PostgresStore) List(ctx context.Context, opts ListOptions) ([]Session, error) {
	// A NULL limit is LIMIT ALL.
	var limit any
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	query := selectColumns + `
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := p.db.Query(ctx, query, opts.UserID, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("session: list scan: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	return sessions, nil
}
