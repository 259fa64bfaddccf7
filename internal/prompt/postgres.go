package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the prompts table.
const Schema = `
CREATE TABLE IF NOT EXISTS prompts (
    id         TEXT PRIMARY KEY,
    text       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_prompts_created_at ON prompts(created_at);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by PostgreSQL.
type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore]. Call [PostgresStore.Migrate]
// before the first query.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the prompts table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("prompt: migrate: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, text, created_at, updated_at FROM prompts`

func (s *PostgresStore) List(ctx context.Context) ([]Prompt, error) {
	rows, err := s.db.Query(ctx, selectColumns+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("prompt: list: %w", err)
	}
	defer rows.Close()

	prompts := []Prompt{}
	for rows.Next() {
		var p Prompt
		if err := rows.Scan(&p.ID, &p.Text, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("prompt: list scan: %w", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prompt: list: %w", err)
	}
	return prompts, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Prompt, error) {
	p, err := s.scanOne(s.db.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("prompt: get %q: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) Random(ctx context.Context) (*Prompt, error) {
	p, err := s.scanOne(s.db.QueryRow(ctx, selectColumns+` ORDER BY random() LIMIT 1`))
	if err != nil {
		return nil, fmt.Errorf("prompt: random: %w", err)
	}
	return p, nil
}

// scanOne maps pgx.ErrNoRows to (nil, nil).
func (s *PostgresStore) scanOne(row pgx.Row) (*Prompt, error) {
	var p Prompt
	if err := row.Scan(&p.ID, &p.Text, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) Create(ctx context.Context, text string) (*Prompt, error) {
	text, err := NormalizeText(text)
	if err != nil {
		return nil, err
	}
	p := Prompt{ID: uuid.NewString(), Text: text}
	const query = `
		INSERT INTO prompts (id, text) VALUES ($1, $2)
		RETURNING created_at, updated_at`
	if err := s.db.QueryRow(ctx, query, p.ID, p.Text).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("prompt: create: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) Update(ctx context.Context, id, text string) (*Prompt, error) {
	text, err := NormalizeText(text)
	if err != nil {
		return nil, err
	}
	p := Prompt{ID: id, Text: text}
	const query = `
		UPDATE prompts SET text = $2, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`
	if err := s.db.QueryRow(ctx, query, id, text).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("prompt: update %q: %w", id, err)
	}
	return &p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("prompt: delete %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM prompts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("prompt: count: %w", err)
	}
	return n, nil
}
