// Package storage opens the PostgreSQL connection pool shared by the prompt
// and session stores and brings their schemas up to date.
//
// Usage:
//
//	st, err := storage.Open(ctx, dsn, storage.WithAttempts(30))
//	if err != nil { … }
//	defer st.Close()
//
//	prompts := st.Prompts()
//	sessions := st.Sessions()
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/speaktrainer/internal/prompt"
	"github.com/MrWong99/speaktrainer/internal/session"
)

// Defaults for [Open]. A database container typically needs several seconds
// to accept connections after it starts.
const (
	DefaultAttempts = 30
	DefaultDelay    = 2 * time.Second
)

// Option is a functional option for [Open].
type Option func(*options)

type options struct {
	attempts int
	delay    time.Duration
	maxConns int32
}

// WithAttempts sets how many times the initial connection is tried.
// Values below 1 are treated as 1.
func WithAttempts(n int) Option {
	return func(o *options) { o.attempts = n }
}

// WithDelay sets the wait between connection attempts.
func WithDelay(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

// WithMaxConns caps the pool size. Zero keeps the pgxpool default.
func WithMaxConns(n int32) Option {
	return func(o *options) { o.maxConns = n }
}

// Store holds the connection pool and the Postgres-backed stores built on it.
// All operations are safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	prompts  *prompt.PostgresStore
	sessions *session.PostgresStore
}

// Open connects to the database at dsn, retrying until it answers a ping or
// the attempts are used up, and runs the prompt and session migrations.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	o := options{attempts: DefaultAttempts, delay: DefaultDelay}
	for _, fn := range opts {
		fn(&o)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse dsn: %w", err)
	}
	if o.maxConns > 0 {
		cfg.MaxConns = o.maxConns
	}

	var pool *pgxpool.Pool
	err = retry(ctx, o.attempts, o.delay, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create pool: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return fmt.Errorf("ping: %w", err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: connect to %s: %w", cfg.ConnConfig.Host, err)
	}

	st := &Store{
		pool:     pool,
		prompts:  prompt.NewPostgresStore(pool),
		sessions: session.NewPostgresStore(pool),
	}
	if err := st.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to database", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.prompts.Migrate(ctx); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := s.sessions.Migrate(ctx); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

// Prompts returns the prompt store.
func (s *Store) Prompts() *prompt.PostgresStore { return s.prompts }

// Sessions returns the session store.
func (s *Store) Sessions() *session.PostgresStore { return s.sessions }

// Ping checks that the database is reachable. It is used as a readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}

// retry calls fn up to attempts times, waiting delay between failures. It
// gives up early when ctx is done and returns the last error of fn otherwise.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) error) error {
	attempts = max(attempts, 1)
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(ctxErr, err)
		}
		if i == attempts {
			break
		}
		slog.Warn("database not ready, retrying",
			"attempt", i,
			"max_attempts", attempts,
			"delay", delay,
			"err", err,
		)
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), err)
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}
