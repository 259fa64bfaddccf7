// Package session records practice attempts: which prompt was read, what the
// learner said and how it scored.
//
// [Service] ties the prompt catalogue, an [analysis.Analyzer] and a session
// [Store] together. [MemStore] and [PostgresStore] implement the store.
package session

import (
	"context"
	"time"

	"github.com/MrWong99/speaktrainer/internal/analysis"
)

// MaxListLimit caps the page size of [Store.List].
const MaxListLimit = 100

// Session is one analysed practice attempt.
type Session struct {
	ID string `json:"id"`

	// PromptID is the prompt the learner read. Empty for sessions created
	// from free text.
	PromptID string `json:"prompt_id,omitempty"`

	// ExpectedText is a copy of the prompt text at analysis time, so later
	// prompt edits do not change recorded sessions.
	ExpectedText string `json:"expected_text"`

	// UserID is the caller-supplied learner identifier, if any.
	UserID *string `json:"user_id,omitempty"`

	Transcription string `json:"transcription"`
	Score         int    `json:"score"`

	// Analysis holds the full phoneme and word comparison.
	Analysis *analysis.Result `json:"analysis_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListOptions filters and pages [Store.List].
type ListOptions struct {
	// Limit is the maximum number of sessions returned. Zero or less means
	// no limit.
	Limit int

	// Offset skips that many sessions of the result.
	Offset int

	// UserID restricts the result to one learner. Empty returns all.
	UserID string
}

// Store persists sessions.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create stores s. An empty ID is replaced with a fresh UUID; CreatedAt
	// and UpdatedAt are set by the store.
	Create(ctx context.Context, s *Session) error

	// Get returns the session with id. Returns (nil, nil) if not found.
	Get(ctx context.Context, id string) (*Session, error)

	// List returns sessions newest first.
	List(ctx context.Context, opts ListOptions) ([]Session, error)
}
