// Package prompt manages the catalogue of practice sentences learners read
// aloud. Prompts live in a [Store]; [MemStore] serves development and tests,
// [PostgresStore] production. [Seed] fills an empty store on startup.
package prompt

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned by Update and Delete when no prompt has the ID.
	ErrNotFound = errors.New("prompt: not found")

	// ErrEmptyText is returned when a prompt's text is blank.
	ErrEmptyText = errors.New("prompt: text must not be empty")

	// ErrInvalidText is returned when a prompt's text is not valid UTF-8.
	ErrInvalidText = errors.New("prompt: text is not valid UTF-8")
)

// Prompt is a practice sentence.
type Prompt struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store provides CRUD operations for prompts.
// Implementations must be safe for concurrent use.
type Store interface {
	// List returns all prompts, oldest first.
	List(ctx context.Context) ([]Prompt, error)

	// Get returns the prompt with id. Returns (nil, nil) if not found.
	Get(ctx context.Context, id string) (*Prompt, error)

	// Random returns a uniformly chosen prompt. Returns (nil, nil) when the
	// store is empty.
	Random(ctx context.Context) (*Prompt, error)

	// Create stores a new prompt with a fresh ID.
	Create(ctx context.Context, text string) (*Prompt, error)

	// Update replaces the text of an existing prompt. Returns [ErrNotFound]
	// if there is none.
	Update(ctx context.Context, id, text string) (*Prompt, error)

	// Delete removes a prompt. Returns [ErrNotFound] if there is none.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored prompts.
	Count(ctx context.Context) (int, error)
}

// NormalizeText trims text and rejects blank or malformed input.
func NormalizeText(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", ErrInvalidText
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}
