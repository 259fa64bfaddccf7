// Package mock provides a test double for the phonemizer.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/speaktrainer/pkg/provider/phonemizer"
)

// PhonemizeCall records a single invocation of Phonemize.
type PhonemizeCall struct {
	Ctx      context.Context
	Text     string
	Language string
}

// Provider is a mock implementation of phonemizer.Provider.
type Provider struct {
	mu sync.Mutex

	// Table maps input text to the transcription returned for it. Text not in
	// Table yields Default.
	Table map[string]string

	// Default is returned for text not found in Table.
	Default string

	// Err, if non-nil, is returned by every Phonemize call.
	Err error

	// Calls records every call to Phonemize.
	Calls []PhonemizeCall
}

// Phonemize records the call and returns the configured transcription.
func (p *Provider) Phonemize(ctx context.Context, text, language string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, PhonemizeCall{Ctx: ctx, Text: text, Language: language})
	if p.Err != nil {
		return "", p.Err
	}
	if out, ok := p.Table[text]; ok {
		return out, nil
	}
	return p.Default, nil
}

// CallCount returns the number of Phonemize calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

var _ phonemizer.Provider = (*Provider)(nil)
