package resilience

import (
	"context"

	"github.com/MrWong99/speaktrainer/pkg/provider/phonemizer"
)

// PhonemizerFallback implements [phonemizer.Provider] with failover, typically
// from espeak-ng to an LLM-backed phonemizer.
type PhonemizerFallback struct {
	group *FallbackGroup[phonemizer.Provider]
}

var _ phonemizer.Provider = (*PhonemizerFallback)(nil)

// NewPhonemizerFallback creates a [PhonemizerFallback] with primary as the
// preferred backend.
func NewPhonemizerFallback(primary phonemizer.Provider, primaryName string, cfg FallbackConfig) *PhonemizerFallback {
	return &PhonemizerFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional phonemizer as a fallback.
func (f *PhonemizerFallback) AddFallback(name string, provider phonemizer.Provider) {
	f.group.AddFallback(name, provider)
}

// Names returns the provider names in failover order.
func (f *PhonemizerFallback) Names() []string { return f.group.Names() }

// Phonemize converts text with the first healthy provider that succeeds.
func (f *PhonemizerFallback) Phonemize(ctx context.Context, text, language string) (string, error) {
	return ExecuteWithResult(f.group, func(p phonemizer.Provider) (string, error) {
		return p.Phonemize(ctx, text, language)
	})
}
