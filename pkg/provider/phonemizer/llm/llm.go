// Package llm provides a phonemizer that asks a language model for an IPA
// transcription. It is a fallback for deployments without espeak-ng; output
// quality depends entirely on the model.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/speaktrainer/pkg/provider/llm"
	"github.com/MrWong99/speaktrainer/pkg/provider/phonemizer"
)

const systemPrompt = `You are a grapheme-to-phoneme converter.
Transcribe the user's text into the International Phonetic Alphabet.
Separate phonemes with "_" and words with a single space. Mark primary stress with "ˈ" and secondary stress with "ˌ" at the start of the stressed phoneme.
Reply with the transcription only: no quotes, no slashes, no explanations.`

const defaultLanguage = "en"

// Provider implements phonemizer.Provider on top of an llm.Provider.
type Provider struct {
	llm      llm.Provider
	language string
}

var _ phonemizer.Provider = (*Provider)(nil)

// New returns a Provider using p for completions. language is used when
// Phonemize is called without one; empty means "en".
func New(p llm.Provider, language string) *Provider {
	if language == "" {
		language = defaultLanguage
	}
	return &Provider{llm: p, language: language}
}

// Phonemize implements phonemizer.Provider.
func (p *Provider) Phonemize(ctx context.Context, text, language string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if language == "" {
		language = p.language
	}

	resp, err := p.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Language: %s\nText: %s", language, text),
		}},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("llm phonemizer: %w", err)
	}
	return clean(resp.Content), nil
}

// clean strips code fences, IPA slashes/brackets and surrounding quotes, and
// collapses the reply onto a single line.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.Trim(strings.TrimSpace(s), "/[]\"'`")
	return strings.Join(strings.Fields(s), " ")
}
