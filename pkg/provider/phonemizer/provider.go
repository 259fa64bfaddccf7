// Package phonemizer defines the Provider interface for grapheme-to-phoneme
// backends.
//
// A phonemizer turns orthographic text ("hello world") into an IPA
// transcription ("h_ə_l_ˈoʊ w_ˈɜː_l_d") that the phoneme package can
// tokenize. Implementations should separate phonemes with '_' and words with
// a space so that multi-codepoint phonemes such as diphthongs survive
// tokenization as single units.
//
// Implementations must be safe for concurrent use.
package phonemizer

import "context"

// Provider is the abstraction over any grapheme-to-phoneme backend.
type Provider interface {
	// Phonemize returns the IPA transcription of text. language is a BCP-47
	// tag or espeak voice name ("en", "en-us", "de"); empty selects the
	// provider default. Empty text yields an empty transcription.
	Phonemize(ctx context.Context, text, language string) (string, error)
}
