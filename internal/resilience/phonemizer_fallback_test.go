package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/speaktrainer/pkg/provider/phonemizer/mock"
)

func TestPhonemizerFallback_Phonemize(t *testing.T) {
	espeak := &mock.Provider{Err: errors.New("espeak-ng: executable file not found")}
	llm := &mock.Provider{Table: map[string]string{"hello": "h_ə_l_ˈoʊ"}}

	f := NewPhonemizerFallback(espeak, "espeak", FallbackConfig{})
	f.AddFallback("llm", llm)

	got, err := f.Phonemize(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("Phonemize: %v", err)
	}
	if got != "h_ə_l_ˈoʊ" {
		t.Errorf("Phonemize = %q", got)
	}
	if llm.Calls[0].Language != "en" {
		t.Errorf("fallback language = %q", llm.Calls[0].Language)
	}
}

func TestPhonemizerFallback_PrimaryPreferred(t *testing.T) {
	espeak := &mock.Provider{Default: "k_æ_t"}
	llm := &mock.Provider{Default: "wrong"}

	f := NewPhonemizerFallback(espeak, "espeak", FallbackConfig{})
	f.AddFallback("llm", llm)

	got, err := f.Phonemize(context.Background(), "cat", "en")
	if err != nil || got != "k_æ_t" {
		t.Fatalf("Phonemize = %q, %v", got, err)
	}
	if len(llm.Calls) != 0 {
		t.Error("fallback should not be called when the primary succeeds")
	}
}
