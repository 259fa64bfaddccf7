package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt/mock"
)

func TestSTTFallback_Transcribe(t *testing.T) {
	primary := &mock.Provider{Err: errBackend}
	secondary := &mock.Provider{Result: stt.Transcript{Text: "hello world"}}

	f := NewSTTFallback(primary, "whisper", FallbackConfig{})
	f.AddFallback("deepgram", secondary)

	audio := stt.Audio{Data: []byte("RIFF"), Filename: "take1.wav", Language: "en"}
	tr, err := f.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "hello world" {
		t.Errorf("Text = %q", tr.Text)
	}
	if primary.CallCount() != 1 || secondary.CallCount() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.CallCount(), secondary.CallCount())
	}
	if got := secondary.Calls[0].Audio.Filename; got != "take1.wav" {
		t.Errorf("fallback received filename %q", got)
	}
}

func TestSTTFallback_EmptyAudioIsNotRetried(t *testing.T) {
	primary := &mock.Provider{Err: stt.ErrEmptyAudio}
	secondary := &mock.Provider{}

	f := NewSTTFallback(primary, "whisper", FallbackConfig{CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1}})
	f.AddFallback("deepgram", secondary)

	for range 3 {
		if _, err := f.Transcribe(context.Background(), stt.Audio{}); !errors.Is(err, stt.ErrEmptyAudio) {
			t.Fatalf("err = %v, want ErrEmptyAudio", err)
		}
	}
	if secondary.CallCount() != 0 {
		t.Errorf("fallback called %d times for empty audio", secondary.CallCount())
	}
	if primary.CallCount() != 3 {
		t.Errorf("primary calls = %d, want 3: empty audio must not open the breaker", primary.CallCount())
	}
}

func TestSTTFallback_AllFail(t *testing.T) {
	f := NewSTTFallback(&mock.Provider{Err: errBackend}, "whisper", FallbackConfig{})
	f.AddFallback("openai", &mock.Provider{Err: errors.New("openai: 429")})

	_, err := f.Transcribe(context.Background(), stt.Audio{Data: []byte{1}})
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
	if got := f.Names(); len(got) != 2 || got[1] != "openai" {
		t.Errorf("Names() = %v", got)
	}
}
