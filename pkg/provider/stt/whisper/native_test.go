package whisper_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt/whisper"
)

// testModelPath returns the path to a whisper model for integration tests.
// It reads from the WHISPER_MODEL_PATH environment variable. If unset the
// test is skipped.
func testModelPath(t *testing.T) string {
	t.Helper()
	p := os.Getenv("WHISPER_MODEL_PATH")
	if p == "" {
		t.Skip("WHISPER_MODEL_PATH not set; skipping native whisper test")
	}
	return p
}

func TestNewNative_EmptyPath_ReturnsError(t *testing.T) {
	_, err := whisper.NewNative("")
	if err == nil {
		t.Fatal("expected error for empty model path, got nil")
	}
}

func TestNewNative_InvalidPath_ReturnsError(t *testing.T) {
	_, err := whisper.NewNative("/nonexistent/path/to/model.bin")
	if err == nil {
		t.Fatal("expected error for invalid model path, got nil")
	}
}

func TestNativeTranscribe_RejectsNonWAV(t *testing.T) {
	p, err := whisper.NewNative(testModelPath(t), whisper.WithNativeLanguage("en"))
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	defer p.Close()

	_, err = p.Transcribe(context.Background(), stt.Audio{Data: []byte("ID3 mp3 data"), Filename: "take.mp3"})
	if err == nil {
		t.Fatal("expected error for non-WAV input")
	}
}

func TestNativeTranscribe_WAVFile(t *testing.T) {
	wavPath := os.Getenv("WHISPER_TEST_WAV")
	if wavPath == "" {
		t.Skip("WHISPER_TEST_WAV not set; skipping native transcription test")
	}
	p, err := whisper.NewNative(testModelPath(t))
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	defer p.Close()

	data, err := os.ReadFile(wavPath)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	tr, err := p.Transcribe(ctx, stt.Audio{Data: data, Filename: "test.wav"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", tr.Duration)
	}
	t.Logf("transcript: %q", tr.Text)
}
