package session

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/speaktrainer/internal/analysis"
	"github.com/MrWong99/speaktrainer/internal/prompt"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
)

// fakeAnalyzer is a hand-written analysis.Analyzer.
type fakeAnalyzer struct {
	result *analysis.Result
	err    error
	reqs   []analysis.Request
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req analysis.Request) (*analysis.Result, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeAnalyzer) Transcribe(context.Context, stt.Audio) (string, error) {
	return f.result.Transcription, f.err
}

func setupService(t *testing.T) (*Service, *prompt.Prompt, *MemStore, *fakeAnalyzer) {
	t.Helper()
	prompts := prompt.NewMemStore()
	p, err := prompts.Create(context.Background(), "cat")
	if err != nil {
		t.Fatal(err)
	}
	sessions := NewMemStore()
	fa := &fakeAnalyzer{result: testAnalysis(t)}
	return NewService(prompts, sessions, fa), p, sessions, fa
}

func TestService_AnalyzePronunciation(t *testing.T) {
	t.Parallel()
	svc, p, sessions, fa := setupService(t)
	ctx := context.Background()
	audio := stt.Audio{Data: []byte("RIFF"), Filename: "take.wav"}

	out, err := svc.AnalyzePronunciation(ctx, AnalyzeRequest{PromptID: p.ID, UserID: ptr("ana"), Audio: audio, Language: "en"})
	if err != nil {
		t.Fatalf("AnalyzePronunciation: %v", err)
	}
	if len(fa.reqs) != 1 || fa.reqs[0].ExpectedText != "cat" || fa.reqs[0].Language != "en" {
		t.Errorf("analyzer requests = %+v", fa.reqs)
	}
	if out.Prompt.ID != p.ID || out.Result.Score != 66 {
		t.Errorf("Outcome = %+v", out)
	}
	s := out.Session
	if s.ExpectedText != "cat" || s.Transcription != "cap" || s.Score != 66 || *s.UserID != "ana" || s.PromptID != p.ID {
		t.Errorf("Session = %+v", s)
	}

	stored, err := sessions.Get(ctx, s.ID)
	if err != nil || stored == nil {
		t.Fatalf("stored session = %v, %v", stored, err)
	}
	if stored.Analysis == nil || stored.Analysis.DiffText != out.Result.DiffText {
		t.Errorf("stored analysis = %+v", stored.Analysis)
	}
}

func TestService_AnalyzePronunciation_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown prompt", func(t *testing.T) {
		t.Parallel()
		svc, _, _, fa := setupService(t)
		_, err := svc.AnalyzePronunciation(ctx, AnalyzeRequest{PromptID: "nope"})
		if !errors.Is(err, ErrPromptNotFound) {
			t.Errorf("err = %v, want ErrPromptNotFound", err)
		}
		if len(fa.reqs) != 0 {
			t.Error("analyzer called for unknown prompt")
		}
	})

	t.Run("analysis failure stores nothing", func(t *testing.T) {
		t.Parallel()
		svc, p, sessions, fa := setupService(t)
		fa.err = analysis.ErrSTTUnavailable
		_, err := svc.AnalyzePronunciation(ctx, AnalyzeRequest{PromptID: p.ID})
		if !errors.Is(err, analysis.ErrSTTUnavailable) {
			t.Errorf("err = %v, want analyzer error", err)
		}
		if list, _ := sessions.List(ctx, ListOptions{}); len(list) != 0 {
			t.Errorf("stored %d sessions after failure", len(list))
		}
	})
}

func TestService_List_ClampsLimit(t *testing.T) {
	t.Parallel()
	svc, p, _, _ := setupService(t)
	ctx := context.Background()
	for range MaxListLimit + 5 {
		if _, err := svc.AnalyzePronunciation(ctx, AnalyzeRequest{PromptID: p.ID}); err != nil {
			t.Fatal(err)
		}
	}
	for _, limit := range []int{0, 500} {
		got, err := svc.List(ctx, ListOptions{Limit: limit})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != MaxListLimit {
			t.Errorf("List(limit=%d) returned %d, want %d", limit, len(got), MaxListLimit)
		}
	}
	got, _ := svc.List(ctx, ListOptions{Limit: 3})
	if len(got) != 3 {
		t.Errorf("List(limit=3) returned %d", len(got))
	}
	if s, err := svc.Get(ctx, got[0].ID); err != nil || s == nil {
		t.Errorf("Get = %v, %v", s, err)
	}
}
