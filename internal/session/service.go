package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/speaktrainer/internal/analysis"
	"github.com/MrWong99/speaktrainer/internal/observe"
	"github.com/MrWong99/speaktrainer/internal/prompt"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
)

// ErrPromptNotFound is returned by [Service.AnalyzePronunciation] when the
// requested prompt does not exist.
var ErrPromptNotFound = errors.New("session: prompt not found")

// AnalyzeRequest is the input of [Service.AnalyzePronunciation].
type AnalyzeRequest struct {
	PromptID string
	UserID   *string
	Audio    stt.Audio

	// Language overrides the analyzer's default language. Optional.
	Language string
}

// Outcome is the result of one analysed practice attempt.
type Outcome struct {
	Session *Session
	Prompt  *prompt.Prompt
	Result  *analysis.Result
}

// Service runs and records practice attempts.
type Service struct {
	prompts  prompt.Store
	sessions Store
	analyzer analysis.Analyzer
}

// NewService creates a [Service].
func NewService(prompts prompt.Store, sessions Store, analyzer analysis.Analyzer) *Service {
	return &Service{prompts: prompts, sessions: sessions, analyzer: analyzer}
}

// AnalyzePronunciation scores req.Audio against the text of req.PromptID and
// persists the attempt. Nothing is stored when the analysis fails.
func (s *Service) AnalyzePronunciation(ctx context.Context, req AnalyzeRequest) (*Outcome, error) {
	ctx, span := observe.StartSpan(ctx, "session.analyze_pronunciation")
	defer span.End()

	p, err := s.prompts.Get(ctx, req.PromptID)
	if err != nil {
		observe.RecordError(span, err)
		return nil, fmt.Errorf("session: load prompt: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrPromptNotFound, req.PromptID)
	}

	res, err := s.analyzer.Analyze(ctx, analysis.Request{
		ExpectedText: p.Text,
		Audio:        req.Audio,
		Language:     req.Language,
	})
	if err != nil {
		observe.RecordError(span, err)
		return nil, err
	}

	sess := &Session{
		PromptID:      p.ID,
		ExpectedText:  p.Text,
		UserID:        req.UserID,
		Transcription: res.Transcription,
		Score:         res.Score,
		Analysis:      res,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		observe.RecordError(span, err)
		return nil, err
	}
	observe.Logger(ctx).Info("practice session recorded",
		"session_id", sess.ID,
		"prompt_id", p.ID,
		"score", sess.Score,
	)
	return &Outcome{Session: sess, Prompt: p, Result: res}, nil
}

// Get returns the session with id, or (nil, nil) if there is none.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.sessions.Get(ctx, id)
}

// List returns sessions newest first. The limit is clamped to [MaxListLimit].
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Session, error) {
	if opts.Limit <= 0 || opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	return s.sessions.List(ctx, opts)
}
