package analysis

import (
	"cmp"
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/speaktrainer/internal/observe"
	"github.com/MrWong99/speaktrainer/pkg/phoneme"
	"github.com/MrWong99/speaktrainer/pkg/provider/phonemizer"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
)

// Service is the in-process [Analyzer].
//
// The expected text is phonemized concurrently with transcription of the
// recording; the transcription is phonemized as soon as it is available. The
// phoneme comparer can be replaced at runtime with [Service.SetComparer].
type Service struct {
	stt            stt.Provider
	sttName        string
	phonemizer     phonemizer.Provider
	phonemizerName string
	language       string
	maxTextLength  int
	metrics        *observe.Metrics
	comparer       atomic.Pointer[phoneme.Comparer]
}

var _ Analyzer = (*Service)(nil)

// Option is a functional option for [NewService].
type Option func(*Service)

// WithComparer sets the initial phoneme comparer. Default: [phoneme.NewComparer]().
func WithComparer(c *phoneme.Comparer) Option {
	return func(s *Service) { s.comparer.Store(c) }
}

// WithLanguage sets the default language passed to providers. Default: "en".
func WithLanguage(lang string) Option {
	return func(s *Service) { s.language = lang }
}

// WithMaxTextLength caps the expected text length in runes. Zero disables
// the check.
func WithMaxTextLength(n int) Option {
	return func(s *Service) { s.maxTextLength = n }
}

// WithMetrics records provider and analysis metrics on m.
// Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithProviderNames sets the provider labels used in metrics.
func WithProviderNames(sttName, phonemizerName string) Option {
	return func(s *Service) {
		s.sttName = sttName
		s.phonemizerName = phonemizerName
	}
}

// NewService creates a [Service]. transcriber may be nil when the service is
// only used for text comparisons; [Service.Analyze] and [Service.Transcribe]
// then return [ErrSTTUnavailable].
func NewService(transcriber stt.Provider, ph phonemizer.Provider, opts ...Option) *Service {
	s := &Service{
		stt:            transcriber,
		sttName:        "stt",
		phonemizer:     ph,
		phonemizerName: "phonemizer",
		language:       "en",
	}
	for _, o := range opts {
		o(s)
	}
	if s.comparer.Load() == nil {
		s.comparer.Store(phoneme.NewComparer())
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// SetComparer replaces the phoneme comparer used by subsequent analyses.
func (s *Service) SetComparer(c *phoneme.Comparer) {
	if c != nil {
		s.comparer.Store(c)
	}
}

// Comparer returns the current phoneme comparer.
func (s *Service) Comparer() *phoneme.Comparer {
	return s.comparer.Load()
}

// Analyze implements [Analyzer].
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	expectedText, err := ValidateText(req.ExpectedText, s.maxTextLength)
	if err != nil {
		return nil, err
	}
	if s.stt == nil {
		return nil, ErrSTTUnavailable
	}
	lang := cmp.Or(req.Language, req.Audio.Language, s.language)
	audio := req.Audio
	audio.Language = lang

	ctx, span := observe.StartSpan(ctx, "analysis.analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("language", lang),
		attribute.Int("audio.bytes", len(audio.Data)),
	)

	start := time.Now()
	s.metrics.ActiveAnalyses.Add(ctx, 1)
	defer func() {
		s.metrics.ActiveAnalyses.Add(ctx, -1)
		s.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("language", lang)))
	}()

	var transcription, expected, actual string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := s.Transcribe(gctx, audio)
		if err != nil {
			return err
		}
		transcription = text
		actual, err = s.phonemize(gctx, text, lang)
		return err
	})
	g.Go(func() error {
		var err error
		expected, err = s.phonemize(gctx, expectedText, lang)
		return err
	})
	if err := g.Wait(); err != nil {
		observe.RecordError(span, err)
		return nil, err
	}

	res, err := s.compare(ctx, expected, actual)
	if err != nil {
		observe.RecordError(span, err)
		return nil, err
	}
	out := newResult(transcription, expected, actual, res)
	out.WordComparison = CompareWords(expectedText, transcription, s.Comparer().MaxCells())

	s.metrics.RecordScore(ctx, out.Score, lang)
	span.SetAttributes(attribute.Int("score", out.Score))
	observe.Logger(ctx).Info("analysis complete",
		"language", lang,
		"score", out.Score,
		"expected_units", len(out.Diff)-out.Counts.Insertions,
		"duration", time.Since(start),
	)
	return out, nil
}

// Transcribe implements [Analyzer].
func (s *Service) Transcribe(ctx context.Context, audio stt.Audio) (string, error) {
	if s.stt == nil {
		return "", ErrSTTUnavailable
	}
	if audio.Language == "" {
		audio.Language = s.language
	}
	ctx, span := observe.StartSpan(ctx, "analysis.transcribe")
	defer span.End()

	start := time.Now()
	t, err := s.stt.Transcribe(ctx, audio)
	if err = s.metrics.ObserveProvider(ctx, s.metrics.STTDuration, s.sttName, observe.KindSTT, start, err); err != nil {
		observe.RecordError(span, err)
		return "", fmt.Errorf("analysis: transcribe: %w", err)
	}
	return strings.TrimSpace(t.Text), nil
}

// CompareText phonemizes expected and actual text and compares them without
// any audio involved.
func (s *Service) CompareText(ctx context.Context, expectedText, actualText, language string) (*Result, error) {
	expectedText, err := ValidateText(expectedText, s.maxTextLength)
	if err != nil {
		return nil, err
	}
	lang := cmp.Or(language, s.language)

	var expected, actual string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		expected, err = s.phonemize(gctx, expectedText, lang)
		return err
	})
	g.Go(func() (err error) {
		actual, err = s.phonemize(gctx, actualText, lang)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res, err := s.compare(ctx, expected, actual)
	if err != nil {
		return nil, err
	}
	out := newResult(actualText, expected, actual, res)
	out.WordComparison = CompareWords(expectedText, actualText, s.Comparer().MaxCells())
	return out, nil
}

// phonemize converts text to IPA. Blank text yields "" without calling the
// provider: an empty transcription means nothing was said.
func (s *Service) phonemize(ctx context.Context, text, lang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	ctx, span := observe.StartSpan(ctx, "analysis.phonemize")
	defer span.End()

	start := time.Now()
	ipa, err := s.phonemizer.Phonemize(ctx, text, lang)
	if err = s.metrics.ObserveProvider(ctx, s.metrics.PhonemizeDuration, s.phonemizerName, observe.KindPhonemizer, start, err); err != nil {
		observe.RecordError(span, err)
		return "", fmt.Errorf("analysis: phonemize: %w", err)
	}
	return ipa, nil
}

func (s *Service) compare(ctx context.Context, expected, actual string) (phoneme.Result, error) {
	c := s.comparer.Load()
	start := time.Now()
	res, err := c.Compare(expected, actual)
	s.metrics.AlignmentDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("denominator", c.Denominator().String())))
	if err != nil {
		return phoneme.Result{}, fmt.Errorf("analysis: compare: %w", err)
	}
	return res, nil
}
