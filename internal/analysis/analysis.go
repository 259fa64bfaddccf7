// Package analysis turns a recording and the text the learner was asked to
// read into a scored phoneme comparison.
//
// [Service] runs the pipeline in-process: speech-to-text, grapheme-to-phoneme
// conversion of both the expected text and the transcription, and the
// phoneme alignment engine. [Remote] delegates the same work to another
// SpeakTrainer instance over HTTP. Both implement [Analyzer].
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/speaktrainer/pkg/phoneme"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
)

var (
	// ErrEmptyText is returned when the expected text is blank.
	ErrEmptyText = errors.New("analysis: expected text must not be empty")

	// ErrTextTooLong is returned when the expected text exceeds the
	// configured maximum length.
	ErrTextTooLong = errors.New("analysis: expected text too long")

	// ErrSTTUnavailable is returned when no speech-to-text provider is
	// configured.
	ErrSTTUnavailable = errors.New("analysis: no speech-to-text provider configured")
)

// Analyzer scores a learner's recording against the text they read.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	// Analyze transcribes req.Audio, converts both texts to phonemes and
	// compares them.
	Analyze(ctx context.Context, req Request) (*Result, error)

	// Transcribe returns the text spoken in audio.
	Transcribe(ctx context.Context, audio stt.Audio) (string, error)
}

// Request is the input of one analysis.
type Request struct {
	// ExpectedText is the prompt the learner read aloud.
	ExpectedText string

	// Audio is the learner's recording.
	Audio stt.Audio

	// Language overrides the analyzer's default language. Optional.
	Language string
}

// Result is the outcome of one analysis.
type Result struct {
	Transcription    string          `json:"transcription"`
	ExpectedPhonemes string          `json:"expected_phonemes"`
	ActualPhonemes   string          `json:"actual_phonemes"`
	Diff             phoneme.Diff    `json:"diff"`
	DiffText         string          `json:"diff_text"`
	Score            int             `json:"score"`
	Counts           phoneme.Counts  `json:"counts"`
	WordComparison   *WordComparison `json:"word_comparison,omitempty"`
}

// newResult fills a Result from the phoneme comparison of expected and actual.
func newResult(transcription, expected, actual string, cmp phoneme.Result) *Result {
	return &Result{
		Transcription:    transcription,
		ExpectedPhonemes: expected,
		ActualPhonemes:   actual,
		Diff:             cmp.Diff,
		DiffText:         cmp.Diff.String(),
		Score:            cmp.Score,
		Counts:           cmp.Counts,
	}
}

// ValidateText trims text and checks it can be analysed. maxRunes of zero or
// less disables the length check. Invalid UTF-8 is reported as
// [phoneme.ErrInvalidEncoding].
func ValidateText(text string, maxRunes int) (string, error) {
	if !utf8.ValidString(text) {
		return "", fmt.Errorf("%w: expected text", phoneme.ErrInvalidEncoding)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if maxRunes > 0 {
		if n := utf8.RuneCountInString(text); n > maxRunes {
			return "", fmt.Errorf("%w: %d characters, limit is %d", ErrTextTooLong, n, maxRunes)
		}
	}
	return text, nil
}
