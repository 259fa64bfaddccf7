package phoneme

import (
	"fmt"
	"unicode/utf8"
)

// DefaultMaxCells bounds the alignment table at roughly 2048×2048 units, far
// above any single spoken utterance.
const DefaultMaxCells = 1 << 22

// Result is the outcome of comparing two transcriptions.
type Result struct {
	Diff   Diff   `json:"diff"`
	Score  int    `json:"score"`
	Counts Counts `json:"counts"`
}

// Option configures a [Comparer].
type Option func(*Comparer)

// WithMaxCells sets the alignment table budget. Zero or less disables it.
func WithMaxCells(n int) Option {
	return func(c *Comparer) { c.maxCells = n }
}

// WithDenominator selects the scoring policy.
func WithDenominator(d Denominator) Option {
	return func(c *Comparer) { c.denominator = d }
}

// WithTokenizer replaces the default tokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(c *Comparer) { c.tokenizer = t }
}

// Comparer runs the full tokenize → align → annotate → score pipeline with a
// fixed set of options. It is immutable and safe for concurrent use.
type Comparer struct {
	tokenizer   Tokenizer
	maxCells    int
	denominator Denominator
}

// NewComparer returns a Comparer with [DefaultMaxCells] and [DenominatorDiff]
// unless overridden by opts.
func NewComparer(opts ...Option) *Comparer {
	c := &Comparer{maxCells: DefaultMaxCells}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compare is a shorthand for NewComparer(opts...).Compare.
func Compare(expected, actual string, opts ...Option) (Result, error) {
	return NewComparer(opts...).Compare(expected, actual)
}

// Compare aligns the phonetic transcription actual against expected. It
// returns [ErrInvalidEncoding] if either string is not valid UTF-8 and
// [ErrInputTooLarge] if the alignment would exceed the cell budget. No partial
// result is returned on error.
func (c *Comparer) Compare(expected, actual string) (Result, error) {
	if !utf8.ValidString(expected) {
		return Result{}, fmt.Errorf("%w: expected transcription", ErrInvalidEncoding)
	}
	if !utf8.ValidString(actual) {
		return Result{}, fmt.Errorf("%w: actual transcription", ErrInvalidEncoding)
	}

	exp, act := c.tokenizer.tokenizePair(expected, actual)
	alignment, err := AlignChecked(exp, act, c.maxCells)
	if err != nil {
		return Result{}, err
	}
	diff := Annotate(alignment)
	return Result{
		Diff:   diff,
		Score:  c.denominator.Score(diff),
		Counts: diff.Counts(),
	}, nil
}

// Denominator reports the scoring policy of c.
func (c *Comparer) Denominator() Denominator { return c.denominator }

// MaxCells reports the alignment table budget of c.
func (c *Comparer) MaxCells() int { return c.maxCells }
