package analysis

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/speaktrainer/pkg/phoneme"
)

// WordPair is one step of the word-level alignment between the expected text
// and the transcription.
type WordPair struct {
	Kind     phoneme.Kind `json:"kind"`
	Expected string       `json:"expected,omitempty"`
	Actual   string       `json:"actual,omitempty"`

	// Similarity is the Jaro-Winkler similarity of the two words: 1 for a
	// match, 0 for an inserted or missing word.
	Similarity float64 `json:"similarity"`

	// SoundsAlike reports whether the words share a Double Metaphone code,
	// i.e. the learner said a homophone or near-homophone of the word.
	SoundsAlike bool `json:"sounds_alike"`
}

// WordComparison summarises how the transcription differs from the expected
// text at the word level. It complements the phoneme diff: a low phoneme
// score with SoundsAlike pairs usually points at transcription ambiguity
// rather than mispronunciation.
type WordComparison struct {
	Pairs []WordPair `json:"pairs"`

	// WordErrorRate is (substitutions + insertions + deletions) divided by
	// the number of expected words.
	WordErrorRate float64 `json:"word_error_rate"`

	// TextSimilarity is the Jaro-Winkler similarity of the normalised texts.
	TextSimilarity float64 `json:"text_similarity"`
}

// CompareWords aligns the words of actual against expected. Words are
// compared case-insensitively with punctuation removed. maxCells bounds the
// word alignment table like [phoneme.WithMaxCells]; nil is returned when the
// texts exceed it.
func CompareWords(expected, actual string, maxCells int) *WordComparison {
	exp := normalizeWords(expected)
	act := normalizeWords(actual)

	alignment, err := phoneme.AlignChecked(exp, act, maxCells)
	if err != nil {
		return nil
	}
	wc := &WordComparison{Pairs: make([]WordPair, 0, len(alignment))}
	errs := 0
	for _, op := range alignment {
		var p WordPair
		switch o := op.(type) {
		case phoneme.Match:
			p = WordPair{Expected: string(o.Unit), Actual: string(o.Unit), Similarity: 1, SoundsAlike: true}
		case phoneme.Substitute:
			e, a := string(o.Expected), string(o.Actual)
			p = WordPair{
				Expected:    e,
				Actual:      a,
				Similarity:  matchr.JaroWinkler(e, a, false),
				SoundsAlike: soundsAlike(e, a),
			}
			errs++
		case phoneme.Insert:
			p = WordPair{Actual: string(o.Actual)}
			errs++
		case phoneme.Delete:
			p = WordPair{Expected: string(o.Expected)}
			errs++
		}
		p.Kind = op.Kind()
		wc.Pairs = append(wc.Pairs, p)
	}

	switch {
	case len(exp) > 0:
		wc.WordErrorRate = float64(errs) / float64(len(exp))
	case len(act) > 0:
		wc.WordErrorRate = 1
	}
	wc.TextSimilarity = textSimilarity(exp, act)
	return wc
}

// normalizeWords lowercases s, drops punctuation and splits on whitespace.
// Apostrophes inside words are kept ("don't").
func normalizeWords(s string) phoneme.Sequence {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\'' || r == '’':
			b.WriteRune('\'')
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	fields := strings.Fields(b.String())
	seq := make(phoneme.Sequence, 0, len(fields))
	for _, f := range fields {
		if f = strings.Trim(f, "'"); f != "" {
			seq = append(seq, phoneme.Unit(f))
		}
	}
	return seq
}

func soundsAlike(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || x == bs {
			return true
		}
	}
	return false
}

func textSimilarity(exp, act phoneme.Sequence) float64 {
	join := func(s phoneme.Sequence) string {
		parts := make([]string, len(s))
		for i, u := range s {
			parts[i] = string(u)
		}
		return strings.Join(parts, " ")
	}
	if len(exp) == 0 && len(act) == 0 {
		return 1
	}
	return matchr.JaroWinkler(join(exp), join(act), false)
}
