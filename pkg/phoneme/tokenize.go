package phoneme

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	primaryStress   = '\u02c8' // ˈ
	secondaryStress = '\u02cc' // ˌ

	// espeak-ng --ipa=3 separates phonemes with an underscore.
	phonemeSeparator = '_'
)

// Tokenizer splits phonetic transcriptions into units. The zero value is ready
// to use and keeps stress markers.
//
// The rule:
//
//  1. The text is NFC-normalised and trimmed.
//  2. If it contains a separator (whitespace or '_'), each maximal run of
//     non-separator codepoints is one unit. Separators are dropped.
//  3. Otherwise every base codepoint starts a unit. Combining marks, modifier
//     letters and modifier symbols attach to the preceding unit. A tie bar also
//     pulls the next base codepoint into the same unit.
//  4. Stress markers (ˈ ˌ) are prefixed to the following unit in both modes. A
//     trailing stress marker is a unit of its own.
//
// When two transcriptions are compared the mode of step 2 is chosen once for
// the pair: if either side contains a separator, both are split on
// separators. espeak-ng prints a one-phoneme word such as "ˈoʊ" without any
// underscore, and it must still line up with "ˈoʊ" inside "n_ˈoʊ".
type Tokenizer struct {
	// IgnoreStress drops stress markers before splitting.
	IgnoreStress bool
}

// Tokenize splits text with the default [Tokenizer].
func Tokenize(text string) Sequence {
	return Tokenizer{}.Tokenize(text)
}

// Tokenize splits text into a [Sequence]. It never fails; empty or
// whitespace-only input yields an empty sequence.
func (t Tokenizer) Tokenize(text string) Sequence {
	text = t.prepare(text)
	return split(text, strings.ContainsFunc(text, isSeparator))
}

// tokenizePair splits both transcriptions of a comparison with one mode.
func (t Tokenizer) tokenizePair(expected, actual string) (Sequence, Sequence) {
	expected, actual = t.prepare(expected), t.prepare(actual)
	separated := strings.ContainsFunc(expected, isSeparator) || strings.ContainsFunc(actual, isSeparator)
	return split(expected, separated), split(actual, separated)
}

func (t Tokenizer) prepare(text string) string {
	text = norm.NFC.String(text)
	if t.IgnoreStress {
		text = strings.Map(func(r rune) rune {
			if isStress(r) {
				return -1
			}
			return r
		}, text)
	}
	return strings.TrimSpace(text)
}

func split(text string, separated bool) Sequence {
	switch {
	case text == "":
		return Sequence{}
	case separated:
		return splitFields(text)
	default:
		return splitClusters(text)
	}
}

// splitFields implements separated mode.
func splitFields(text string) Sequence {
	fields := strings.FieldsFunc(text, isSeparator)
	seq := make(Sequence, 0, len(fields))
	var pending string
	for _, f := range fields {
		if strings.TrimFunc(f, isStress) == "" {
			pending += f
			continue
		}
		seq = append(seq, Unit(pending+f))
		pending = ""
	}
	if pending != "" {
		seq = append(seq, Unit(pending))
	}
	return seq
}

// splitClusters implements cluster mode.
func splitClusters(text string) Sequence {
	var (
		seq     Sequence
		cur     []rune
		stress  []rune
		tieNext bool
	)
	flush := func() {
		if len(cur) > 0 {
			seq = append(seq, Unit(cur))
			cur = nil
		}
	}
	for _, r := range text {
		switch {
		case isStress(r):
			flush()
			tieNext = false
			stress = append(stress, r)
		case isTieBar(r):
			cur = append(cur, r)
			tieNext = len(cur) > 1
		case isModifier(r):
			if len(cur) == 0 {
				// No base to attach to: the mark stands alone.
				cur = append(stress, r)
				stress = nil
				continue
			}
			cur = append(cur, r)
		default:
			if tieNext {
				cur = append(cur, r)
				tieNext = false
				continue
			}
			flush()
			cur = append(stress, r)
			stress = nil
		}
	}
	flush()
	if len(stress) > 0 {
		seq = append(seq, Unit(stress))
	}
	return seq
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == phonemeSeparator
}

func isStress(r rune) bool {
	return r == primaryStress || r == secondaryStress
}

// isTieBar reports whether r joins two base symbols (t͡ʃ, k͜p).
func isTieBar(r rune) bool {
	return r == '\u0361' || r == '\u035c'
}

// isModifier reports whether r attaches to the preceding base symbol.
func isModifier(r rune) bool {
	return unicode.In(r, unicode.Mn, unicode.Me, unicode.Lm, unicode.Sk)
}
