// Package phoneme aligns two phonetic transcriptions and scores how closely the
// actual one matches the expected one.
//
// The pipeline is strictly Tokenizer → [Align] → [Annotate] → [Score]; [Compare]
// composes all four. Every stage is a pure function: nothing is cached and no
// state outlives a call, so all functions are safe for concurrent use.
//
//	res, err := phoneme.Compare("k æ t", "k æ p")
//	// res.Score == 66
//	// res.Diff.String() == "✅ k ✅ æ ❌ t→p"
package phoneme

import (
	"errors"
	"fmt"
)

var (
	// ErrInputTooLarge is returned when the alignment table for two sequences
	// would exceed the configured cell budget. Inputs are never truncated.
	ErrInputTooLarge = errors.New("phoneme: input too large")

	// ErrInvalidEncoding is returned when an input string is not valid UTF-8.
	ErrInvalidEncoding = errors.New("phoneme: invalid encoding")
)

// Unit is one phoneme-bearing symbol: a base codepoint plus any modifiers that
// belong to it. Units compare by exact codepoint sequence.
type Unit string

// Sequence is an ordered list of units produced by tokenizing one transcription.
type Sequence []Unit

// Kind classifies one aligned position.
type Kind uint8

const (
	KindMatch Kind = iota
	KindSubstitute
	KindInsert
	KindDelete
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMatch:
		return "match"
	case KindSubstitute:
		return "substitute"
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case KindMatch, KindSubstitute, KindInsert, KindDelete:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("phoneme: unknown kind %d", uint8(k))
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "match":
		*k = KindMatch
	case "substitute":
		*k = KindSubstitute
	case "insert":
		*k = KindInsert
	case "delete":
		*k = KindDelete
	default:
		return fmt.Errorf("phoneme: unknown kind %q", b)
	}
	return nil
}

// Op is one alignment operation. The set of implementations is closed:
// [Match], [Substitute], [Insert] and [Delete].
type Op interface {
	Kind() Kind

	// sides reports the expected and actual unit consumed by the operation.
	// A side that is not consumed is reported with ok == false.
	sides() (exp Unit, expOK bool, act Unit, actOK bool)
}

// Match pairs two equal units.
type Match struct {
	Unit Unit
}

// Substitute pairs an expected unit with a different actual unit.
type Substitute struct {
	Expected Unit
	Actual   Unit
}

// Insert is an extra unit present only in the actual sequence.
type Insert struct {
	Actual Unit
}

// Delete is an expected unit missing from the actual sequence.
type Delete struct {
	Expected Unit
}

func (Match) Kind() Kind      { return KindMatch }
func (Substitute) Kind() Kind { return KindSubstitute }
func (Insert) Kind() Kind     { return KindInsert }
func (Delete) Kind() Kind     { return KindDelete }

func (o Match) sides() (Unit, bool, Unit, bool)      { return o.Unit, true, o.Unit, true }
func (o Substitute) sides() (Unit, bool, Unit, bool) { return o.Expected, true, o.Actual, true }
func (o Insert) sides() (Unit, bool, Unit, bool)     { return "", false, o.Actual, true }
func (o Delete) sides() (Unit, bool, Unit, bool)     { return o.Expected, true, "", false }

// Alignment is an ordered sequence of operations that transforms an expected
// sequence into an actual one.
type Alignment []Op

// Expected reconstructs the expected sequence from the operations that consume
// an expected unit, in order.
func (a Alignment) Expected() Sequence {
	out := make(Sequence, 0, len(a))
	for _, op := range a {
		if u, ok, _, _ := op.sides(); ok {
			out = append(out, u)
		}
	}
	return out
}

// Actual reconstructs the actual sequence from the operations that consume an
// actual unit, in order.
func (a Alignment) Actual() Sequence {
	out := make(Sequence, 0, len(a))
	for _, op := range a {
		if _, _, u, ok := op.sides(); ok {
			out = append(out, u)
		}
	}
	return out
}

// Distance returns the edit distance represented by the alignment, i.e. the
// number of non-match operations.
func (a Alignment) Distance() int {
	n := 0
	for _, op := range a {
		if op.Kind() != KindMatch {
			n++
		}
	}
	return n
}
