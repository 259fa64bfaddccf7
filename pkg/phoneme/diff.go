package phoneme

import "strings"

const (
	SymbolMatch    = "✅"
	SymbolMismatch = "❌"
)

// Entry is the display form of one alignment operation.
type Entry struct {
	Kind   Kind   `json:"kind"`
	Symbol string `json:"symbol"`

	// Expected is set for Match, Substitute and Delete.
	Expected Unit `json:"expected,omitempty"`

	// Actual is set for Match, Substitute and Insert.
	Actual Unit `json:"actual,omitempty"`
}

// String renders the entry as "✅ h", "❌ t→p", "❌ +n" or "❌ -s".
func (e Entry) String() string {
	switch e.Kind {
	case KindMatch:
		return e.Symbol + " " + string(e.Expected)
	case KindSubstitute:
		return e.Symbol + " " + string(e.Expected) + "→" + string(e.Actual)
	case KindInsert:
		return e.Symbol + " +" + string(e.Actual)
	default:
		return e.Symbol + " -" + string(e.Expected)
	}
}

// Diff is an ordered list of entries, one per alignment operation.
type Diff []Entry

// String joins the rendered entries with single spaces.
func (d Diff) String() string {
	parts := make([]string, len(d))
	for i, e := range d {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// Counts tallies the entries of a diff by kind.
type Counts struct {
	Matches       int `json:"matches"`
	Substitutions int `json:"substitutions"`
	Insertions    int `json:"insertions"`
	Deletions     int `json:"deletions"`
}

// Counts returns the number of entries of each kind.
func (d Diff) Counts() Counts {
	var c Counts
	for _, e := range d {
		switch e.Kind {
		case KindMatch:
			c.Matches++
		case KindSubstitute:
			c.Substitutions++
		case KindInsert:
			c.Insertions++
		case KindDelete:
			c.Deletions++
		}
	}
	return c
}

// Annotate maps each operation of a to a display entry, preserving order.
func Annotate(a Alignment) Diff {
	out := make(Diff, len(a))
	for i, op := range a {
		exp, _, act, _ := op.sides()
		sym := SymbolMismatch
		if op.Kind() == KindMatch {
			sym = SymbolMatch
		}
		out[i] = Entry{Kind: op.Kind(), Symbol: sym, Expected: exp, Actual: act}
	}
	return out
}
