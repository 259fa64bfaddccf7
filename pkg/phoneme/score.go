package phoneme

import "fmt"

// Denominator selects what a score is a percentage of.
type Denominator int

const (
	// DenominatorDiff divides matches by the full diff length, so insertions
	// lower the score. This is the default.
	DenominatorDiff Denominator = iota

	// DenominatorExpected divides matches by the number of expected units.
	DenominatorExpected
)

// ParseDenominator converts "diff" or "expected" to a [Denominator]. The empty
// string selects [DenominatorDiff].
func ParseDenominator(s string) (Denominator, error) {
	switch s {
	case "", "diff":
		return DenominatorDiff, nil
	case "expected":
		return DenominatorExpected, nil
	}
	return 0, fmt.Errorf("phoneme: unknown score denominator %q; valid values: diff, expected", s)
}

// String returns the config name of the denominator.
func (p Denominator) String() string {
	if p == DenominatorExpected {
		return "expected"
	}
	return "diff"
}

// Score returns floor(100·matches/len(d)), or 0 for an empty diff.
func Score(d Diff) int {
	return DenominatorDiff.Score(d)
}

// Score reduces d to an integer percentage in [0, 100] under policy p. The
// result is truncated, never rounded.
func (p Denominator) Score(d Diff) int {
	c := d.Counts()
	total := len(d)
	if p == DenominatorExpected {
		total = c.Matches + c.Substitutions + c.Deletions
	}
	if total == 0 {
		return 0
	}
	return 100 * c.Matches / total
}
