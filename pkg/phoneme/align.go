package phoneme

import "fmt"

// Align computes a minimum-cost edit alignment between expected and actual
// using a full Levenshtein table with unit substitution cost.
//
// When several predecessors of a cell share the minimum, the backtrack prefers
// the diagonal move, then the vertical move (Delete), then the horizontal move
// (Insert). The result is exact and deterministic.
//
// Align allocates an (m+1)·(n+1) table; use [AlignChecked] to bound it.
func Align(expected, actual Sequence) Alignment {
	m, n := len(expected), len(actual)
	cols := n + 1
	d := make([]int, (m+1)*cols)

	for i := 0; i <= m; i++ {
		d[i*cols] = i
	}
	for j := 0; j <= n; j++ {
		d[j] = j
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			diag := d[(i-1)*cols+j-1]
			if expected[i-1] != actual[j-1] {
				diag++
			}
			del := d[(i-1)*cols+j] + 1
			ins := d[i*cols+j-1] + 1
			d[i*cols+j] = min(diag, del, ins)
		}
	}

	// Backtrack from the bottom-right corner, filling ops from the end.
	ops := make(Alignment, 0, max(m, n))
	i, j := m, n
	for i > 0 || j > 0 {
		cur := d[i*cols+j]
		if i > 0 && j > 0 {
			e, a := expected[i-1], actual[j-1]
			if e == a && cur == d[(i-1)*cols+j-1] {
				ops = append(ops, Match{Unit: e})
				i--
				j--
				continue
			}
			if e != a && cur == d[(i-1)*cols+j-1]+1 {
				ops = append(ops, Substitute{Expected: e, Actual: a})
				i--
				j--
				continue
			}
		}
		if i > 0 && cur == d[(i-1)*cols+j]+1 {
			ops = append(ops, Delete{Expected: expected[i-1]})
			i--
			continue
		}
		ops = append(ops, Insert{Actual: actual[j-1]})
		j--
	}

	for l, r := 0, len(ops)-1; l < r; l, r = l+1, r-1 {
		ops[l], ops[r] = ops[r], ops[l]
	}
	return ops
}

// AlignChecked is [Align] with a bound on the size of the cost table. It
// returns [ErrInputTooLarge] when (m+1)·(n+1) exceeds maxCells. A maxCells of
// zero or less disables the check.
func AlignChecked(expected, actual Sequence, maxCells int) (Alignment, error) {
	if maxCells > 0 {
		if cells := tableCells(len(expected), len(actual)); cells > maxCells {
			return nil, fmt.Errorf("%w: %d×%d units need %d cells, limit is %d",
				ErrInputTooLarge, len(expected), len(actual), cells, maxCells)
		}
	}
	return Align(expected, actual), nil
}

// tableCells returns (m+1)·(n+1), saturating instead of overflowing.
func tableCells(m, n int) int {
	const maxInt = int(^uint(0) >> 1)
	if n+1 != 0 && m+1 > maxInt/(n+1) {
		return maxInt
	}
	return (m + 1) * (n + 1)
}
