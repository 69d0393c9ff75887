// Package splitenum implements the split enumerator: given a parsed
// formula and a depth budget, it produces the ordered sequence of
// assumption vectors that the sub-formula emitter will turn into leaf
// QDIMACS files.
package splitenum

import (
	"github.com/maximaximal/qdimacs-splitter/internal/formula"
)

// Produce returns the ordered sequence of assumption vectors for f at the
// given depth. Each vector is a list of signed literals, positionally
// aligned with f.Prefix (vector[j] assumes the value of f.Prefix[j]).
//
// If f has any splits (declared, or synthesized by the parser's default
// splitter), embedded mode is used: the largest prefix of f.Splits whose
// total variable count fits within depth is enumerated and filtered by
// each split's constraints. Only when f.Splits is empty does
// prefix-expansion mode enumerate all 2^min(depth, len(Prefix))
// combinations unfiltered.
func Produce(f *formula.Formula, depth int) [][]int {
	if len(f.Splits) > 0 {
		bitDepth, splitCount := f.EmbeddedSplitsRoundFitting(depth)
		return produceEmbedded(f.Splits[:splitCount], bitDepth)
	}
	d := depth
	if d > len(f.Prefix) {
		d = len(f.Prefix)
	}
	if d < 0 {
		d = 0
	}
	return producePrefixExpansion(f.Prefix, d)
}

func produceEmbedded(splits []formula.IntegerSplit, bitDepth int) [][]int {
	if len(splits) == 0 {
		// Depth too small to fit even the first split: the trivial,
		// zero-width bit vector vacuously satisfies zero constraints.
		return [][]int{{}}
	}

	var vars []int
	ranges := make([][2]int, len(splits))
	cursor := 0
	for i, s := range splits {
		ranges[i] = [2]int{cursor, cursor + len(s.Vars)}
		vars = append(vars, s.Vars...)
		cursor += len(s.Vars)
	}

	total := uint64(1) << uint(bitDepth)
	var out [][]int
	for i := uint64(0); i < total; i++ {
		bits := formula.BitPattern(i, bitDepth)
		vec := make([]int, bitDepth)
		for p, one := range bits {
			if one {
				vec[p] = vars[p]
			} else {
				vec[p] = -vars[p]
			}
		}

		accepted := true
		for si, s := range splits {
			r := ranges[si]
			if !s.Satisfied(vec[r[0]:r[1]]) {
				accepted = false
				break
			}
		}
		if accepted {
			out = append(out, vec)
		}
	}
	return out
}

func producePrefixExpansion(prefix []int, depth int) [][]int {
	total := uint64(1) << uint(depth)
	out := make([][]int, total)
	for i := uint64(0); i < total; i++ {
		bits := formula.BitPattern(i, depth)
		vec := make([]int, depth)
		for p, one := range bits {
			abs := prefix[p]
			if abs < 0 {
				abs = -abs
			}
			if one {
				vec[p] = abs
			} else {
				vec[p] = -abs
			}
		}
		out[i] = vec
	}
	return out
}
