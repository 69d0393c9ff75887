// Package reduce implements the result reducer: it folds a flat vector of
// per-leaf solver results up the quantifier prefix, respecting the
// alternating existential/universal aggregation rules, into one fused
// result plus a timing profile.
package reduce

import (
	"fmt"

	"github.com/maximaximal/qdimacs-splitter/internal/formula"
)

// ReduceError reports that the reducer received fewer results than
// expected, or that a split it must fold over accepts zero assignments.
type ReduceError struct {
	Context string
}

func (e *ReduceError) Error() string {
	return fmt.Sprintf("reduce: %s", e.Context)
}

// Stats is the aggregate timing profile reported alongside the fused
// result.
type Stats struct {
	MinimalExecutionTimeSeconds float64
	SummedExecutionTimeSeconds  float64
	RequiredCores               int
	Result                      formula.SolverReturnCode
	NaiveSplitCount             uint64
	RunTasksComparedToNaive     float64

	// HasNonSplitReference reports whether an og_formula_result was
	// supplied; NonSplitExecutionTimeSeconds and SpeedupAgainstNonSplit
	// are meaningful only when it is true.
	HasNonSplitReference         bool
	NonSplitExecutionTimeSeconds float64
	SpeedupAgainstNonSplit       float64
}

// Reduce folds results (indexed by split ID in enumerator order) up the
// first splitCount entries of f.Splits, producing the fused SolverResult
// and its Stats. ogResult, if non-nil, is the solver's result on the
// unmodified formula and feeds the speedup statistics.
func Reduce(f *formula.Formula, results []formula.SolverResult, splitCount int, ogResult *formula.SolverResult) (formula.SolverResult, Stats, error) {
	if splitCount > len(f.Splits) {
		return formula.SolverResult{}, Stats{}, &ReduceError{Context: "splitCount exceeds the number of declared splits"}
	}

	required := len(results)
	summed := 0.0
	for _, r := range results {
		summed += r.WallSeconds
	}

	splits := f.Splits[:splitCount]
	totalVars := 0
	for _, s := range splits {
		totalVars += len(s.Vars)
	}
	naiveSplitCount := uint64(1) << uint(totalVars)

	fused, err := fold(f.Prefix, splits, results)
	if err != nil {
		return formula.SolverResult{}, Stats{}, err
	}

	stats := Stats{
		MinimalExecutionTimeSeconds: fused.WallSeconds,
		SummedExecutionTimeSeconds:  summed,
		RequiredCores:               required,
		Result:                      fused.Result,
		NaiveSplitCount:             naiveSplitCount,
		RunTasksComparedToNaive:     float64(required) / float64(naiveSplitCount),
	}

	if ogResult != nil {
		stats.HasNonSplitReference = true
		stats.NonSplitExecutionTimeSeconds = ogResult.WallSeconds
		if fused.WallSeconds > 0 {
			stats.SpeedupAgainstNonSplit = ogResult.WallSeconds / fused.WallSeconds
		}
	}

	return fused, stats, nil
}

// fold reverses splits (innermost first) and repeatedly partitions acc
// into chunks per split width, reducing each chunk according to the
// quantifier sign at quanttreePos, per spec.md section 4.5.
func fold(prefix []int, splits []formula.IntegerSplit, results []formula.SolverResult) (formula.SolverResult, error) {
	acc := append([]formula.SolverResult(nil), results...)

	totalVars := 0
	for _, s := range splits {
		totalVars += len(s.Vars)
	}
	quanttreePos := totalVars - 1

	for i := len(splits) - 1; i >= 0; i-- {
		s := splits[i]
		width := s.NrOfSplits()
		if width < 1 {
			return formula.SolverResult{}, &ReduceError{Context: "split accepts zero assignments"}
		}
		if len(acc)%width != 0 {
			return formula.SolverResult{}, &ReduceError{Context: "fewer results than expected for this split width"}
		}

		universal := false
		if quanttreePos >= 0 && quanttreePos < len(prefix) {
			universal = prefix[quanttreePos] > 0
		}

		next := make([]formula.SolverResult, 0, len(acc)/width)
		for start := 0; start < len(acc); start += width {
			chunk := acc[start : start+width]
			next = append(next, foldChunk(chunk, universal))
		}
		acc = next

		if quanttreePos > len(s.Vars) {
			quanttreePos -= len(s.Vars)
		}
	}

	if len(acc) != 1 {
		return formula.SolverResult{}, &ReduceError{Context: "fold did not converge to a single result"}
	}
	return acc[0], nil
}

// foldChunk applies the existential or universal aggregation rule to one
// chunk of sibling results.
func foldChunk(chunk []formula.SolverResult, universal bool) formula.SolverResult {
	if universal {
		return foldUniversal(chunk)
	}
	return foldExistential(chunk)
}

func foldExistential(chunk []formula.SolverResult) formula.SolverResult {
	anySat := false
	allUnsat := true
	for _, r := range chunk {
		if r.Result == formula.Sat {
			anySat = true
		}
		if r.Result != formula.Unsat {
			allUnsat = false
		}
	}

	if anySat {
		return minBy(chunk, formula.Sat)
	}
	if allUnsat {
		return maxBy(chunk, formula.Unsat)
	}
	return timeoutSentinel()
}

func foldUniversal(chunk []formula.SolverResult) formula.SolverResult {
	allSat := true
	anyUnsat := false
	for _, r := range chunk {
		if r.Result != formula.Sat {
			allSat = false
		}
		if r.Result == formula.Unsat {
			anyUnsat = true
		}
	}

	if allSat {
		return maxBy(chunk, formula.Sat)
	}
	if anyUnsat {
		return minBy(chunk, formula.Unsat)
	}
	return timeoutSentinel()
}

func minBy(chunk []formula.SolverResult, code formula.SolverReturnCode) formula.SolverResult {
	var best formula.SolverResult
	found := false
	for _, r := range chunk {
		if r.Result != code {
			continue
		}
		if !found || r.WallSeconds < best.WallSeconds {
			best = r
			found = true
		}
	}
	return best
}

func maxBy(chunk []formula.SolverResult, code formula.SolverReturnCode) formula.SolverResult {
	var best formula.SolverResult
	found := false
	for _, r := range chunk {
		if r.Result != code {
			continue
		}
		if !found || r.WallSeconds > best.WallSeconds {
			best = r
			found = true
		}
	}
	return best
}

func timeoutSentinel() formula.SolverResult {
	return formula.SolverResult{
		Result:      formula.Timeout,
		WallSeconds: formula.TimeoutSentinelSeconds,
		Name:        formula.TimeoutSentinelName,
	}
}
