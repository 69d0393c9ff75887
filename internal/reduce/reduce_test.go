package reduce

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maximaximal/qdimacs-splitter/internal/formula"
)

func widthFourSplit() formula.IntegerSplit {
	// LessThan 4 over 2 variables accepts all 2^2 = 4 assignments, so
	// NrOfSplits() == 4, matching the "width 4" leaf vectors from the
	// end-to-end scenarios.
	return formula.IntegerSplit{
		Vars:        []int{1, 2},
		Constraints: []formula.IntegerSplitConstraint{{Kind: formula.LessThan, Bound: 4}},
	}
}

func fourLeaves() []formula.SolverResult {
	return []formula.SolverResult{
		{Result: formula.Sat, WallSeconds: 3, Name: "0"},
		{Result: formula.Unsat, WallSeconds: 5, Name: "1"},
		{Result: formula.Sat, WallSeconds: 7, Name: "2"},
		{Result: formula.Sat, WallSeconds: 9, Name: "3"},
	}
}

func TestReduce_existentialScenario(t *testing.T) {
	// End-to-end scenario 5: fused result is Sat 3s.
	f := &formula.Formula{
		Prefix: []int{1, -2}, // quanttree_pos 1 is existential
		Splits: []formula.IntegerSplit{widthFourSplit()},
	}
	fused, stats, err := Reduce(f, fourLeaves(), 1, nil)
	require.NoError(t, err)
	require.Equal(t, formula.Sat, fused.Result)
	require.Equal(t, 3.0, fused.WallSeconds)
	require.Equal(t, formula.Sat, stats.Result)
	require.Equal(t, 3.0, stats.MinimalExecutionTimeSeconds)
	require.Equal(t, 24.0, stats.SummedExecutionTimeSeconds)
	require.Equal(t, 4, stats.RequiredCores)
	require.Equal(t, uint64(4), stats.NaiveSplitCount)
}

func TestReduce_universalScenario(t *testing.T) {
	// End-to-end scenario 6: fused result is Unsat 5s (any Unsat wins,
	// minimum time among Unsats).
	f := &formula.Formula{
		Prefix: []int{1, 2}, // quanttree_pos 1 is universal
		Splits: []formula.IntegerSplit{widthFourSplit()},
	}
	fused, stats, err := Reduce(f, fourLeaves(), 1, nil)
	require.NoError(t, err)
	require.Equal(t, formula.Unsat, fused.Result)
	require.Equal(t, 5.0, fused.WallSeconds)
	require.Equal(t, formula.Unsat, stats.Result)
}

func TestReduce_universalAllSatTakesMax(t *testing.T) {
	f := &formula.Formula{
		Prefix: []int{1, 2},
		Splits: []formula.IntegerSplit{widthFourSplit()},
	}
	results := []formula.SolverResult{
		{Result: formula.Sat, WallSeconds: 1},
		{Result: formula.Sat, WallSeconds: 4},
		{Result: formula.Sat, WallSeconds: 2},
		{Result: formula.Sat, WallSeconds: 9},
	}
	fused, _, err := Reduce(f, results, 1, nil)
	require.NoError(t, err)
	require.Equal(t, formula.Sat, fused.Result)
	require.Equal(t, 9.0, fused.WallSeconds)
}

func TestReduce_existentialAllUnsatTakesMax(t *testing.T) {
	f := &formula.Formula{
		Prefix: []int{1, -2},
		Splits: []formula.IntegerSplit{widthFourSplit()},
	}
	results := []formula.SolverResult{
		{Result: formula.Unsat, WallSeconds: 1},
		{Result: formula.Unsat, WallSeconds: 4},
		{Result: formula.Unsat, WallSeconds: 2},
		{Result: formula.Unsat, WallSeconds: 9},
	}
	fused, _, err := Reduce(f, results, 1, nil)
	require.NoError(t, err)
	require.Equal(t, formula.Unsat, fused.Result)
	require.Equal(t, 9.0, fused.WallSeconds)
}

func TestReduce_mixedExistentialIsTimeout(t *testing.T) {
	f := &formula.Formula{
		Prefix: []int{1, -2},
		Splits: []formula.IntegerSplit{widthFourSplit()},
	}
	results := []formula.SolverResult{
		{Result: formula.Unsat, WallSeconds: 1},
		{Result: formula.Timeout, WallSeconds: 4},
		{Result: formula.Unsat, WallSeconds: 2},
		{Result: formula.Timeout, WallSeconds: 9},
	}
	fused, _, err := Reduce(f, results, 1, nil)
	require.NoError(t, err)
	require.Equal(t, formula.Timeout, fused.Result)
}

func TestReduce_speedupAgainstNonSplit(t *testing.T) {
	f := &formula.Formula{
		Prefix: []int{1, -2},
		Splits: []formula.IntegerSplit{widthFourSplit()},
	}
	og := &formula.SolverResult{Result: formula.Sat, WallSeconds: 30}
	_, stats, err := Reduce(f, fourLeaves(), 1, og)
	require.NoError(t, err)
	require.True(t, stats.HasNonSplitReference)
	require.Equal(t, 30.0, stats.NonSplitExecutionTimeSeconds)
	require.Equal(t, 10.0, stats.SpeedupAgainstNonSplit) // 30 / 3
}

func TestReduce_zeroWidthSplitIsError(t *testing.T) {
	f := &formula.Formula{
		Prefix: []int{1, -2},
		Splits: []formula.IntegerSplit{{
			Vars: []int{1, 2},
			// GreaterThan a value >= 2^width accepts nothing.
			Constraints: []formula.IntegerSplitConstraint{{Kind: formula.GreaterThan, Bound: 100}},
		}},
	}
	_, _, err := Reduce(f, fourLeaves(), 1, nil)
	require.Error(t, err)
}

func TestReduce_twoLevelFold(t *testing.T) {
	// Two nested existential splits of width 2 each: the outer split picks
	// between two chunks of 2 (inner existential) leaves.
	inner := formula.IntegerSplit{
		Vars:        []int{3, 4},
		Constraints: []formula.IntegerSplitConstraint{{Kind: formula.LessThan, Bound: 2}},
	}
	outer := formula.IntegerSplit{
		Vars:        []int{1, 2},
		Constraints: []formula.IntegerSplitConstraint{{Kind: formula.LessThan, Bound: 2}},
	}
	f := &formula.Formula{
		Prefix: []int{-1, -2, -3, -4},
		Splits: []formula.IntegerSplit{outer, inner},
	}
	// Leaves ordered as assumption-vector ID: outer bit slowest-varying.
	results := []formula.SolverResult{
		{Result: formula.Unsat, WallSeconds: 1}, // outer=0 inner=0
		{Result: formula.Sat, WallSeconds: 2},   // outer=0 inner=1 -> chunk0 = Sat@2 (min of Sat)
		{Result: formula.Unsat, WallSeconds: 3}, // outer=1 inner=0
		{Result: formula.Unsat, WallSeconds: 4}, // outer=1 inner=1 -> chunk1 = Unsat@4 (max of Unsat)
	}
	fused, _, err := Reduce(f, results, 2, nil)
	require.NoError(t, err)
	// Inner fold: chunk0 -> Sat@2, chunk1 -> Unsat@4. Outer existential:
	// any Sat wins -> Sat@2.
	require.Equal(t, formula.Sat, fused.Result)
	require.Equal(t, 2.0, fused.WallSeconds)
}
