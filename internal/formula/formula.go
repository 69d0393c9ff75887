// Package formula defines the data model shared by the parser, split
// enumerator, sub-formula emitter, and result reducer: the quantifier
// prefix, the CNF matrix, integer-split directives, and solver outcomes.
package formula

import (
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
)

// Clause is an ordered, non-empty sequence of literals. The trailing zero
// of QDIMACS is a delimiter and is never stored.
type Clause []int

// Matrix is an ordered sequence of clauses.
type Matrix []Clause

// IntegerSplitKind identifies how an IntegerSplitConstraint restricts the
// unsigned integer encoded by a split's variables.
type IntegerSplitKind int

const (
	LessThan IntegerSplitKind = iota
	GreaterThan
	Equals
)

func (k IntegerSplitKind) String() string {
	switch k {
	case LessThan:
		return "<"
	case GreaterThan:
		return ">"
	case Equals:
		return "="
	default:
		return "?"
	}
}

// IntegerSplitConstraint restricts the value encoded by a split's
// variables. For LessThan/GreaterThan, Bound holds the single unsigned
// bound. For Equals, Alternatives holds the disjunctive bit-pattern
// alternatives, each of equal length.
type IntegerSplitConstraint struct {
	Kind         IntegerSplitKind
	Bound        int
	Alternatives [][]int // each entry is a 0/1 sequence, MSB-first
}

// Satisfied reports whether the constraint accepts the unsigned integer
// num, which is the value encoded by bits (signed literals, positive for
// a 1-bit, negative for a 0-bit, in the same MSB-first order as bits).
func (c IntegerSplitConstraint) Satisfied(bits []int, num uint64) bool {
	switch c.Kind {
	case LessThan:
		return num < uint64(c.Bound)
	case GreaterThan:
		return num > uint64(c.Bound)
	case Equals:
		for _, alt := range c.Alternatives {
			if len(alt) != len(bits) {
				continue
			}
			matched := true
			for i, b := range alt {
				bitIsOne := b == 1
				litIsPositive := bits[i] > 0
				if bitIsOne != litIsPositive {
					matched = false
					break
				}
			}
			if matched {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// IntegerSplit declares how a contiguous run of prefix variables (Vars, in
// big-endian / most-significant-first order) is partitioned by value.
type IntegerSplit struct {
	Vars        []int
	Constraints []IntegerSplitConstraint
}

// ToUnsigned interprets bits (signed literals, positive = 1-bit) as a
// big-endian unsigned integer.
func ToUnsigned(bits []int) uint64 {
	var num uint64
	for _, b := range bits {
		num <<= 1
		if b > 0 {
			num |= 1
		}
	}
	return num
}

// SatisfiedWithNum reports whether any constraint accepts bits/num.
func (s IntegerSplit) SatisfiedWithNum(bits []int, num uint64) bool {
	for _, c := range s.Constraints {
		if c.Satisfied(bits, num) {
			return true
		}
	}
	return false
}

// Satisfied reports whether any constraint accepts the assignment bits.
func (s IntegerSplit) Satisfied(bits []int) bool {
	return s.SatisfiedWithNum(bits, ToUnsigned(bits))
}

// NrOfSplits counts, in isolation, how many of the 2^len(Vars) possible
// assignments this split accepts. This mirrors the enumerator's own
// accept/reject test so the two always agree on chunk width (see
// BitPattern).
func (s IntegerSplit) NrOfSplits() int {
	width := len(s.Vars)
	total := uint64(1) << uint(width)
	count := 0
	lits := make([]int, width)
	for i := uint64(0); i < total; i++ {
		bits := BitPattern(i, width)
		for p, one := range bits {
			if one {
				lits[p] = 1
			} else {
				lits[p] = -1
			}
		}
		if s.SatisfiedWithNum(lits, i) {
			count++
		}
	}
	return count
}

// BitPattern returns the bits of index as a slice of length width,
// most-significant-bit first, using a bitset.BitSet to test each bit
// rather than hand-rolled shifting.
func BitPattern(index uint64, width int) []bool {
	bs := bitset.From([]uint64{index})
	bits := make([]bool, width)
	for p := 0; p < width; p++ {
		shift := uint(width - 1 - p)
		bits[p] = bs.Test(shift)
	}
	return bits
}

// Formula is a parsed QDIMACS problem: an alternating quantifier prefix
// (positive entries are universal variables, negative entries are
// existential variables whose variable is the absolute value), a CNF
// matrix, and the integer-split directives declared or synthesized for it.
type Formula struct {
	Prefix        []int
	Matrix        Matrix
	Splits        []IntegerSplit
	NrOfVariables int
	NrOfClauses   int
}

// Clone returns a deep copy of f; mutating the clone never affects f.
func (f *Formula) Clone() *Formula {
	clone := &Formula{
		Prefix:        append([]int(nil), f.Prefix...),
		NrOfVariables: f.NrOfVariables,
		NrOfClauses:   f.NrOfClauses,
	}
	clone.Matrix = make(Matrix, len(f.Matrix))
	for i, c := range f.Matrix {
		clone.Matrix[i] = append(Clause(nil), c...)
	}
	clone.Splits = make([]IntegerSplit, len(f.Splits))
	for i, s := range f.Splits {
		clone.Splits[i] = IntegerSplit{
			Vars:        append([]int(nil), s.Vars...),
			Constraints: append([]IntegerSplitConstraint(nil), s.Constraints...),
		}
	}
	return clone
}

// EmbeddedSplitsMaxDepth is the total number of variables covered by all
// declared splits.
func (f *Formula) EmbeddedSplitsMaxDepth() int {
	total := 0
	for _, s := range f.Splits {
		total += len(s.Vars)
	}
	return total
}

// EmbeddedSplitsRoundFitting returns the largest prefix of f.Splits whose
// total variable count is <= depth, as (bitDepth, splitCount).
func (f *Formula) EmbeddedSplitsRoundFitting(depth int) (bitDepth int, splitCount int) {
	remaining := depth
	for _, s := range f.Splits {
		remaining -= len(s.Vars)
		if remaining < 0 {
			return bitDepth, splitCount
		}
		bitDepth += len(s.Vars)
		splitCount++
	}
	return bitDepth, splitCount
}

// SolverReturnCode is the outcome of a solver run on a (sub-)formula.
type SolverReturnCode int

const (
	Sat SolverReturnCode = iota
	Unsat
	Timeout
)

func (c SolverReturnCode) String() string {
	switch c {
	case Sat:
		return "Sat"
	case Unsat:
		return "Unsat"
	case Timeout:
		return "Timeout"
	default:
		return fmt.Sprintf("SolverReturnCode(%d)", int(c))
	}
}

// SolverResult is one leaf solver outcome, wall clock time and the name of
// the log file it was read from (or the run name it belongs to).
type SolverResult struct {
	WallSeconds float64
	Result      SolverReturnCode
	Name        string
}

// TimeoutSentinelSeconds is the wall time reported for a fold step whose
// chunk produced neither a unanimous SAT nor a unanimous UNSAT verdict.
const TimeoutSentinelSeconds = math.MaxFloat64 / 2

// TimeoutSentinelName is the Name carried by a synthesized Timeout
// SolverResult produced by a fold step rather than read from a log.
const TimeoutSentinelName = "<timeout>"
