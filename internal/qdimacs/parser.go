// Package qdimacs parses and serializes the QDIMACS superset described by
// the project's grammar: DIMACS comments and problem lines, quantifier
// blocks, clauses, and compact "IS" integer-split directives. Its shape
// follows github.com/rhartert/dimacs: a Builder interface driven by a
// token-stream scan, with errors surfaced as wrapped, typed values rather
// than recovered locally.
package qdimacs

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/maximaximal/qdimacs-splitter/internal/formula"
)

// Builder receives parsed QDIMACS constructs in file order. Implementations
// of Clause should treat tmpClause as a shared buffer: copy it if it needs
// to be retained past the call.
type Builder interface {
	// Problem processes the problem line.
	Problem(nVars, nClauses int)

	// QuantSet processes one quantifier block; universal is true for an
	// 'a' block, false for an 'e' block. vars holds the block's variables
	// in file order, unsigned.
	QuantSet(universal bool, vars []int)

	// IntSplit processes one "IS" directive.
	IntSplit(split formula.IntegerSplit)

	// Clause processes a clause line. tmpClause is a shared buffer; copy
	// it if retaining it past the call.
	Clause(tmpClause []int)

	// Comment processes a comment line, including the leading "c".
	Comment(line string)
}

// formulaBuilder accumulates parsed constructs into a formula.Formula,
// mirroring the teacher's cnfBuilder wrapper.
type formulaBuilder struct {
	f formula.Formula
}

func (b *formulaBuilder) Problem(nVars, nClauses int) {
	b.f.NrOfVariables = nVars
	b.f.NrOfClauses = 0
	b.f.Matrix = make(formula.Matrix, 0, nClauses)
}

func (b *formulaBuilder) QuantSet(universal bool, vars []int) {
	for _, v := range vars {
		if universal {
			b.f.Prefix = append(b.f.Prefix, v)
		} else {
			b.f.Prefix = append(b.f.Prefix, -v)
		}
	}
}

func (b *formulaBuilder) IntSplit(split formula.IntegerSplit) {
	b.f.Splits = append(b.f.Splits, split)
}

func (b *formulaBuilder) Clause(tmp []int) {
	c := make(formula.Clause, len(tmp))
	copy(c, tmp)
	b.f.Matrix = append(b.f.Matrix, c)
	b.f.NrOfClauses++
}

func (b *formulaBuilder) Comment(string) {} // ignored, matches the teacher's cnfBuilder

// Read parses a full QDIMACS document, runs post-processing (default
// split-variable inference, default-splitter synthesis, and quantifier
// block consistency checking) and returns the resulting Formula.
func Read(r io.Reader) (formula.Formula, error) {
	b := &formulaBuilder{}
	if err := ReadBuilder(r, b); err != nil {
		return formula.Formula{}, err
	}
	if err := postProcess(&b.f); err != nil {
		return formula.Formula{}, err
	}
	return b.f, nil
}

// ReadBuilder parses a QDIMACS document from r, invoking Builder methods
// in file order. It performs no post-processing; callers that need a
// ready-to-use Formula should use Read.
func ReadBuilder(r io.Reader, b Builder) error {
	var tokens []string
	err := func() error {
		var tokErr error
		tokens, tokErr = tokenize(r, b.Comment)
		return tokErr
	}()
	if err != nil {
		return fmt.Errorf("qdimacs: read: %w", err)
	}

	ts := &tokenStream{tokens: tokens}
	foundProblem := false

	for !ts.done() {
		tok, _ := ts.peek()
		switch tok {
		case "p":
			if foundProblem {
				return &ParseError{Context: "duplicate problem line"}
			}
			ts.next()
			if err := parseProblemLine(ts, b); err != nil {
				return err
			}
			foundProblem = true
		case "a", "e":
			ts.next()
			if err := parseQuantSet(ts, tok == "a", b); err != nil {
				return err
			}
		case "IS":
			ts.next()
			if err := parseIntSplit(ts, b); err != nil {
				return err
			}
		default:
			if !foundProblem {
				return &ParseError{Context: "clause found before problem line", Token: tok}
			}
			if err := parseClause(ts, b); err != nil {
				return err
			}
		}
	}

	if !foundProblem {
		return &ParseError{Context: "no problem line found"}
	}
	return nil
}

func parseProblemLine(ts *tokenStream, b Builder) error {
	cnf, ok := ts.next()
	if !ok || cnf != "cnf" {
		return &ParseError{Context: "expected \"cnf\" after \"p\"", Token: cnf}
	}
	vTok, ok := ts.next()
	if !ok {
		return &ParseError{Context: "missing variable count in problem line"}
	}
	nVars, err := strconv.Atoi(vTok)
	if err != nil || nVars < 0 {
		return &ParseError{Context: "invalid variable count in problem line", Token: vTok}
	}
	cTok, ok := ts.next()
	if !ok {
		return &ParseError{Context: "missing clause count in problem line"}
	}
	nClauses, err := strconv.Atoi(cTok)
	if err != nil || nClauses < 0 {
		return &ParseError{Context: "invalid clause count in problem line", Token: cTok}
	}
	b.Problem(nVars, nClauses)
	return nil
}

func parseQuantSet(ts *tokenStream, universal bool, b Builder) error {
	var vars []int
	for {
		tok, ok := ts.next()
		if !ok {
			return &ParseError{Context: "unterminated quantifier block"}
		}
		if tok == "0" {
			break
		}
		v, err := strconv.Atoi(tok)
		if err != nil || v <= 0 {
			return &ParseError{Context: "invalid quantifier variable", Token: tok}
		}
		vars = append(vars, v)
	}
	if len(vars) == 0 {
		return &ParseError{Context: "quantifier block requires at least one variable"}
	}
	b.QuantSet(universal, vars)
	return nil
}

func parseClause(ts *tokenStream, b Builder) error {
	var clause []int
	for {
		tok, ok := ts.next()
		if !ok {
			return &ParseError{Context: "unterminated clause"}
		}
		l, err := strconv.Atoi(tok)
		if err != nil {
			return &ParseError{Context: "invalid literal in clause", Token: tok}
		}
		if l == 0 {
			break
		}
		clause = append(clause, l)
	}
	if len(clause) == 0 {
		return &ParseError{Context: "clause must have at least one literal"}
	}
	b.Clause(clause)
	return nil
}

// parseIntSplit parses an "IS" directive: zero or more positive ints
// (vars), then one or more constraint groups, terminated by "0".
func parseIntSplit(ts *tokenStream, b Builder) error {
	var vars []int
	for {
		tok, ok := ts.peek()
		if !ok {
			return &ParseError{Context: "unterminated integer-split directive"}
		}
		v, err := strconv.Atoi(tok)
		if err != nil || v <= 0 {
			break
		}
		vars = append(vars, v)
		ts.next()
	}

	var constraints []formula.IntegerSplitConstraint
	for {
		cmpTok, ok := ts.next()
		if !ok {
			return &ParseError{Context: "expected comparator in integer-split directive"}
		}
		constraint, err := parseConstraintGroup(ts, cmpTok)
		if err != nil {
			return err
		}
		constraints = append(constraints, constraint)

		next, ok := ts.peek()
		if !ok {
			return &ParseError{Context: "unterminated integer-split directive"}
		}
		if next == "0" {
			ts.next()
			break
		}
		if next != "<" && next != ">" && next != "=" {
			return &ParseError{Context: "expected another comparator or terminating 0", Token: next}
		}
	}

	if len(constraints) == 0 {
		return &ConsistencyError{Context: "integer-split directive requires at least one constraint"}
	}

	b.IntSplit(formula.IntegerSplit{Vars: vars, Constraints: constraints})
	return nil
}

func parseConstraintGroup(ts *tokenStream, cmpTok string) (formula.IntegerSplitConstraint, error) {
	switch cmpTok {
	case "<", ">":
		tok, ok := ts.next()
		if !ok {
			return formula.IntegerSplitConstraint{}, &ParseError{Context: "missing bound after comparator", Token: cmpTok}
		}
		bound, err := strconv.Atoi(tok)
		if err != nil || bound <= 0 {
			return formula.IntegerSplitConstraint{}, &ParseError{Context: "invalid bound in integer-split constraint", Token: tok}
		}
		kind := formula.LessThan
		if cmpTok == ">" {
			kind = formula.GreaterThan
		}
		return formula.IntegerSplitConstraint{Kind: kind, Bound: bound}, nil
	case "=":
		var alts [][]int
		bitLen := -1
		for {
			tok, ok := ts.peek()
			// A bare "0" is always the integer-split terminator, never a
			// length-1 alternative (see DESIGN.md's resolution of the
			// grammar's noted ambiguity here).
			if !ok || tok == "0" || !isBinaryToken(tok) {
				break
			}
			if bitLen == -1 {
				bitLen = len(tok)
			} else if len(tok) != bitLen {
				break
			}
			alt := make([]int, len(tok))
			for i, r := range tok {
				if r == '1' {
					alt[i] = 1
				} else {
					alt[i] = 0
				}
			}
			alts = append(alts, alt)
			ts.next()
		}
		if len(alts) == 0 {
			return formula.IntegerSplitConstraint{}, &ParseError{Context: "= comparator requires at least one bit pattern"}
		}
		return formula.IntegerSplitConstraint{Kind: formula.Equals, Alternatives: alts}, nil
	default:
		return formula.IntegerSplitConstraint{}, &ParseError{Context: "unknown comparator", Token: cmpTok}
	}
}

// postProcess performs the parser's post-parse steps: inferring variables
// for splits that declared none, synthesizing a default splitter when no
// split was declared at all, and checking quantifier-block consistency.
func postProcess(f *formula.Formula) error {
	prefixCursor := 0
	for i := range f.Splits {
		s := &f.Splits[i]
		if len(s.Constraints) == 0 {
			return &ConsistencyError{Context: "integer split has zero constraints"}
		}
		if len(s.Vars) > 0 {
			prefixCursor += len(s.Vars)
			continue
		}
		width, err := defaultSplitWidth(s.Constraints[0])
		if err != nil {
			return err
		}
		if prefixCursor+width > len(f.Prefix) {
			return &ConsistencyError{Context: "integer split requires more prefix variables than are available"}
		}
		s.Vars = make([]int, width)
		for j := 0; j < width; j++ {
			v := f.Prefix[prefixCursor+j]
			if v < 0 {
				v = -v
			}
			s.Vars[j] = v
		}
		prefixCursor += width
	}

	if len(f.Splits) == 0 && len(f.Prefix) > 0 {
		n := len(f.Prefix)
		if n > 64 {
			n = 64
		}
		f.Splits = make([]formula.IntegerSplit, n)
		for i := 0; i < n; i++ {
			v := f.Prefix[i]
			if v < 0 {
				v = -v
			}
			f.Splits[i] = formula.IntegerSplit{
				Vars:        []int{v},
				Constraints: []formula.IntegerSplitConstraint{{Kind: formula.LessThan, Bound: 2}},
			}
		}
	}

	for _, s := range f.Splits {
		for _, c := range s.Constraints {
			if c.Kind != formula.Equals {
				continue
			}
			for _, alt := range c.Alternatives {
				if len(alt) != len(s.Vars) {
					return &ConsistencyError{Context: "equals alternative length does not match the split's variable count"}
				}
			}
		}

		lastSign := 0
		for _, v := range s.Vars {
			pos := -1
			for i, p := range f.Prefix {
				if abs(p) == v {
					pos = i
					break
				}
			}
			if pos == -1 {
				return &ConsistencyError{Context: fmt.Sprintf("split variable %d does not appear in the prefix", v)}
			}
			sign := 1
			if f.Prefix[pos] < 0 {
				sign = -1
			}
			if lastSign != 0 && lastSign != sign {
				return &ConsistencyError{Context: "integer split spans more than one quantifier block"}
			}
			lastSign = sign
		}
	}

	for _, c := range f.Matrix {
		for _, l := range c {
			if abs(l) > f.NrOfVariables {
				return &ConsistencyError{Context: fmt.Sprintf("literal %d exceeds declared variable count %d", l, f.NrOfVariables)}
			}
		}
	}

	return nil
}

func defaultSplitWidth(first formula.IntegerSplitConstraint) (int, error) {
	switch first.Kind {
	case formula.LessThan, formula.GreaterThan:
		return nrOfBits(first.Bound), nil
	case formula.Equals:
		if len(first.Alternatives) == 0 {
			return 0, &ConsistencyError{Context: "equals constraint has no alternatives"}
		}
		width := len(first.Alternatives[0])
		for _, alt := range first.Alternatives {
			if len(alt) != width {
				return 0, &ConsistencyError{Context: "equals alternatives must share the same bit length"}
			}
		}
		return width, nil
	default:
		return 0, &ConsistencyError{Context: "unknown integer-split constraint kind"}
	}
}

// nrOfBits returns ceil(log2(bound)), clamped to at least 1 (log2(1) == 0
// is treated as width 1).
func nrOfBits(bound int) int {
	if bound <= 1 {
		return 1
	}
	bits := int(math.Ceil(math.Log2(float64(bound))))
	if bits < 1 {
		bits = 1
	}
	return bits
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
