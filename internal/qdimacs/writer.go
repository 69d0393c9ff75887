package qdimacs

import (
	"bufio"
	"fmt"
	"io"

	"github.com/maximaximal/qdimacs-splitter/internal/formula"
)

// Write serializes f as QDIMACS text: the problem line, the prefix
// re-grouped into alternating "a"/"e" blocks, then each clause. Literal
// order within clauses is preserved.
func Write(w io.Writer, f *formula.Formula) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "p cnf %d %d\n", f.NrOfVariables, f.NrOfClauses); err != nil {
		return err
	}

	if err := writePrefix(bw, f.Prefix); err != nil {
		return err
	}

	for _, clause := range f.Matrix {
		for _, l := range clause {
			if _, err := fmt.Fprintf(bw, "%d ", l); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(bw, "0\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// writePrefix emits the quantifier prefix as alternating blocks; a new
// block begins whenever the sign of the prefix entry changes.
func writePrefix(w *bufio.Writer, prefix []int) error {
	lastSign := 0
	for _, q := range prefix {
		sign := 1
		if q < 0 {
			sign = -1
		}
		v := q
		if v < 0 {
			v = -v
		}
		if sign != lastSign {
			if lastSign != 0 {
				if _, err := io.WriteString(w, " 0\n"); err != nil {
					return err
				}
			}
			letter := "a"
			if sign < 0 {
				letter = "e"
			}
			if _, err := fmt.Fprintf(w, "%s %d", letter, v); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(w, " %d", v); err != nil {
				return err
			}
		}
		lastSign = sign
	}
	if lastSign != 0 {
		if _, err := io.WriteString(w, " 0\n"); err != nil {
			return err
		}
	}
	return nil
}
