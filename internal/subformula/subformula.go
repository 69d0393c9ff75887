// Package subformula implements the sub-formula emitter: given a parsed
// Formula and one assumption vector, it produces the assumption-enriched
// clone that gets serialized to a leaf QDIMACS file for the external
// solver, following the naming convention the downstream benchmarking
// harness expects.
package subformula

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/maximaximal/qdimacs-splitter/internal/formula"
	"github.com/maximaximal/qdimacs-splitter/internal/qdimacs"
)

// Assume clones f and applies assumption vector v: for each literal at
// position j, a currently-universal f.Prefix[j] is flipped to existential
// (the sub-formula that fixes its value is no longer meaningfully
// universal over it), and the unit clause [literal] is appended.
func Assume(f *formula.Formula, v []int) *formula.Formula {
	clone := f.Clone()
	for j, lit := range v {
		if clone.Prefix[j] > 0 {
			clone.Prefix[j] = -clone.Prefix[j]
		}
		clone.Matrix = append(clone.Matrix, formula.Clause{lit})
		clone.NrOfClauses++
	}
	return clone
}

// FileName returns the canonical leaf filename for split ID id and
// original file basename base: "<id>:<base>".
func FileName(id int, base string) string {
	return fmt.Sprintf("%d:%s", id, base)
}

// WriteAll emits one leaf QDIMACS file per assumption vector in vectors,
// named by FileName and written under dir. It returns the paths written,
// in split-ID order.
func WriteAll(f *formula.Formula, vectors [][]int, origPath, dir string) ([]string, error) {
	base := filepath.Base(origPath)
	paths := make([]string, len(vectors))
	for id, v := range vectors {
		assumed := Assume(f, v)
		name := FileName(id, base)
		path := filepath.Join(dir, name)
		if err := writeFile(path, assumed); err != nil {
			return nil, fmt.Errorf("subformula: write leaf %d: %w", id, err)
		}
		paths[id] = path
	}
	return paths, nil
}

func writeFile(path string, f *formula.Formula) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return qdimacs.Write(file, f)
}
