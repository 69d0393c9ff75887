// Package solverlog reads line-oriented logs produced by the external
// runlim-based benchmarking harness and extracts a single SolverResult:
// the exit-code-derived verdict and the reported wall-clock time.
package solverlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/maximaximal/qdimacs-splitter/internal/formula"
)

var (
	exitCodePattern = regexp.MustCompile(`Command exited with non-zero status (\d+)`)
	// The trailing "?" accepts integer-only wall times, per SPEC_FULL.md's
	// resolution of the more permissive of the two observed regex forms.
	wallTimePattern = regexp.MustCompile(`^\[runlim\] real:\s*(\d+(?:\.\d+)?)`)
)

// Read scans r line by line for the exit-code and wall-time probes.
// Later matches overwrite earlier ones. A log with no matches yields
// (Timeout, 0.0). Unparseable lines carry no information and are skipped;
// only an I/O error from the scanner is fatal.
func Read(r io.Reader, name string) (formula.SolverResult, error) {
	result := formula.Timeout
	var wallSeconds float64

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if m := exitCodePattern.FindStringSubmatch(line); m != nil {
			code, err := strconv.Atoi(m[1])
			if err == nil {
				switch code {
				case 10:
					result = formula.Sat
				case 20:
					result = formula.Unsat
				default:
					result = formula.Timeout
				}
			}
		}

		if m := wallTimePattern.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				wallSeconds = v
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return formula.SolverResult{}, fmt.Errorf("solverlog: scan %s: %w", name, err)
	}

	return formula.SolverResult{WallSeconds: wallSeconds, Result: result, Name: name}, nil
}

// ReadFile opens path and reads it as a solver log named name.
func ReadFile(path, name string) (formula.SolverResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return formula.SolverResult{}, fmt.Errorf("solverlog: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, name)
}

// LeafLogPath builds the log filename convention consumed on merge: for
// run name run, split ID id and original basename base, the expected path
// is "<run>-<id>:<base>.log".
func LeafLogPath(dir, run string, id int, base string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%d:%s.log", run, id, base))
}

// ReferenceLogPath is the optional non-split reference run's log path:
// "<run>-<base>.log".
func ReferenceLogPath(dir, run, base string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.log", run, base))
}
