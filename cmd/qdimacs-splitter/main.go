// Command qdimacs-splitter is a debugging and experimentation aid for QBF
// solving: it splits a QDIMACS formula's outer quantifier block(s) into
// assumption-enriched sub-formulas for an external solver, and later
// merges the resulting solver logs back into one end-to-end verdict.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"

	"github.com/maximaximal/qdimacs-splitter/internal/formula"
	"github.com/maximaximal/qdimacs-splitter/internal/qdimacs"
	"github.com/maximaximal/qdimacs-splitter/internal/reduce"
	"github.com/maximaximal/qdimacs-splitter/internal/solverlog"
	"github.com/maximaximal/qdimacs-splitter/internal/splitenum"
	"github.com/maximaximal/qdimacs-splitter/internal/subformula"
)

func main() {
	split := flag.String("split", "", "input QDIMACS file to split")
	orig := flag.String("orig", "", "original QDIMACS file to merge logs against")
	name := flag.String("name", "", "name of the run to merge")
	workingDirectory := flag.String("working-directory", "", "directory to read/write split and log files (default: current directory)")
	depth := flag.Int("depth", 4, "split depth")
	format := flag.String("format", "text", "merge-mode statistics output format: text, json, or cbor")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger := newLogger(*verbose)

	dir, err := resolveWorkingDirectory(*workingDirectory)
	if err != nil {
		logger.Error().Err(err).Msg("could not resolve working directory")
		os.Exit(1)
	}

	switch {
	case *split != "":
		if err := runSplit(logger, *split, *depth, dir); err != nil {
			logger.Error().Err(err).Msg("split failed")
			os.Exit(1)
		}
	case *orig != "" && *name != "":
		if err := runMerge(logger, *orig, *name, *depth, dir, *format); err != nil {
			logger.Error().Err(err).Msg("merge failed")
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "require either --split PATH or (--orig PATH and --name NAME)")
		os.Exit(1)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

func resolveWorkingDirectory(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

func runSplit(logger zerolog.Logger, path string, depth int, dir string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	f, err := qdimacs.Read(file)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	logger.Debug().Int("variables", f.NrOfVariables).Int("clauses", f.NrOfClauses).Msg("parsed formula")

	vectors := splitenum.Produce(&f, depth)
	logger.Info().Int("splits", len(vectors)).Int("depth", depth).Msg("enumerated assumption vectors")

	paths, err := subformula.WriteAll(&f, vectors, path, dir)
	if err != nil {
		return err
	}
	for i, p := range paths {
		logger.Debug().Int("id", i).Str("path", p).Msg("wrote leaf formula")
	}
	fmt.Printf("wrote %d sub-formulas to %s\n", len(paths), dir)
	return nil
}

func runMerge(logger zerolog.Logger, origPath, name string, depth int, dir, format string) error {
	if _, err := os.Stat(origPath); err != nil {
		return fmt.Errorf("original file %s does not exist: %w", origPath, err)
	}

	file, err := os.Open(origPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", origPath, err)
	}
	defer file.Close()

	f, err := qdimacs.Read(file)
	if err != nil {
		return fmt.Errorf("parse %s: %w", origPath, err)
	}

	_, splitCount := f.EmbeddedSplitsRoundFitting(depth)
	vectors := splitenum.Produce(&f, depth)
	base := filepath.Base(origPath)

	results := make([]formula.SolverResult, len(vectors))
	for i := range vectors {
		logPath := solverlog.LeafLogPath(dir, name, i, base)
		r, err := solverlog.ReadFile(logPath, fmt.Sprintf("%d:%s", i, base))
		if err != nil {
			return err
		}
		results[i] = r
		logger.Debug().Int("id", i).Float64("wall_seconds", r.WallSeconds).Str("result", r.Result.String()).Msg("read leaf log")
	}

	var ogResult *formula.SolverResult
	refPath := solverlog.ReferenceLogPath(dir, name, base)
	if _, err := os.Stat(refPath); err == nil {
		r, err := solverlog.ReadFile(refPath, base)
		if err != nil {
			return err
		}
		ogResult = &r
	}

	fused, stats, err := reduce.Reduce(&f, results, splitCount, ogResult)
	if err != nil {
		return err
	}

	return report(format, fused, stats)
}

type statisticsReport struct {
	Result                       string  `json:"result" cbor:"result"`
	MinimalExecutionTimeSeconds  float64 `json:"minimal_execution_time_seconds" cbor:"minimal_execution_time_seconds"`
	SummedExecutionTimeSeconds   float64 `json:"summed_execution_time_seconds" cbor:"summed_execution_time_seconds"`
	RequiredCores                int     `json:"required_cores" cbor:"required_cores"`
	NaiveSplitCount              uint64  `json:"naive_split_count" cbor:"naive_split_count"`
	RunTasksComparedToNaive      float64 `json:"run_tasks_compared_to_naive" cbor:"run_tasks_compared_to_naive"`
	HasNonSplitReference         bool    `json:"has_non_split_reference" cbor:"has_non_split_reference"`
	NonSplitExecutionTimeSeconds float64 `json:"non_split_execution_time_seconds,omitempty" cbor:"non_split_execution_time_seconds,omitempty"`
	SpeedupAgainstNonSplit       float64 `json:"speedup_against_non_split,omitempty" cbor:"speedup_against_non_split,omitempty"`
}

func report(format string, fused formula.SolverResult, stats reduce.Stats) error {
	rep := statisticsReport{
		Result:                       fused.Result.String(),
		MinimalExecutionTimeSeconds:  stats.MinimalExecutionTimeSeconds,
		SummedExecutionTimeSeconds:   stats.SummedExecutionTimeSeconds,
		RequiredCores:                stats.RequiredCores,
		NaiveSplitCount:              stats.NaiveSplitCount,
		RunTasksComparedToNaive:      stats.RunTasksComparedToNaive,
		HasNonSplitReference:         stats.HasNonSplitReference,
		NonSplitExecutionTimeSeconds: stats.NonSplitExecutionTimeSeconds,
		SpeedupAgainstNonSplit:       stats.SpeedupAgainstNonSplit,
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "cbor":
		data, err := cbor.Marshal(rep)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	default:
		fmt.Printf("result: %s\n", rep.Result)
		fmt.Printf("minimal execution time: %.3fs\n", rep.MinimalExecutionTimeSeconds)
		fmt.Printf("summed execution time:  %.3fs\n", rep.SummedExecutionTimeSeconds)
		fmt.Printf("required cores:         %d\n", rep.RequiredCores)
		fmt.Printf("naive split count:      %d\n", rep.NaiveSplitCount)
		fmt.Printf("run tasks / naive:      %.6f\n", rep.RunTasksComparedToNaive)
		if rep.HasNonSplitReference {
			fmt.Printf("non-split reference:    %.3fs\n", rep.NonSplitExecutionTimeSeconds)
			fmt.Printf("speedup vs non-split:   %.3fx\n", rep.SpeedupAgainstNonSplit)
		}
		return nil
	}
}
