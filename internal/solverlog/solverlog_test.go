package solverlog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maximaximal/qdimacs-splitter/internal/formula"
)

func TestRead(t *testing.T) {
	testCases := []struct {
		desc     string
		log      string
		wantCode formula.SolverReturnCode
		wantTime float64
	}{
		{
			desc:     "sat",
			log:      "[runlim] real: 12.5 seconds\nCommand exited with non-zero status 10\n",
			wantCode: formula.Sat,
			wantTime: 12.5,
		},
		{
			desc:     "unsat",
			log:      "Command exited with non-zero status 20\n[runlim] real: 3 seconds\n",
			wantCode: formula.Unsat,
			wantTime: 3,
		},
		{
			desc:     "integer-only wall time accepted",
			log:      "[runlim] real: 7\nCommand exited with non-zero status 10\n",
			wantCode: formula.Sat,
			wantTime: 7,
		},
		{
			desc:     "unknown exit code is a timeout",
			log:      "Command exited with non-zero status 137\n[runlim] real: 600.0 seconds\n",
			wantCode: formula.Timeout,
			wantTime: 600.0,
		},
		{
			desc:     "no matches at all",
			log:      "some unrelated line\nanother one\n",
			wantCode: formula.Timeout,
			wantTime: 0.0,
		},
		{
			desc:     "later match overwrites earlier",
			log:      "Command exited with non-zero status 10\nCommand exited with non-zero status 20\n",
			wantCode: formula.Unsat,
			wantTime: 0.0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := Read(strings.NewReader(tc.log), "leaf")
			require.NoError(t, err)
			require.Equal(t, tc.wantCode, got.Result)
			require.Equal(t, tc.wantTime, got.WallSeconds)
			require.Equal(t, "leaf", got.Name)
		})
	}
}

func TestLeafLogPath(t *testing.T) {
	require.Equal(t, "work/run-3:bench.qdimacs.log", LeafLogPath("work", "run", 3, "bench.qdimacs"))
}

func TestReferenceLogPath(t *testing.T) {
	require.Equal(t, "work/run-bench.qdimacs.log", ReferenceLogPath("work", "run", "bench.qdimacs"))
}
