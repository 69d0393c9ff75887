package subformula

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maximaximal/qdimacs-splitter/internal/qdimacs"
	"github.com/maximaximal/qdimacs-splitter/internal/splitenum"
)

func TestAssume_existentialVars(t *testing.T) {
	// End-to-end scenario 1: p cnf 2 1, e 1 2 0, 1 -2 0, depth 2.
	f, err := qdimacs.Read(strings.NewReader("p cnf 2 1\ne 1 2 0\n1 -2 0\n"))
	require.NoError(t, err)

	vectors := splitenum.Produce(&f, 2)
	require.Len(t, vectors, 4)

	for _, v := range vectors {
		assumed := Assume(&f, v)
		require.Equal(t, 3, assumed.NrOfClauses)
		require.Len(t, assumed.Matrix, 3)
		// No prefix entry was universal, so none should have flipped sign.
		require.Equal(t, f.Prefix, assumed.Prefix)
	}
}

func TestAssume_universalFlippedToExistential(t *testing.T) {
	// End-to-end scenario 2: p cnf 3 1, a 1 0, e 2 3 0, 1 2 3 0, depth 1.
	f, err := qdimacs.Read(strings.NewReader("p cnf 3 1\na 1 0\ne 2 3 0\n1 2 3 0\n"))
	require.NoError(t, err)

	vectors := splitenum.Produce(&f, 1)
	require.Len(t, vectors, 2)

	for _, v := range vectors {
		assumed := Assume(&f, v)
		require.Less(t, assumed.Prefix[0], 0, "fixed universal should flip to existential")
	}
}

func TestFileName(t *testing.T) {
	require.Equal(t, "3:foo.qdimacs", FileName(3, "foo.qdimacs"))
}

func TestWriteAll(t *testing.T) {
	f, err := qdimacs.Read(strings.NewReader("p cnf 2 1\ne 1 2 0\n1 -2 0\n"))
	require.NoError(t, err)

	dir := t.TempDir()
	vectors := splitenum.Produce(&f, 2)
	paths, err := WriteAll(&f, vectors, "bench.qdimacs", dir)
	require.NoError(t, err)
	require.Len(t, paths, len(vectors))

	for i, p := range paths {
		require.FileExists(t, p)
		require.Contains(t, p, FileName(i, "bench.qdimacs"))

		contents, err := os.ReadFile(p)
		require.NoError(t, err)
		reread, err := qdimacs.Read(strings.NewReader(string(contents)))
		require.NoError(t, err)
		require.Equal(t, 3, reread.NrOfClauses)
	}
}
