package trace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgoal/internal/hole"
	"subgoal/internal/lang"
	"subgoal/internal/solve"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndListSteps(t *testing.T) {
	store := openStore(t)

	steps := []solve.Step{
		{NodeID: "n1", ProblemID: "p1", Label: "decompose/split", Children: []string{"c1", "c2"}},
		{NodeID: "n2", ProblemID: "c1", Label: "decompose/focus-then", Children: []string{"c3"}},
	}
	require.NoError(t, store.RecordSteps("run-a", steps))
	require.NoError(t, store.RecordSteps("run-b", steps[:1]))

	got, err := store.Steps("run-a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "n1", got[0].NodeID)
	assert.Equal(t, []string{"c1", "c2"}, got[0].Children)
	assert.Equal(t, "decompose/focus-then", got[1].Label)

	other, err := store.Steps("run-b")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	none, err := store.Steps("run-missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordSteps_EmptyChildren(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.RecordSteps("run", []solve.Step{
		{NodeID: "n1", ProblemID: "p1", Label: "decompose/let"},
	}))
	got, err := store.Steps("run")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Children)
}

func TestRecordSolution(t *testing.T) {
	store := openStore(t)
	sol := hole.Solution{
		Pre:  lang.Binary{Op: lang.OpGt, Left: lang.Var{Name: "x"}, Right: lang.Int64(0)},
		Term: lang.Var{Name: "x"},
	}
	require.NoError(t, store.RecordSolution("run", "p1", sol))

	// Preconditions default to literal truth.
	require.NoError(t, store.RecordSolution("run", "p2", hole.Solution{Term: lang.Int64(0)}))
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.RecordSteps("run", []solve.Step{
		{NodeID: "n", ProblemID: "p", Label: "decompose/match"},
	}))
	require.NoError(t, store.Close())

	// Schema creation is idempotent and data survives reopening.
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Steps("run")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
