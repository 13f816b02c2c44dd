package traverse

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lysandra/graphdb/config"
	"github.com/lysandra/graphdb/graph"
)

func newFourCycle(t *testing.T) (*graph.Engine, [4]uint64) {
	t.Helper()
	opts := config.Default()
	prefix := filepath.Join(t.TempDir(), "g")

	e, err := graph.Create(prefix, "cycle", "test", opts, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	var ids [4]uint64
	for i := range ids {
		id, err := e.AddVertex("Node", nil)
		require.NoError(t, err)
		ids[i] = id
	}
	for i := range ids {
		_, err := e.AddEdge(ids[i], ids[(i+1)%4], "next", nil)
		require.NoError(t, err)
	}
	return e, ids
}

func TestEdgemapVisitsEveryEdgeOnce(t *testing.T) {
	e, ids := newFourCycle(t)

	seen := map[uint64]bool{}
	var sources []uint64
	err := Edgemap(e, func(ed graph.EdgeInfo) {
		seen[ed.ID] = true
		sources = append(sources, ed.Source)
	})
	require.NoError(t, err)
	require.Len(t, seen, 4)
	require.ElementsMatch(t, ids[:], sources)
}

func TestSourceEdgemapSingleVertex(t *testing.T) {
	e, ids := newFourCycle(t)

	var targets []uint64
	err := SourceEdgemap(e, ids[0], func(ed graph.EdgeInfo) {
		targets = append(targets, ed.Target)
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{ids[1]}, targets)
}

func TestOutdegreeDenseArray(t *testing.T) {
	e, _ := newFourCycle(t)

	out := make([]uint32, e.VertexCount())
	require.NoError(t, Outdegree(e, out))
	for _, deg := range out {
		require.EqualValues(t, 1, deg)
	}
}

func TestVertexSparseMapSkipsRemoved(t *testing.T) {
	e, ids := newFourCycle(t)
	require.NoError(t, e.RemoveVertex(ids[0]))

	sparse := make([]uint64, e.VertexCount())
	require.NoError(t, VertexSparseMap(e, sparse))
	require.Len(t, sparse, 3)
	require.NotContains(t, sparse, ids[0])
	require.ElementsMatch(t, ids[1:], sparse)
}
