package graph

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lysandra/graphdb/config"
)

func newEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	opts := config.Default()
	opts.InitialFileSize = 256
	opts.GrowthFactor = 2

	prefix := filepath.Join(t.TempDir(), "g")
	e, err := Create(prefix, "testgraph", "test", opts, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, prefix
}

func TestEmptyGraph(t *testing.T) {
	e, _ := newEngine(t)
	require.EqualValues(t, 0, e.VertexCount())
	require.EqualValues(t, 0, e.EdgeCount())
	require.Equal(t, "testgraph", e.Name())
	require.Equal(t, "test", e.Type())
}

func TestVertexRoundTrip(t *testing.T) {
	e, _ := newEngine(t)

	id, err := e.AddVertex("Person", map[string]string{"name": "ada", "born": "1815"})
	require.NoError(t, err)
	require.EqualValues(t, 1, e.VertexCount())

	label, ok, err := e.GetVertex(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Person", label)

	props, err := e.GetVertexProperties(id)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"name": "ada", "born": "1815"}, props)

	require.NoError(t, e.RemoveVertex(id))
	require.EqualValues(t, 0, e.VertexCount())

	_, ok, err = e.GetVertex(id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAddVertexDuplicateID(t *testing.T) {
	e, _ := newEngine(t)

	require.NoError(t, e.AddVertexWithID(42, "Person", nil))
	err := e.AddVertexWithID(42, "Person", nil)
	require.ErrorIs(t, err, ErrVertexExists)
}

func TestRemoveVertexNotFound(t *testing.T) {
	e, _ := newEngine(t)
	err := e.RemoveVertex(999)
	require.ErrorIs(t, err, ErrVertexNotFound)
}

func TestEdgeMultiplicity(t *testing.T) {
	e, _ := newEngine(t)

	a, err := e.AddVertex("Person", nil)
	require.NoError(t, err)
	b, err := e.AddVertex("Person", nil)
	require.NoError(t, err)

	edge1, err := e.AddEdge(a, b, "knows", nil)
	require.NoError(t, err)
	edge2, err := e.AddEdge(a, b, "likes", map[string]string{"weight": "5"})
	require.NoError(t, err)
	require.NotEqual(t, edge1, edge2)

	deg, err := e.Outdegree(a)
	require.NoError(t, err)
	require.EqualValues(t, 2, deg)

	edges, err := e.OutEdges(a)
	require.NoError(t, err)
	require.Len(t, edges, 2)

	props, err := e.GetEdgeProperties(edge2)
	require.NoError(t, err)
	require.Equal(t, "5", props["weight"])
}

func TestAddEdgeMissingEndpoints(t *testing.T) {
	e, _ := newEngine(t)
	a, err := e.AddVertex("Person", nil)
	require.NoError(t, err)

	_, err = e.AddEdge(a, 999, "knows", nil)
	require.ErrorIs(t, err, ErrVertexNotFound)

	_, err = e.AddEdge(999, a, "knows", nil)
	require.ErrorIs(t, err, ErrVertexNotFound)
}

func TestRemoveVertexCascadesEdges(t *testing.T) {
	e, _ := newEngine(t)

	a, err := e.AddVertex("Person", nil)
	require.NoError(t, err)
	b, err := e.AddVertex("Person", nil)
	require.NoError(t, err)
	c, err := e.AddVertex("Person", nil)
	require.NoError(t, err)

	edge1, err := e.AddEdge(a, b, "knows", map[string]string{"k": "v"})
	require.NoError(t, err)
	edge2, err := e.AddEdge(a, c, "knows", nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, e.EdgeCount())

	require.NoError(t, e.RemoveVertex(a))
	require.EqualValues(t, 0, e.EdgeCount())
	require.EqualValues(t, 2, e.VertexCount())

	_, ok, err := e.GetEdge(edge1)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = e.GetEdge(edge2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoveEdgePreservesSiblings(t *testing.T) {
	e, _ := newEngine(t)

	a, err := e.AddVertex("Person", nil)
	require.NoError(t, err)
	b, err := e.AddVertex("Person", nil)
	require.NoError(t, err)
	c, err := e.AddVertex("Person", nil)
	require.NoError(t, err)

	edge1, err := e.AddEdge(a, b, "knows", nil)
	require.NoError(t, err)
	edge2, err := e.AddEdge(a, c, "knows", nil)
	require.NoError(t, err)

	require.NoError(t, e.RemoveEdge(edge1))

	_, ok, err := e.GetEdge(edge1)
	require.NoError(t, err)
	require.False(t, ok)

	got, ok, err := e.GetEdge(edge2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, c, got.Target)

	deg, err := e.Outdegree(a)
	require.NoError(t, err)
	require.EqualValues(t, 1, deg)
}

func TestBlockReuseAcrossAddRemoveCycles(t *testing.T) {
	e, _ := newEngine(t)

	for i := 0; i < 20; i++ {
		id, err := e.AddVertex("X", map[string]string{"i": "v"})
		require.NoError(t, err)
		require.NoError(t, e.RemoveVertex(id))
	}
	require.EqualValues(t, 0, e.VertexCount())

	id, err := e.AddVertex("X", nil)
	require.NoError(t, err)
	_, ok, err := e.GetVertex(id)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReplayIsIdempotent(t *testing.T) {
	opts := config.Default()
	prefix := filepath.Join(t.TempDir(), "g")

	e, err := Create(prefix, "g1", "t1", opts, nil)
	require.NoError(t, err)

	a, err := e.AddVertex("Person", map[string]string{"name": "grace"})
	require.NoError(t, err)
	b, err := e.AddVertex("Person", nil)
	require.NoError(t, err)
	_, err = e.AddEdge(a, b, "knows", map[string]string{"since": "1950"})
	require.NoError(t, err)

	// Simulate a crash: the redo log is never Reset because Close/Save
	// is never called on this handle.

	reopened, err := Open(prefix, opts, nil)
	require.NoError(t, err)
	defer reopened.Close()

	require.EqualValues(t, 2, reopened.VertexCount())
	require.EqualValues(t, 1, reopened.EdgeCount())

	label, ok, err := reopened.GetVertex(a)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Person", label)
}

func TestSaveResetsLogAndPersists(t *testing.T) {
	opts := config.Default()
	prefix := filepath.Join(t.TempDir(), "g")

	e, err := Create(prefix, "g1", "t1", opts, nil)
	require.NoError(t, err)

	_, err = e.AddVertex("Person", nil)
	require.NoError(t, err)
	require.NoError(t, e.Save())
	require.NoError(t, e.Close())

	reopened, err := Open(prefix, opts, nil)
	require.NoError(t, err)
	defer reopened.Close()
	require.EqualValues(t, 1, reopened.VertexCount())
}

func TestClosedEngineRejectsOperations(t *testing.T) {
	opts := config.Default()
	prefix := filepath.Join(t.TempDir(), "g")

	e, err := Create(prefix, "g1", "t1", opts, nil)
	require.NoError(t, err)

	a, err := e.AddVertex("Person", nil)
	require.NoError(t, err)
	b, err := e.AddVertex("Person", nil)
	require.NoError(t, err)
	edge, err := e.AddEdge(a, b, "knows", nil)
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.ErrorIs(t, e.Close(), ErrClosed)

	require.ErrorIs(t, e.Save(), ErrClosed)

	_, _, err = e.GetVertex(a)
	require.ErrorIs(t, err, ErrClosed)
	_, err = e.GetVertexProperties(a)
	require.ErrorIs(t, err, ErrClosed)
	_, err = e.Outdegree(a)
	require.ErrorIs(t, err, ErrClosed)
	_, err = e.OutEdges(a)
	require.ErrorIs(t, err, ErrClosed)
	_, _, err = e.GetEdge(edge)
	require.ErrorIs(t, err, ErrClosed)
	_, err = e.GetEdgeProperties(edge)
	require.ErrorIs(t, err, ErrClosed)
	_, err = e.GetRecursiveEdges(a, 1)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, e.EachVertex(func(uint64) error { return nil }), ErrClosed)

	_, err = e.AddVertex("Person", nil)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, e.AddVertexWithID(999, "Person", nil), ErrClosed)
	require.ErrorIs(t, e.RemoveVertex(a), ErrClosed)
	_, err = e.AddEdge(a, b, "knows", nil)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, e.RemoveEdge(edge), ErrClosed)
}
