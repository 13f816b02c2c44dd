/*
Package traverse implements the analytic engine's whole-graph and
single-vertex traversal primitives. It does not implement any
analytic algorithm itself (PageRank, BFS, connected components, ...
are external collaborators built on top of these primitives); it only
provides the concurrency-safe building blocks they relax state
through.
*/
package traverse

import "github.com/lysandra/graphdb/graph"

/*
Relax is the capability an analytic algorithm supplies to fold one
edge into its running state, e.g. updating a distance array during a
shortest-path sweep. Implementations that mutate shared state across
concurrent calls are expected to do so with their own atomic or CAS
operations; this package calls Relax synchronously and does not
serialize calls itself beyond what Edgemap's single-goroutine walk
already guarantees.
*/
type Relax func(edge graph.EdgeInfo)

/*
Edgemap invokes relax once for every live edge in the whole graph, in
no particular order beyond vertex id order.
*/
func Edgemap(e *graph.Engine, relax Relax) error {
	return e.EachVertex(func(id uint64) error {
		return SourceEdgemap(e, id, relax)
	})
}

/*
SourceEdgemap invokes relax once for every outgoing edge of a single
vertex. It collects that vertex's edges through Engine.OutEdges first,
then calls relax on each.
*/
func SourceEdgemap(e *graph.Engine, vertex uint64, relax Relax) error {
	edges, err := e.OutEdges(vertex)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		relax(edge)
	}
	return nil
}

/*
Outdegree fills out, a dense array indexed by live-vertex ordinal (not
id), with each live vertex's outgoing edge count in id order. out must
be at least e.VertexCount() long.
*/
func Outdegree(e *graph.Engine, out []uint32) error {
	ordinal := 0
	return e.EachVertex(func(id uint64) error {
		n, err := e.Outdegree(id)
		if err != nil {
			return err
		}
		out[ordinal] = n
		ordinal++
		return nil
	})
}

/*
VertexSparseMap fills sparse, a dense array indexed by live-vertex
ordinal, with the vertex id at each ordinal, in id order. sparse must
be at least e.VertexCount() long. Analytic algorithms that want to
work in dense ordinal space (array-indexed, no gaps from removed
vertices) call this once up front and translate back through sparse[i]
whenever they need the real vertex id.
*/
func VertexSparseMap(e *graph.Engine, sparse []uint64) error {
	ordinal := 0
	return e.EachVertex(func(id uint64) error {
		sparse[ordinal] = id
		ordinal++
		return nil
	})
}
