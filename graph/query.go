package graph

import "github.com/lysandra/graphdb/storage/block"

/*
EdgeInfo is a read-only snapshot of one edge, returned by the query
API instead of a live block handle.
*/
type EdgeInfo struct {
	ID     uint64
	Source uint64
	Target uint64
	Label  string
}

/*
GetVertex returns a vertex's label. ok is false if id is not live.
*/
func (e *Engine) GetVertex(id uint64) (label string, ok bool, err error) {
	if err := e.checkOpen(); err != nil {
		return "", false, err
	}

	offset, ok, err := e.vindex.Load(id)
	if err != nil || !ok {
		return "", ok, err
	}

	blk, err := e.vertices.Entry(offset)
	if err != nil {
		return "", false, err
	}
	vs := vertexView(blk.Slot(0))
	return e.master.vertexLabels.Name(vs.Label()), true, nil
}

/*
GetVertexProperties returns the (key, value) properties of vertex id.
*/
func (e *Engine) GetVertexProperties(id uint64) (map[string]string, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	offset, ok, err := e.vindex.Load(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVertexNotFound
	}

	blk, err := e.vertices.Entry(offset)
	if err != nil {
		return nil, err
	}
	vs := vertexView(blk.Slot(0))
	return e.readProps(e.vprops, vs.PropHead())
}

/*
Outdegree returns the number of live outgoing edges of vertex id.
*/
func (e *Engine) Outdegree(id uint64) (uint32, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}

	offset, ok, err := e.vindex.Load(id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrVertexNotFound
	}

	blk, err := e.vertices.Entry(offset)
	if err != nil {
		return 0, err
	}
	return vertexView(blk.Slot(0)).EdgeCount(), nil
}

/*
OutEdges returns every outgoing edge of vertex id, in no particular
order.
*/
func (e *Engine) OutEdges(id uint64) ([]EdgeInfo, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	offset, ok, err := e.vindex.Load(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVertexNotFound
	}

	blk, err := e.vertices.Entry(offset)
	if err != nil {
		return nil, err
	}
	head := vertexView(blk.Slot(0)).EdgeHead()

	var out []EdgeInfo
	err = e.edges.Walk(head, func(eb *block.Block[edgeTag]) error {
		for i := 0; i < e.edges.Slots(); i++ {
			if !eb.HasSlot(i) {
				continue
			}
			es := edgeView(eb.Slot(i))
			out = append(out, EdgeInfo{
				ID:     es.ID(),
				Source: id,
				Target: es.Target(),
				Label:  e.master.edgeLabels.Name(es.Label()),
			})
		}
		return nil
	})
	return out, err
}

/*
GetEdge returns a snapshot of a single edge by id.
*/
func (e *Engine) GetEdge(id uint64) (EdgeInfo, bool, error) {
	if err := e.checkOpen(); err != nil {
		return EdgeInfo{}, false, err
	}

	packed, ok, err := e.eindex.Load(id)
	if err != nil || !ok {
		return EdgeInfo{}, ok, err
	}

	offset, idx := unpackEdgeLoc(packed)
	blk, err := e.edges.Entry(offset)
	if err != nil {
		return EdgeInfo{}, false, err
	}
	es := edgeView(blk.Slot(idx))
	return EdgeInfo{
		ID:     es.ID(),
		Source: es.Source(),
		Target: es.Target(),
		Label:  e.master.edgeLabels.Name(es.Label()),
	}, true, nil
}

/*
GetEdgeProperties returns the (key, value) properties of edge id.
*/
func (e *Engine) GetEdgeProperties(id uint64) (map[string]string, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	packed, ok, err := e.eindex.Load(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEdgeNotFound
	}

	offset, idx := unpackEdgeLoc(packed)
	blk, err := e.edges.Entry(offset)
	if err != nil {
		return nil, err
	}
	es := edgeView(blk.Slot(idx))
	return e.readProps(e.eprops, es.PropHead())
}

/*
GetRecursiveEdges walks outward from start, following outgoing edges
breadth-first up to depth hops, and returns every edge encountered
exactly once. depth <= 0 means unbounded (until the reachable set is
exhausted).
*/
func (e *Engine) GetRecursiveEdges(start uint64, depth int) ([]EdgeInfo, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	visitedVertex := map[uint64]bool{start: true}
	visitedEdge := map[uint64]bool{}
	frontier := []uint64{start}

	var result []EdgeInfo

	for hop := 0; len(frontier) > 0 && (depth <= 0 || hop < depth); hop++ {
		var next []uint64
		for _, v := range frontier {
			edges, err := e.OutEdges(v)
			if err != nil {
				return nil, err
			}
			for _, ed := range edges {
				if !visitedEdge[ed.ID] {
					visitedEdge[ed.ID] = true
					result = append(result, ed)
				}
				if !visitedVertex[ed.Target] {
					visitedVertex[ed.Target] = true
					next = append(next, ed.Target)
				}
			}
		}
		frontier = next
	}

	return result, nil
}

/*
readProps walks a property chain into a plain map, the representation
the query API hands back to callers.
*/
func (e *Engine) readProps(bf *block.File[propTag], head uint32) (map[string]string, error) {
	out := make(map[string]string)
	err := bf.Walk(head, func(b *block.Block[propTag]) error {
		for i := 0; i < bf.Slots(); i++ {
			if !b.HasSlot(i) {
				continue
			}
			ps := propView(b.Slot(i), e.opts.PropKeyLen, e.opts.PropValLen)
			out[ps.Key()] = ps.Value()
		}
		return nil
	})
	return out, err
}
