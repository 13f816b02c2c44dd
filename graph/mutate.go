package graph

import (
	"github.com/lysandra/graphdb/logging"
	"github.com/lysandra/graphdb/storage/block"
	"github.com/lysandra/graphdb/storage/txlog"
)

/*
AddVertex creates a new vertex with an auto-assigned id.
*/
func (e *Engine) AddVertex(label string, props map[string]string) (uint64, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}

	e.acquireTicket()
	defer e.releaseTicket()

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.addVertex(0, false, label, props, true)
}

/*
AddVertexWithID creates a new vertex under an explicit id. It fails
with ErrVertexExists if id is already live.
*/
func (e *Engine) AddVertexWithID(id uint64, label string, props map[string]string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	e.acquireTicket()
	defer e.releaseTicket()

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_, err := e.addVertex(id, true, label, props, true)
	return err
}

func (e *Engine) addVertex(id uint64, explicit bool, label string, props map[string]string, logIt bool) (uint64, error) {
	if explicit {
		if _, ok, err := e.vindex.Load(id); err != nil {
			return 0, err
		} else if ok {
			logging.LogWarning(e.sink, "vertex.add.duplicate", logging.Fields{"id": id})
			return 0, ErrVertexExists
		}
		e.master.ObserveVertexID(id)
	} else {
		id = e.master.NextVertexID()
	}

	labelID, err := e.master.vertexLabels.IDFor(label)
	if err != nil {
		return 0, err
	}

	blk, err := e.vertices.Attain(block.End)
	if err != nil {
		return 0, err
	}
	vs := vertexView(blk.Slot(0))
	vs.Init(labelID)

	head, err := insertProps(e.vprops, props, e.opts.PropKeyLen, e.opts.PropValLen)
	if err != nil {
		return 0, err
	}
	vs.SetPropHead(head)
	blk.SetSlot(0)

	if err := e.vindex.Grow(id); err != nil {
		return 0, err
	}
	if err := e.vindex.Store(id, blk.Offset()); err != nil {
		return 0, err
	}

	e.master.IncrVertexCount()
	e.master.vertexLabels.Incr(labelID)

	if logIt {
		if err := e.log.Append(txlog.Entry{Op: txlog.OpAddVertex, ID: id, Label: label, Props: props}); err != nil {
			return 0, err
		}
	}

	return id, nil
}

/*
RemoveVertex deletes a vertex and every outgoing edge it owns,
cascading into each removed edge's own properties.
*/
func (e *Engine) RemoveVertex(id uint64) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	e.acquireTicket()
	defer e.releaseTicket()

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.removeVertex(id, true)
}

func (e *Engine) removeVertex(id uint64, logIt bool) error {
	offset, ok, err := e.vindex.Load(id)
	if err != nil {
		return err
	}
	if !ok {
		logging.LogWarning(e.sink, "vertex.remove.not_found", logging.Fields{"id": id})
		return ErrVertexNotFound
	}

	blk, err := e.vertices.Entry(offset)
	if err != nil {
		return err
	}
	vs := vertexView(blk.Slot(0))
	labelID := vs.Label()

	edgeOffsets, err := collectChain(e.edges, vs.EdgeHead())
	if err != nil {
		return err
	}
	for _, eo := range edgeOffsets {
		eblk, err := e.edges.Entry(eo)
		if err != nil {
			return err
		}
		for i := 0; i < e.edges.Slots(); i++ {
			if !eblk.HasSlot(i) {
				continue
			}
			es := edgeView(eblk.Slot(i))
			if err := releaseChain(e.eprops, es.PropHead()); err != nil {
				return err
			}
			e.master.edgeLabels.Decr(es.Label())
			e.master.DecrEdgeCount()
			if err := e.eindex.Clear(es.ID()); err != nil {
				return err
			}
		}
	}
	for _, eo := range edgeOffsets {
		if err := e.edges.Release(eo); err != nil {
			return err
		}
	}

	if err := releaseChain(e.vprops, vs.PropHead()); err != nil {
		return err
	}
	if err := e.vertices.Release(offset); err != nil {
		return err
	}
	if err := e.vindex.Clear(id); err != nil {
		return err
	}

	e.master.DecrVertexCount()
	e.master.vertexLabels.Decr(labelID)

	if logIt {
		if err := e.log.Append(txlog.Entry{Op: txlog.OpRmVertex, A: id}); err != nil {
			return err
		}
	}
	return nil
}

/*
AddEdge creates a new directed edge from source to target with an
auto-assigned id. Both endpoints must already exist.
*/
func (e *Engine) AddEdge(source, target uint64, label string, props map[string]string) (uint64, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}

	e.acquireTicket()
	defer e.releaseTicket()

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.addEdge(0, false, source, target, label, props, true)
}

func (e *Engine) addEdge(id uint64, explicit bool, source, target uint64, label string, props map[string]string, logIt bool) (uint64, error) {
	srcOffset, ok, err := e.vindex.Load(source)
	if err != nil {
		return 0, err
	}
	if !ok {
		logging.LogWarning(e.sink, "edge.add.source_not_found", logging.Fields{"source": source})
		return 0, ErrVertexNotFound
	}
	if _, ok, err := e.vindex.Load(target); err != nil {
		return 0, err
	} else if !ok {
		logging.LogWarning(e.sink, "edge.add.target_not_found", logging.Fields{"target": target})
		return 0, ErrVertexNotFound
	}

	if explicit {
		if _, ok, err := e.eindex.Load(id); err != nil {
			return 0, err
		} else if ok {
			logging.LogWarning(e.sink, "edge.add.duplicate", logging.Fields{"id": id})
			return 0, ErrEdgeExists
		}
		e.master.ObserveEdgeID(id)
	} else {
		id = e.master.NextEdgeID()
	}

	labelID, err := e.master.edgeLabels.IDFor(label)
	if err != nil {
		return 0, err
	}

	srcBlk, err := e.vertices.Entry(srcOffset)
	if err != nil {
		return 0, err
	}
	vs := vertexView(srcBlk.Slot(0))

	head := vs.EdgeHead()
	blk, err := e.edges.Attain(head)
	if err != nil {
		return 0, err
	}
	idx := blk.FreeSlotIndex()
	es := edgeView(blk.Slot(idx))
	es.Init(id, source, target, labelID)

	propHead, err := insertProps(e.eprops, props, e.opts.PropKeyLen, e.opts.PropValLen)
	if err != nil {
		return 0, err
	}
	es.SetPropHead(propHead)
	blk.SetSlot(idx)

	vs.SetEdgeHead(blk.Offset())
	vs.IncrEdgeCount()

	if err := e.eindex.Grow(id); err != nil {
		return 0, err
	}
	packed := packEdgeLoc(blk.Offset(), idx)
	if err := e.eindex.Store(id, packed); err != nil {
		return 0, err
	}

	e.master.IncrEdgeCount()
	e.master.edgeLabels.Incr(labelID)

	if logIt {
		ent := txlog.Entry{Op: txlog.OpAddEdge, ID: id, A: source, B: target, Label: label, Props: props}
		if err := e.log.Append(ent); err != nil {
			return 0, err
		}
	}

	return id, nil
}

/*
RemoveEdge deletes the edge with the given id and its properties. The
edge's slot bit is cleared at once; its block is unlinked from the
owning vertex's edge chain and released only once every slot in that
block is empty, matching how Attain/Release manage block reuse
elsewhere.
*/
func (e *Engine) RemoveEdge(id uint64) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	e.acquireTicket()
	defer e.releaseTicket()

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.removeEdge(id, true)
}

func (e *Engine) removeEdge(id uint64, logIt bool) error {
	packed, ok, err := e.eindex.Load(id)
	if err != nil {
		return err
	}
	if !ok {
		logging.LogWarning(e.sink, "edge.remove.not_found", logging.Fields{"id": id})
		return ErrEdgeNotFound
	}

	offset, idx := unpackEdgeLoc(packed)
	blk, err := e.edges.Entry(offset)
	if err != nil {
		return err
	}
	es := edgeView(blk.Slot(idx))
	labelID := es.Label()
	source := es.Source()

	if err := releaseChain(e.eprops, es.PropHead()); err != nil {
		return err
	}
	blk.ClearSlot(idx)

	srcOffset, srcOk, err := e.vindex.Load(source)
	if err != nil {
		return err
	}
	var vs vertexSlot
	var srcBlk *block.Block[vertexTag]
	if srcOk {
		srcBlk, err = e.vertices.Entry(srcOffset)
		if err != nil {
			return err
		}
		vs = vertexView(srcBlk.Slot(0))
	}

	if blk.State() == 0 {
		originalNext := blk.Next()
		if srcOk {
			if err := e.unlinkEdgeBlock(vs, offset, originalNext); err != nil {
				return err
			}
		}
		if err := e.edges.Release(offset); err != nil {
			return err
		}
	}

	if err := e.eindex.Clear(id); err != nil {
		return err
	}

	if srcOk {
		vs.DecrEdgeCount()
	}

	e.master.DecrEdgeCount()
	e.master.edgeLabels.Decr(labelID)

	if logIt {
		if err := e.log.Append(txlog.Entry{Op: txlog.OpRmEdge, A: id}); err != nil {
			return err
		}
	}
	return nil
}

/*
unlinkEdgeBlock splices offset out of vs's outgoing edge chain, since
Release reuses a block's next field for the free list and would
otherwise silently truncate whatever followed offset in the chain.
*/
func (e *Engine) unlinkEdgeBlock(vs vertexSlot, offset, originalNext uint32) error {
	if vs.EdgeHead() == offset {
		vs.SetEdgeHead(originalNext)
		return nil
	}

	cur := vs.EdgeHead()
	for cur != block.End {
		blk, err := e.edges.Entry(cur)
		if err != nil {
			return err
		}
		next := blk.Next()
		if next == offset {
			blk.SetNext(originalNext)
			return nil
		}
		cur = next
	}
	return nil
}
