package graph

import "sync/atomic"

/*
EachVertex invokes fn once for every live vertex id, in id order. It
is the primitive whole-graph analytics (traverse.Edgemap,
traverse.VertexSparseMap, ...) scan over; fn returning an error stops
the scan early and that error is returned to the caller.
*/
func (e *Engine) EachVertex(fn func(id uint64) error) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	count := e.vindex.EntryCount()
	for id := uint64(0); id < count; id++ {
		_, ok, err := e.vindex.Load(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}

/*
MaxVertexID returns one past the highest vertex id ever assigned,
suitable for sizing a dense, id-indexed array for analytics.
*/
func (e *Engine) MaxVertexID() uint64 {
	return atomic.LoadUint64(e.master.view.Uint64Ptr(e.master.countsOff + 16))
}
