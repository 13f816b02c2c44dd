package graph

import "github.com/lysandra/graphdb/storage/block"

/*
insertProps writes props as a fresh chain of property blocks and
returns the head offset to store on the owning vertex or edge.
*/
func insertProps(bf *block.File[propTag], props map[string]string, keyLen, valLen int) (uint32, error) {
	head := block.End
	for k, val := range props {
		blk, err := bf.Attain(head)
		if err != nil {
			return 0, err
		}
		idx := blk.FreeSlotIndex()
		propView(blk.Slot(idx), keyLen, valLen).Set(k, val)
		blk.SetSlot(idx)
		head = blk.Offset()
	}
	return head, nil
}

/*
collectChain gathers every block offset in the chain rooted at head,
in link order, without mutating any of them.
*/
func collectChain[T any](bf *block.File[T], head uint32) ([]uint32, error) {
	var offsets []uint32
	err := bf.Walk(head, func(b *block.Block[T]) error {
		offsets = append(offsets, b.Offset())
		return nil
	})
	return offsets, err
}

/*
releaseChain frees every block in the chain rooted at head. It is used
when an entire chain belongs to one owner being deleted, so every
block in it can be pushed back to the free list unconditionally.
*/
func releaseChain[T any](bf *block.File[T], head uint32) error {
	offsets, err := collectChain(bf, head)
	if err != nil {
		return err
	}
	for _, o := range offsets {
		if err := bf.Release(o); err != nil {
			return err
		}
	}
	return nil
}

/*
packEdgeLoc and unpackEdgeLoc encode an edge's (block offset, slot
index) pair into the single uint32 the edge index stores per id,
using the low 2 bits for the slot (edges.Slots() never exceeds 4 in
this configuration) and the upper 30 bits for the block offset itself.
This limits edge block offsets to a quarter of the uint32 range that
vertex block offsets can use, a tradeoff accepted to keep the index
file's entry format uniform between vertices and edges.
*/
func packEdgeLoc(offset uint32, slot int) uint32 {
	return offset*4 + uint32(slot)
}

func unpackEdgeLoc(packed uint32) (uint32, int) {
	return packed / 4, int(packed % 4)
}
