package graph

import (
	"sync/atomic"

	"github.com/lysandra/graphdb/storage/disk"
)

// VertexPayload slot layout, 16 bytes, 4-byte aligned fields first so
// edgeHead/propHead/edgeCount can be updated with atomic/CAS:
//
//	edgeHead   uint32 @0   head of this vertex's outgoing edge chain, block.End if none
//	propHead   uint32 @4   head of this vertex's property chain, block.End if none
//	edgeCount  uint32 @8   live outgoing edge count, for Outdegree
//	label      uint16 @12  vertex label id
const vertexSlotSize = 16

type vertexSlot struct{ v disk.View }

func vertexView(v disk.View) vertexSlot { return vertexSlot{v} }

func (s vertexSlot) EdgeHead() uint32     { return atomic.LoadUint32(s.v.Uint32Ptr(0)) }
func (s vertexSlot) SetEdgeHead(o uint32) { atomic.StoreUint32(s.v.Uint32Ptr(0), o) }

func (s vertexSlot) CASEdgeHead(old, nw uint32) bool {
	return atomic.CompareAndSwapUint32(s.v.Uint32Ptr(0), old, nw)
}

func (s vertexSlot) PropHead() uint32     { return atomic.LoadUint32(s.v.Uint32Ptr(4)) }
func (s vertexSlot) SetPropHead(o uint32) { atomic.StoreUint32(s.v.Uint32Ptr(4), o) }

func (s vertexSlot) CASPropHead(old, nw uint32) bool {
	return atomic.CompareAndSwapUint32(s.v.Uint32Ptr(4), old, nw)
}

func (s vertexSlot) IncrEdgeCount() { atomic.AddUint32(s.v.Uint32Ptr(8), 1) }
func (s vertexSlot) DecrEdgeCount() { atomic.AddUint32(s.v.Uint32Ptr(8), ^uint32(0)) }
func (s vertexSlot) EdgeCount() uint32 {
	return atomic.LoadUint32(s.v.Uint32Ptr(8))
}

func (s vertexSlot) Label() uint16     { return s.v.ReadUint16(12) }
func (s vertexSlot) SetLabel(l uint16) { s.v.WriteUint16(12, l) }

func (s vertexSlot) Init(label uint16) {
	s.SetEdgeHead(0xFFFFFFFF)
	s.SetPropHead(0xFFFFFFFF)
	s.v.WriteUint32(8, 0)
	s.SetLabel(label)
}

// EdgePayload slot layout, 32 bytes:
//
//	id        uint64 @0    edge id, so a cascade delete can clear the edge index
//	source    uint64 @8    source vertex id, so removal can find its owning vertex
//	target    uint64 @16   target vertex id
//	propHead  uint32 @24   head of this edge's property chain, block.End if none
//	label     uint16 @28   edge label id
const edgeSlotSize = 32

type edgeSlot struct{ v disk.View }

func edgeView(v disk.View) edgeSlot { return edgeSlot{v} }

func (s edgeSlot) ID() uint64      { return s.v.ReadUint64(0) }
func (s edgeSlot) SetID(id uint64) { s.v.WriteUint64(0, id) }

func (s edgeSlot) Source() uint64     { return s.v.ReadUint64(8) }
func (s edgeSlot) SetSource(id uint64) { s.v.WriteUint64(8, id) }

func (s edgeSlot) Target() uint64     { return s.v.ReadUint64(16) }
func (s edgeSlot) SetTarget(t uint64) { s.v.WriteUint64(16, t) }

func (s edgeSlot) PropHead() uint32     { return atomic.LoadUint32(s.v.Uint32Ptr(24)) }
func (s edgeSlot) SetPropHead(o uint32) { atomic.StoreUint32(s.v.Uint32Ptr(24), o) }

func (s edgeSlot) CASPropHead(old, nw uint32) bool {
	return atomic.CompareAndSwapUint32(s.v.Uint32Ptr(24), old, nw)
}

func (s edgeSlot) Label() uint16     { return s.v.ReadUint16(28) }
func (s edgeSlot) SetLabel(l uint16) { s.v.WriteUint16(28, l) }

func (s edgeSlot) Init(id, source, target uint64, label uint16) {
	s.SetID(id)
	s.SetSource(source)
	s.SetTarget(target)
	s.SetPropHead(0xFFFFFFFF)
	s.SetLabel(label)
}

// PropPayload slot layout, variable width driven by config.Options:
//
//	keyLen  byte            @0
//	key     [PropKeyLen]byte @1
//	valLen  byte            @1+PropKeyLen
//	val     [PropValLen]byte @2+PropKeyLen
//
// The slot is padded to a multiple of 4 bytes so every block of a
// property file starts 4-byte aligned, as the block header's atomic
// fields require.
type propSlot struct {
	v       disk.View
	keyLen  int
	valLen  int
}

func propView(v disk.View, keyLen, valLen int) propSlot {
	return propSlot{v: v, keyLen: keyLen, valLen: valLen}
}

func propSlotSize(keyLen, valLen int) int {
	return (2 + keyLen + valLen + 3) &^ 3
}

func (s propSlot) Set(key, val string) {
	s.v.WriteByte(0, byte(len(key)))
	s.v.WriteZero(1, s.keyLen)
	s.v.WriteBytes(1, []byte(key))

	valOff := 1 + s.keyLen
	s.v.WriteByte(valOff, byte(len(val)))
	s.v.WriteZero(valOff+1, s.valLen)
	s.v.WriteBytes(valOff+1, []byte(val))
}

func (s propSlot) Key() string {
	n := int(s.v.ReadByte(0))
	return string(s.v.ReadBytes(1, n))
}

func (s propSlot) Value() string {
	valOff := 1 + s.keyLen
	n := int(s.v.ReadByte(valOff))
	return string(s.v.ReadBytes(valOff+1, n))
}
