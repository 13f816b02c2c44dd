/*
Package block implements the generic block-file container the
storage engine builds its vertex, edge, and property stores on top of:
a file of fixed-size blocks holding up to N payload slots, linked
through a next offset, with a free list for block reuse.
*/
package block

import (
	"fmt"
	"sync/atomic"

	"github.com/lysandra/graphdb/internal/errs"
	"github.com/lysandra/graphdb/storage/disk"
)

/*
End is the sentinel block offset meaning "no further block" (a
terminal next, or an empty free list).
*/
const End uint32 = 0xFFFFFFFF

/*
Deleted is a reserved sentinel marking a deleted reference. It is never
written by live state in this version of the engine.
*/
const Deleted uint32 = 0xFFFFFFF0

const component = "block"

/*
Sentinel errors raised by a block file.
*/
var (
	ErrOutOfRange = errs.New(errs.OutOfRange, component, "block offset out of range")
	ErrCorruption = errs.New(errs.Corruption, component, "block file header corrupt")
)

// Block layout, all fields 4-byte aligned so atomic ops are valid:
//
//	idx      uint32 @0   self offset, for free-list self-identification
//	state    uint32 @4   one set bit per live slot
//	next     uint32 @8   End if terminal
//	version  uint32 @12  reserved, always End in this version
//	payload  [N]byte @16
const (
	offIdx     = 0
	offState   = 4
	offNext    = 8
	offVersion = 12
	blockHead  = 16
)

// File header layout:
//
//	startAddr     uint64 @0   byte offset where block 0 begins
//	blockCount    uint64 @8   number of blocks ever allocated
//	blockSize     uint32 @16  bytes per block, header included
//	freeListHead  uint32 @20  offset of first free block, End if empty
const (
	hdrStartAddr    = 0
	hdrBlockCount   = 8
	hdrBlockSize    = 16
	hdrFreeListHead = 20
	headerSize      = 24
)

/*
File is a generic block file: driver-backed storage of fixed-size
blocks, each holding up to Slots payloads of slotSize bytes. T brands
the file with its logical payload type (the graph package's vertexTag,
edgeTag, propTag) so callers cannot mix up block files at compile time;
it carries no data of its own.
*/
type File[T any] struct {
	driver    *disk.Driver
	slots     int
	slotSize  int
	blockSize int
}

/*
Create lays out a brand-new block file on driver with room for the
given number of payload slots per block, each slotSize bytes.
*/
func Create[T any](driver *disk.Driver, slots, slotSize int) (*File[T], error) {
	blockSize := blockHead + slots*slotSize

	driver.Seek(0)
	ref, err := driver.RefUpdate(headerSize)
	if err != nil {
		return nil, err
	}
	h := ref.View()
	h.WriteUint64(hdrStartAddr, headerSize)
	h.WriteUint64(hdrBlockCount, 0)
	h.WriteUint32(hdrBlockSize, uint32(blockSize))
	h.WriteUint32(hdrFreeListHead, End)
	ref.Release()

	return &File[T]{
		driver:    driver,
		slots:     slots,
		slotSize:  slotSize,
		blockSize: blockSize,
	}, nil
}

/*
Open attaches to an existing block file previously written by Create.
*/
func Open[T any](driver *disk.Driver, slots, slotSize int) (*File[T], error) {
	var blockSize int
	err := driver.WithRef(0, headerSize, func(h disk.View) {
		blockSize = int(h.ReadUint32(hdrBlockSize))
	})
	if err != nil {
		return nil, err
	}

	wantSize := blockHead + slots*slotSize
	if blockSize != wantSize {
		return nil, fmt.Errorf("%w: block size %d, expected %d", ErrCorruption, blockSize, wantSize)
	}

	return &File[T]{
		driver:    driver,
		slots:     slots,
		slotSize:  slotSize,
		blockSize: blockSize,
	}, nil
}

/*
Slots returns the number of payload slots per block.
*/
func (f *File[T]) Slots() int {
	return f.slots
}

/*
BlockCount returns the number of blocks ever allocated, live or free.
*/
func (f *File[T]) BlockCount() uint64 {
	var n uint64
	f.driver.WithRef(0, headerSize, func(h disk.View) {
		n = atomic.LoadUint64(h.Uint64Ptr(hdrBlockCount))
	})
	return n
}

func (f *File[T]) startAddr() uint64 {
	var addr uint64
	f.driver.WithRef(0, headerSize, func(h disk.View) {
		addr = h.ReadUint64(hdrStartAddr)
	})
	return addr
}

func (f *File[T]) offsetOf(index uint64) uint32 {
	return uint32(f.startAddr() + index*uint64(f.blockSize))
}

/*
Block is a live handle onto one block: its linkage fields plus its
payload slots, addressed directly in the driver's mapping.
*/
type Block[T any] struct {
	view     disk.View
	offset   uint32
	slots    int
	slotSize int
}

/*
Offset returns this block's own file offset.
*/
func (b *Block[T]) Offset() uint32 {
	return b.offset
}

/*
State returns the raw slot-liveness bitmask.
*/
func (b *Block[T]) State() uint32 {
	return atomic.LoadUint32(b.view.Uint32Ptr(offState))
}

/*
Next returns the offset of the next block in this chain, or End.
*/
func (b *Block[T]) Next() uint32 {
	return atomic.LoadUint32(b.view.Uint32Ptr(offNext))
}

/*
SetNext overwrites this block's next pointer.
*/
func (b *Block[T]) SetNext(next uint32) {
	atomic.StoreUint32(b.view.Uint32Ptr(offNext), next)
}

/*
HasSlot reports whether slot i currently holds a live payload.
*/
func (b *Block[T]) HasSlot(i int) bool {
	return b.State()&(1<<uint(i)) != 0
}

/*
LiveCount returns the number of set slot bits.
*/
func (b *Block[T]) LiveCount() int {
	state := b.State()
	n := 0
	for i := 0; i < b.slots; i++ {
		if state&(1<<uint(i)) != 0 {
			n++
		}
	}
	return n
}

/*
FreeSlotIndex returns the index of the first clear slot bit, or -1 if
every slot is in use.
*/
func (b *Block[T]) FreeSlotIndex() int {
	state := b.State()
	for i := 0; i < b.slots; i++ {
		if state&(1<<uint(i)) == 0 {
			return i
		}
	}
	return -1
}

/*
SetSlot atomically marks slot i live.
*/
func (b *Block[T]) SetSlot(i int) {
	for {
		old := b.State()
		nw := old | (1 << uint(i))
		if atomic.CompareAndSwapUint32(b.view.Uint32Ptr(offState), old, nw) {
			return
		}
	}
}

/*
ClearSlot atomically marks slot i free.
*/
func (b *Block[T]) ClearSlot(i int) {
	for {
		old := b.State()
		nw := old &^ (1 << uint(i))
		if atomic.CompareAndSwapUint32(b.view.Uint32Ptr(offState), old, nw) {
			return
		}
	}
}

/*
Slot returns the raw byte window for payload slot i, for the caller to
interpret through its own payload accessor.
*/
func (b *Block[T]) Slot(i int) disk.View {
	start := blockHead + i*b.slotSize
	return b.view.ReadBytes(start, b.slotSize)
}

func (f *File[T]) newBlock(view disk.View, offset uint32) *Block[T] {
	return &Block[T]{view: view, offset: offset, slots: f.slots, slotSize: f.slotSize}
}

/*
Entry returns random access to the block at offset.
*/
func (f *File[T]) Entry(offset uint32) (*Block[T], error) {
	ref, err := f.driver.Ref(int64(offset), f.blockSize)
	if err != nil {
		return nil, err
	}
	defer ref.Release()
	return f.newBlock(ref.View(), offset), nil
}

/*
Attain returns a block with at least one free slot, linked as the new
head of a chain whose previous head was nextHint (End if the chain was
empty). Reuse policy: a block with room under nextHint is reused in
place; otherwise the free list is popped; otherwise a fresh block is
allocated.
*/
func (f *File[T]) Attain(nextHint uint32) (*Block[T], error) {
	if nextHint != End {
		blk, err := f.Entry(nextHint)
		if err != nil {
			return nil, err
		}
		if blk.FreeSlotIndex() >= 0 {
			return blk, nil
		}
	}

	if blk, err, ok := f.popFreeList(nextHint); ok {
		return blk, err
	}

	return f.allocate(nextHint)
}

func (f *File[T]) popFreeList(nextHint uint32) (*Block[T], error, bool) {
	for {
		var head uint32
		if err := f.driver.WithRef(0, headerSize, func(h disk.View) {
			head = atomic.LoadUint32(h.Uint32Ptr(hdrFreeListHead))
		}); err != nil {
			return nil, err, true
		}
		if head == End {
			return nil, nil, false
		}

		blk, err := f.Entry(head)
		if err != nil {
			return nil, err, true
		}
		newHead := blk.Next()

		var won bool
		if err := f.driver.WithRef(0, headerSize, func(h disk.View) {
			won = atomic.CompareAndSwapUint32(h.Uint32Ptr(hdrFreeListHead), head, newHead)
		}); err != nil {
			return nil, err, true
		}
		if won {
			blk.SetNext(nextHint)
			return blk, nil, true
		}
		// Lost the race with another popper; retry against the new head.
	}
}

func (f *File[T]) allocate(nextHint uint32) (*Block[T], error) {
	var index uint64
	if err := f.driver.WithRef(0, headerSize, func(h disk.View) {
		index = atomic.AddUint64(h.Uint64Ptr(hdrBlockCount), 1) - 1
	}); err != nil {
		return nil, err
	}
	offset := f.offsetOf(index)

	f.driver.Seek(int64(offset))
	ref, err := f.driver.RefUpdate(f.blockSize)
	if err != nil {
		return nil, err
	}
	defer ref.Release()

	v := ref.View()
	v.WriteUint32(offIdx, offset)
	v.WriteUint32(offState, 0)
	v.WriteUint32(offNext, nextHint)
	v.WriteUint32(offVersion, End)

	return f.newBlock(v, offset), nil
}

/*
Release frees the block at offset: clears its slot state, resets its
reserved version field, and pushes it onto the free list.
*/
func (f *File[T]) Release(offset uint32) error {
	blk, err := f.Entry(offset)
	if err != nil {
		return err
	}

	atomic.StoreUint32(blk.view.Uint32Ptr(offState), 0)
	atomic.StoreUint32(blk.view.Uint32Ptr(offVersion), End)

	for {
		var head uint32
		if err := f.driver.WithRef(0, headerSize, func(h disk.View) {
			head = atomic.LoadUint32(h.Uint32Ptr(hdrFreeListHead))
		}); err != nil {
			return err
		}
		blk.SetNext(head)

		var won bool
		if err := f.driver.WithRef(0, headerSize, func(h disk.View) {
			won = atomic.CompareAndSwapUint32(h.Uint32Ptr(hdrFreeListHead), head, offset)
		}); err != nil {
			return err
		}
		if won {
			return nil
		}
	}
}

/*
Walk iterates the chain rooted at start, invoking fn with every block
that has at least one live slot, until a terminal next is reached. It
tolerates running concurrently with Attain: a block observed mid-link
is simply skipped or revisited on the next call, never dereferenced
out of bounds.
*/
func (f *File[T]) Walk(start uint32, fn func(*Block[T]) error) error {
	offset := start
	for offset != End {
		blk, err := f.Entry(offset)
		if err != nil {
			return err
		}

		if blk.State() != 0 {
			if err := fn(blk); err != nil {
				return err
			}
		}

		offset = blk.Next()
	}
	return nil
}
