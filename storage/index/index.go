/*
Package index implements the primary vertex index: a flat array
mapping dense vertex ids directly to the block offset holding that
vertex's record, growing with the id space and safe for concurrent
publish-once writes.
*/
package index

import (
	"sync/atomic"

	"github.com/lysandra/graphdb/internal/errs"
	"github.com/lysandra/graphdb/storage/disk"
)

const component = "index"

/*
Sentinel errors raised by the index file.
*/
var (
	ErrAlreadySet = errs.New(errs.Duplicate, component, "index entry already set")
	ErrOutOfRange = errs.New(errs.OutOfRange, component, "vertex id out of range")
)

// Entry layout, 8-byte aligned so the offset can be loaded atomically:
//
//	offset  uint64 @0  block offset of the vertex record
//	setBit  uint32 @8  1 once offset has been published
const (
	entryOffset = 0
	entrySetBit = 8
	entrySize   = 16
)

// File header layout:
//
//	startAddr   uint64 @0   byte offset where entry 0 begins
//	entryCount  uint64 @8   number of id slots currently allocated
const (
	hdrStartAddr   = 0
	hdrEntryCount  = 8
	headerSize     = 16
	growEntries    = 1024
)

/*
File is the primary id-indexed lookup table.
*/
type File struct {
	driver *disk.Driver
}

/*
Create lays out a brand-new, empty index file.
*/
func Create(driver *disk.Driver) (*File, error) {
	driver.Seek(0)
	ref, err := driver.RefUpdate(headerSize)
	if err != nil {
		return nil, err
	}
	h := ref.View()
	h.WriteUint64(hdrStartAddr, headerSize)
	h.WriteUint64(hdrEntryCount, 0)
	ref.Release()

	f := &File{driver: driver}
	if err := f.ensureCapacity(growEntries); err != nil {
		return nil, err
	}
	return f, nil
}

/*
Open attaches to an existing index file.
*/
func Open(driver *disk.Driver) (*File, error) {
	return &File{driver: driver}, nil
}

func (f *File) startAddr() uint64 {
	var addr uint64
	f.driver.WithRef(0, headerSize, func(h disk.View) {
		addr = h.ReadUint64(hdrStartAddr)
	})
	return addr
}

/*
EntryCount returns the number of id slots currently allocated.
*/
func (f *File) EntryCount() uint64 {
	var n uint64
	f.driver.WithRef(0, headerSize, func(h disk.View) {
		n = atomic.LoadUint64(h.Uint64Ptr(hdrEntryCount))
	})
	return n
}

func (f *File) entryOffsetOf(id uint64) int64 {
	return int64(f.startAddr() + id*entrySize)
}

/*
ensureCapacity grows the id space to hold at least n entries, zeroing
the newly added slots.
*/
func (f *File) ensureCapacity(n uint64) error {
	cur := f.EntryCount()
	if n <= cur {
		return nil
	}

	need := f.entryOffsetOf(n)
	if err := f.driver.Resize(need); err != nil {
		return err
	}

	ref, err := f.driver.Ref(f.entryOffsetOf(cur), int(need-f.entryOffsetOf(cur)))
	if err != nil {
		return err
	}
	ref.View().WriteZero(0, len(ref.View()))
	ref.Release()

	return f.driver.WithRef(0, headerSize, func(h disk.View) {
		atomic.StoreUint64(h.Uint64Ptr(hdrEntryCount), n)
	})
}

/*
Grow ensures the index has room for vertex id. Callers that mint ids
sequentially call this before Store.
*/
func (f *File) Grow(id uint64) error {
	if id < f.EntryCount() {
		return nil
	}
	target := id + 1
	if target < growEntries {
		target = growEntries
	} else {
		target = ((target / growEntries) + 1) * growEntries
	}
	return f.ensureCapacity(target)
}

func (f *File) entryView(id uint64) (disk.View, error) {
	if id >= f.EntryCount() {
		return nil, ErrOutOfRange
	}
	ref, err := f.driver.Ref(f.entryOffsetOf(id), entrySize)
	if err != nil {
		return nil, err
	}
	defer ref.Release()
	return ref.View(), nil
}

/*
Store publishes offset as the block location of vertex id. It fails
with ErrAlreadySet if the entry was already published; the offset is
written before the set bit is raised with CompareAndSwap, so a
concurrent Load that observes the bit set always sees the final
offset.
*/
func (f *File) Store(id uint64, offset uint32) error {
	v, err := f.entryView(id)
	if err != nil {
		return err
	}

	if atomic.LoadUint32(v.Uint32Ptr(entrySetBit)) != 0 {
		return ErrAlreadySet
	}
	atomic.StoreUint64(v.Uint64Ptr(entryOffset), uint64(offset))
	if !atomic.CompareAndSwapUint32(v.Uint32Ptr(entrySetBit), 0, 1) {
		return ErrAlreadySet
	}
	return nil
}

/*
Clear unpublishes vertex id's entry, for reuse after a removal.
*/
func (f *File) Clear(id uint64) error {
	v, err := f.entryView(id)
	if err != nil {
		return err
	}
	atomic.StoreUint32(v.Uint32Ptr(entrySetBit), 0)
	atomic.StoreUint64(v.Uint64Ptr(entryOffset), 0)
	return nil
}

/*
Load returns the block offset for vertex id and whether it is set.
*/
func (f *File) Load(id uint64) (uint32, bool, error) {
	if id >= f.EntryCount() {
		return 0, false, nil
	}

	v, err := f.entryView(id)
	if err != nil {
		return 0, false, err
	}

	if atomic.LoadUint32(v.Uint32Ptr(entrySetBit)) == 0 {
		return 0, false, nil
	}
	return uint32(atomic.LoadUint64(v.Uint64Ptr(entryOffset))), true, nil
}
