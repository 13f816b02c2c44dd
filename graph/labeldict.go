package graph

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lysandra/graphdb/storage/disk"
)

// Label dictionary entry layout, entrySize = labelLen + 8:
//
//	name   [labelLen]byte @0   null-padded, empty when unused
//	count  uint32         @labelLen   vertices/edges currently bearing this label
//	used   uint32         @labelLen+4 1 once the slot is assigned
const (
	labelEntryCountOff = 0 // relative to labelLen
	labelEntryUsedOff  = 4
	labelEntryPad      = 8
)

/*
labelDict is an append-only, fixed-capacity dictionary of vertex or
edge labels, stored as a flat array inside the master file. A label's
position in the dictionary is its label id, used everywhere else in
the engine in place of the label string.

view is a sub-slice of master's own cached view and is safe to hold for
the dictionary's lifetime for the same reason master's is: the master
file never grows.
*/
type labelDict struct {
	mu        sync.Mutex
	view      disk.View
	labelLen  int
	capacity  int
	entrySize int

	byName map[string]uint16
}

func newLabelDict(view disk.View, labelLen, capacity int) *labelDict {
	return &labelDict{
		view:      view,
		labelLen:  labelLen,
		capacity:  capacity,
		entrySize: labelLen + labelEntryPad,
		byName:    make(map[string]uint16),
	}
}

func (d *labelDict) entry(id uint16) disk.View {
	off := int(id) * d.entrySize
	return d.view.ReadBytes(off, d.entrySize)
}

/*
load scans the dictionary once after Open to rebuild the name -> id
index held in memory.
*/
func (d *labelDict) load() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id := 0; id < d.capacity; id++ {
		e := d.entry(uint16(id))
		if e.ReadUint32(d.labelLen+labelEntryUsedOff) == 0 {
			continue
		}
		name := decodeFixedString(e.ReadBytes(0, d.labelLen))
		d.byName[name] = uint16(id)
	}
}

/*
IDFor returns the label id for name, creating a new dictionary entry
if name has not been seen before. It fails with ErrTooManyLabels once
the dictionary's fixed capacity is exhausted.
*/
func (d *labelDict) IDFor(name string) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.byName[name]; ok {
		return id, nil
	}

	for id := 0; id < d.capacity; id++ {
		e := d.entry(uint16(id))
		if e.ReadUint32(d.labelLen+labelEntryUsedOff) != 0 {
			continue
		}

		e.WriteZero(0, d.labelLen)
		e.WriteBytes(0, encodeFixedString(name, d.labelLen))
		e.WriteUint32(d.labelLen+labelEntryCountOff, 0)
		e.WriteUint32(d.labelLen+labelEntryUsedOff, 1)

		d.byName[name] = uint16(id)
		return uint16(id), nil
	}

	return 0, ErrTooManyLabels
}

/*
Name returns the label string stored at id.
*/
func (d *labelDict) Name(id uint16) string {
	e := d.entry(id)
	return decodeFixedString(e.ReadBytes(0, d.labelLen))
}

/*
Incr bumps the live-item count for label id.
*/
func (d *labelDict) Incr(id uint16) {
	e := d.entry(id)
	atomic.AddUint32(e.Uint32Ptr(d.labelLen+labelEntryCountOff), 1)
}

/*
Decr lowers the live-item count for label id. The dictionary entry
itself is never reclaimed: labels are append-only for the lifetime of
a graph, even once their count reaches zero.
*/
func (d *labelDict) Decr(id uint16) {
	e := d.entry(id)
	for {
		old := atomic.LoadUint32(e.Uint32Ptr(d.labelLen + labelEntryCountOff))
		if old == 0 {
			return
		}
		if atomic.CompareAndSwapUint32(e.Uint32Ptr(d.labelLen+labelEntryCountOff), old, old-1) {
			return
		}
	}
}

/*
Count returns the number of live vertices or edges bearing label id.
*/
func (d *labelDict) Count(id uint16) uint32 {
	e := d.entry(id)
	return atomic.LoadUint32(e.Uint32Ptr(d.labelLen + labelEntryCountOff))
}

func encodeFixedString(s string, width int) []byte {
	buf := make([]byte, width)
	copy(buf, s)
	return buf
}

func decodeFixedString(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}
