package graph

import (
	"sync/atomic"

	"github.com/lysandra/graphdb/config"
	"github.com/lysandra/graphdb/internal/errs"
	"github.com/lysandra/graphdb/storage/disk"
)

var ErrBadMasterMagic = errs.New(errs.Corruption, component, "bad master file magic")

var masterMagic = [4]byte{'G', 'M', 'S', 'T'}

// Master file layout:
//
//	magic         [4]byte  @0
//	graphName     [n]byte  @4
//	graphType     [m]byte  @4+n
//	                       padded up to the next 8-byte boundary so the
//	                       four counters below are always 8-byte aligned,
//	                       as Uint64Ptr's atomic access requires
//	vertexCount   uint64
//	edgeCount     uint64
//	nextVertexID  uint64            fetch-add source for fresh vertex ids
//	nextEdgeID    uint64            fetch-add source for fresh edge ids
//	vertexLabels  [MaxVertexLabels]labelEntry
//	edgeLabels    [MaxEdgeLabels]labelEntry
const (
	mfMagic = 0
)

/*
master owns the graph's identity (name, type) and its two label
dictionaries. It is the first file opened and the first synced on
flush, since every block and index record refers into it by label id.

Unlike the block, index, and txlog files, the master file never grows
past the size computed by masterLayout at creation: nothing ever
appends to it. That makes it safe for master (and the labelDicts sliced
out of its view) to hold their disk.View for the driver's whole
lifetime instead of re-pinning per access the way growable files must.
*/
type master struct {
	driver *disk.Driver
	opts   config.Options

	view disk.View

	countsOff int

	vertexLabels *labelDict
	edgeLabels   *labelDict
}

func align8(n int) int {
	return (n + 7) &^ 7
}

func masterLayout(opts config.Options) (graphNameOff, graphTypeOff, countsOff, vertexDictOff, edgeDictOff, total int) {
	graphNameOff = mfMagic + 4
	graphTypeOff = graphNameOff + opts.GraphNameLen
	countsOff = align8(graphTypeOff + opts.GraphTypeLen)
	vertexDictOff = countsOff + 8*4
	vertexDictSize := opts.MaxVertexLabels * (opts.LabelLen + labelEntryPad)
	edgeDictOff = vertexDictOff + vertexDictSize
	edgeDictSize := opts.MaxEdgeLabels * (opts.LabelLen + labelEntryPad)
	total = edgeDictOff + edgeDictSize
	return
}

/*
createMaster lays out a brand-new master file for a graph with the
given name and type string.
*/
func createMaster(driver *disk.Driver, opts config.Options, name, typ string) (*master, error) {
	_, _, countsOff, vertexDictOff, edgeDictOff, total := masterLayout(opts)

	driver.Seek(0)
	ref, err := driver.RefUpdate(total)
	if err != nil {
		return nil, err
	}
	v := ref.View()

	v.WriteBytes(mfMagic, masterMagic[:])
	graphNameOff, graphTypeOff, _, _, _, _ := masterLayout(opts)
	v.WriteBytes(graphNameOff, encodeFixedString(name, opts.GraphNameLen))
	v.WriteBytes(graphTypeOff, encodeFixedString(typ, opts.GraphTypeLen))
	v.WriteUint64(countsOff+0, 0)
	v.WriteUint64(countsOff+8, 0)
	v.WriteUint64(countsOff+16, 0)
	v.WriteUint64(countsOff+24, 0)
	ref.Release()

	return openMasterView(driver, opts, total, countsOff, vertexDictOff, edgeDictOff)
}

/*
openMaster attaches to an existing master file.
*/
func openMaster(driver *disk.Driver, opts config.Options) (*master, error) {
	_, _, countsOff, vertexDictOff, edgeDictOff, total := masterLayout(opts)

	hdrRef, err := driver.Ref(0, total)
	if err != nil {
		return nil, err
	}
	v := hdrRef.View()
	// The master file never grows, so v stays valid without the pin;
	// holding it would block Driver.Close's exclusive lock forever.
	hdrRef.Release()

	var got [4]byte
	copy(got[:], v.ReadBytes(mfMagic, 4))
	if got != masterMagic {
		return nil, ErrBadMasterMagic
	}

	m := &master{
		driver:       driver,
		opts:         opts,
		view:         v,
		countsOff:    countsOff,
		vertexLabels: newLabelDict(v.ReadBytes(vertexDictOff, opts.MaxVertexLabels*(opts.LabelLen+labelEntryPad)), opts.LabelLen, opts.MaxVertexLabels),
		edgeLabels:   newLabelDict(v.ReadBytes(edgeDictOff, opts.MaxEdgeLabels*(opts.LabelLen+labelEntryPad)), opts.LabelLen, opts.MaxEdgeLabels),
	}
	m.vertexLabels.load()
	m.edgeLabels.load()
	return m, nil
}

func openMasterView(driver *disk.Driver, opts config.Options, total, countsOff, vertexDictOff, edgeDictOff int) (*master, error) {
	hdrRef, err := driver.Ref(0, total)
	if err != nil {
		return nil, err
	}
	v := hdrRef.View()
	hdrRef.Release()

	return &master{
		driver:       driver,
		opts:         opts,
		view:         v,
		countsOff:    countsOff,
		vertexLabels: newLabelDict(v.ReadBytes(vertexDictOff, opts.MaxVertexLabels*(opts.LabelLen+labelEntryPad)), opts.LabelLen, opts.MaxVertexLabels),
		edgeLabels:   newLabelDict(v.ReadBytes(edgeDictOff, opts.MaxEdgeLabels*(opts.LabelLen+labelEntryPad)), opts.LabelLen, opts.MaxEdgeLabels),
	}, nil
}

func (m *master) Name() string {
	graphNameOff, _, _, _, _, _ := masterLayout(m.opts)
	return decodeFixedString(m.view.ReadBytes(graphNameOff, m.opts.GraphNameLen))
}

func (m *master) Type() string {
	_, graphTypeOff, _, _, _, _ := masterLayout(m.opts)
	return decodeFixedString(m.view.ReadBytes(graphTypeOff, m.opts.GraphTypeLen))
}

func (m *master) VertexCount() uint64 { return atomic.LoadUint64(m.view.Uint64Ptr(m.countsOff + 0)) }
func (m *master) EdgeCount() uint64   { return atomic.LoadUint64(m.view.Uint64Ptr(m.countsOff + 8)) }

func (m *master) IncrVertexCount() { atomic.AddUint64(m.view.Uint64Ptr(m.countsOff+0), 1) }
func (m *master) DecrVertexCount() { atomic.AddUint64(m.view.Uint64Ptr(m.countsOff+0), ^uint64(0)) }
func (m *master) IncrEdgeCount()   { atomic.AddUint64(m.view.Uint64Ptr(m.countsOff+8), 1) }
func (m *master) DecrEdgeCount()   { atomic.AddUint64(m.view.Uint64Ptr(m.countsOff+8), ^uint64(0)) }

/*
NextVertexID mints a fresh, never-before-used vertex id.
*/
func (m *master) NextVertexID() uint64 {
	return atomic.AddUint64(m.view.Uint64Ptr(m.countsOff+16), 1) - 1
}

/*
NextEdgeID mints a fresh, never-before-used edge id.
*/
func (m *master) NextEdgeID() uint64 {
	return atomic.AddUint64(m.view.Uint64Ptr(m.countsOff+24), 1) - 1
}

/*
ObserveVertexID advances the vertex id source past id, used when a
caller supplies an explicit id so that later auto-assigned ids never
collide with it.
*/
func (m *master) ObserveVertexID(id uint64) {
	bumpPast(m.view.Uint64Ptr(m.countsOff+16), id+1)
}

/*
ObserveEdgeID advances the edge id source past id.
*/
func (m *master) ObserveEdgeID(id uint64) {
	bumpPast(m.view.Uint64Ptr(m.countsOff+24), id+1)
}

func bumpPast(ptr *uint64, floor uint64) {
	for {
		old := atomic.LoadUint64(ptr)
		if old >= floor {
			return
		}
		if atomic.CompareAndSwapUint64(ptr, old, floor) {
			return
		}
	}
}
