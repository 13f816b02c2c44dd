/*
Package graph implements the embedded labelled property graph engine:
vertices and directed, labelled, multi-edges with string properties,
persisted across a master file, a primary vertex index, an edge
index, four block files, and a redo log, all built on the mmap-backed
disk driver in storage/disk.
*/
package graph

import (
	"sync"
	"sync/atomic"

	"github.com/lysandra/graphdb/config"
	"github.com/lysandra/graphdb/logging"
	"github.com/lysandra/graphdb/storage/block"
	"github.com/lysandra/graphdb/storage/disk"
	"github.com/lysandra/graphdb/storage/index"
	"github.com/lysandra/graphdb/storage/txlog"
)

type vertexTag struct{}
type edgeTag struct{}
type propTag struct{}

/*
Engine orchestrates every on-disk component of one graph: the master
file and its label dictionaries, the four block files (vertices,
edges, vertex properties, edge properties), the two id indexes, and
the redo log. It is the unit a caller opens, mutates, queries, and
flushes.
*/
type Engine struct {
	opts config.Options
	sink logging.Sink

	master *master

	vertices *block.File[vertexTag]
	edges    *block.File[edgeTag]
	vprops   *block.File[propTag]
	eprops   *block.File[propTag]

	vindex *index.File
	eindex *index.File

	log *txlog.File

	drivers []*disk.Driver

	writeMu sync.Mutex // serializes mutation execution

	condMu  sync.Mutex
	cond    *sync.Cond
	tickets int64
	syncing int32

	flushMu sync.Mutex

	closed int32
}

/*
checkOpen returns ErrClosed once Close has run. Every exported Engine
method that can report an error guards on it, so a caller cannot mutate
or query state through a handle whose backing files have already been
unmapped. VertexCount, EdgeCount, Name, Type and MaxVertexID have no
error return and stay unguarded; they only read already-resident master
fields, and Close itself relies on calling Name after marking the
engine closed to log the graph name.
*/
func (e *Engine) checkOpen() error {
	if atomic.LoadInt32(&e.closed) != 0 {
		return ErrClosed
	}
	return nil
}

/*
paths bundles the eight files one Engine directory is made of.
*/
type paths struct {
	master, vertices, edges, vprops, eprops, vindex, eindex, txlog string
}

func pathsFor(prefix string) paths {
	return paths{
		master:   prefix + ".master",
		vertices: prefix + ".vertices",
		edges:    prefix + ".edges",
		vprops:   prefix + ".vprops",
		eprops:   prefix + ".eprops",
		vindex:   prefix + ".vindex",
		eindex:   prefix + ".eindex",
		txlog:    prefix + ".txlog",
	}
}

/*
Create lays out a brand-new graph at prefix (every on-disk file is
named prefix plus a fixed suffix) with the given graph name and type
string, both stored in the master file header.
*/
func Create(prefix, name, typ string, opts config.Options, sink logging.Sink) (*Engine, error) {
	if sink == nil {
		sink = logging.Nop
	}
	p := pathsFor(prefix)

	masterDriver, err := disk.Create(p.master, 0, opts)
	if err != nil {
		return nil, err
	}
	m, err := createMaster(masterDriver, opts, name, typ)
	if err != nil {
		return nil, err
	}

	vDriver, err := disk.Create(p.vertices, 0, opts)
	if err != nil {
		return nil, err
	}
	vertices, err := block.Create[vertexTag](vDriver, 1, vertexSlotSize)
	if err != nil {
		return nil, err
	}

	eDriver, err := disk.Create(p.edges, 0, opts)
	if err != nil {
		return nil, err
	}
	edges, err := block.Create[edgeTag](eDriver, opts.EdgeBlockSlots, edgeSlotSize)
	if err != nil {
		return nil, err
	}

	vpDriver, err := disk.Create(p.vprops, 0, opts)
	if err != nil {
		return nil, err
	}
	vprops, err := block.Create[propTag](vpDriver, opts.PropBlockSlots, propSlotSize(opts.PropKeyLen, opts.PropValLen))
	if err != nil {
		return nil, err
	}

	epDriver, err := disk.Create(p.eprops, 0, opts)
	if err != nil {
		return nil, err
	}
	eprops, err := block.Create[propTag](epDriver, opts.PropBlockSlots, propSlotSize(opts.PropKeyLen, opts.PropValLen))
	if err != nil {
		return nil, err
	}

	viDriver, err := disk.Create(p.vindex, 0, opts)
	if err != nil {
		return nil, err
	}
	vindex, err := index.Create(viDriver)
	if err != nil {
		return nil, err
	}

	eiDriver, err := disk.Create(p.eindex, 0, opts)
	if err != nil {
		return nil, err
	}
	eindex, err := index.Create(eiDriver)
	if err != nil {
		return nil, err
	}

	logDriver, err := disk.Create(p.txlog, 0, opts)
	if err != nil {
		return nil, err
	}
	log, err := txlog.Create(logDriver)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		opts:     opts,
		sink:     sink,
		master:   m,
		vertices: vertices,
		edges:    edges,
		vprops:   vprops,
		eprops:   eprops,
		vindex:   vindex,
		eindex:   eindex,
		log:      log,
		drivers:  []*disk.Driver{masterDriver, viDriver, eiDriver, vDriver, eDriver, vpDriver, epDriver, logDriver},
	}
	e.cond = sync.NewCond(&e.condMu)
	logging.LogInfo(e.sink, "graph.create", logging.Fields{"name": name, "type": typ, "prefix": prefix})
	return e, nil
}

/*
Open attaches to an existing graph at prefix and replays its redo log.
*/
func Open(prefix string, opts config.Options, sink logging.Sink) (*Engine, error) {
	if sink == nil {
		sink = logging.Nop
	}
	p := pathsFor(prefix)

	masterDriver, err := disk.Open(p.master, opts)
	if err != nil {
		return nil, err
	}
	m, err := openMaster(masterDriver, opts)
	if err != nil {
		return nil, err
	}

	vDriver, err := disk.Open(p.vertices, opts)
	if err != nil {
		return nil, err
	}
	vertices, err := block.Open[vertexTag](vDriver, 1, vertexSlotSize)
	if err != nil {
		return nil, err
	}

	eDriver, err := disk.Open(p.edges, opts)
	if err != nil {
		return nil, err
	}
	edges, err := block.Open[edgeTag](eDriver, opts.EdgeBlockSlots, edgeSlotSize)
	if err != nil {
		return nil, err
	}

	vpDriver, err := disk.Open(p.vprops, opts)
	if err != nil {
		return nil, err
	}
	vprops, err := block.Open[propTag](vpDriver, opts.PropBlockSlots, propSlotSize(opts.PropKeyLen, opts.PropValLen))
	if err != nil {
		return nil, err
	}

	epDriver, err := disk.Open(p.eprops, opts)
	if err != nil {
		return nil, err
	}
	eprops, err := block.Open[propTag](epDriver, opts.PropBlockSlots, propSlotSize(opts.PropKeyLen, opts.PropValLen))
	if err != nil {
		return nil, err
	}

	viDriver, err := disk.Open(p.vindex, opts)
	if err != nil {
		return nil, err
	}
	vindex, err := index.Open(viDriver)
	if err != nil {
		return nil, err
	}

	eiDriver, err := disk.Open(p.eindex, opts)
	if err != nil {
		return nil, err
	}
	eindex, err := index.Open(eiDriver)
	if err != nil {
		return nil, err
	}

	logDriver, err := disk.Open(p.txlog, opts)
	if err != nil {
		return nil, err
	}
	log, err := txlog.Open(logDriver)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		opts:     opts,
		sink:     sink,
		master:   m,
		vertices: vertices,
		edges:    edges,
		vprops:   vprops,
		eprops:   eprops,
		vindex:   vindex,
		eindex:   eindex,
		log:      log,
		drivers:  []*disk.Driver{masterDriver, viDriver, eiDriver, vDriver, eDriver, vpDriver, epDriver, logDriver},
	}
	e.cond = sync.NewCond(&e.condMu)

	logging.LogInfo(e.sink, "graph.replay.start", logging.Fields{"prefix": prefix})
	if err := e.replay(); err != nil {
		return nil, err
	}
	logging.LogInfo(e.sink, "graph.replay.end", logging.Fields{"prefix": prefix})

	logging.LogInfo(e.sink, "graph.open", logging.Fields{"name": m.Name(), "type": m.Type(), "prefix": prefix})
	return e, nil
}

/*
replay redoes every mutation recorded in the log since the last
successful flush. Re-applying a mutation that already reached the
block files before the crash surfaces as a Duplicate or NotFound
result here, which replay treats as success rather than propagating.
*/
func (e *Engine) replay() error {
	return e.log.Replay(func(ent txlog.Entry) error {
		var err error
		switch ent.Op {
		case txlog.OpAddVertex:
			_, err = e.addVertex(ent.ID, true, ent.Label, ent.Props, false)
		case txlog.OpAddEdge:
			_, err = e.addEdge(ent.ID, true, ent.A, ent.B, ent.Label, ent.Props, false)
		case txlog.OpRmVertex:
			err = e.removeVertex(ent.A, false)
		case txlog.OpRmEdge:
			err = e.removeEdge(ent.A, false)
		}

		if isBenignReplay(err) {
			logging.LogWarning(e.sink, "txlog.replay.idempotent", logging.Fields{"op": int(ent.Op)})
			return nil
		}
		return err
	})
}

func isBenignReplay(err error) bool {
	switch err {
	case ErrVertexExists, ErrEdgeExists, ErrVertexNotFound, ErrEdgeNotFound:
		return true
	}
	return false
}

func (e *Engine) acquireTicket() {
	e.condMu.Lock()
	for atomic.LoadInt32(&e.syncing) == 1 {
		e.cond.Wait()
	}
	e.tickets++
	e.condMu.Unlock()
}

func (e *Engine) releaseTicket() {
	e.condMu.Lock()
	e.tickets--
	if e.tickets == 0 {
		e.cond.Broadcast()
	}
	e.condMu.Unlock()
}

/*
Save runs the engine's flush protocol: it blocks new writers, waits
for every in-flight writer to finish, syncs the master file, both
indexes, and all four block files in that order, then resets and
syncs the redo log and reopens the gate for writers.
*/
func (e *Engine) Save() error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.save()
}

func (e *Engine) save() error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	logging.LogDebug(e.sink, "graph.flush.start", nil)
	defer logging.LogDebug(e.sink, "graph.flush.end", nil)

	e.condMu.Lock()
	atomic.StoreInt32(&e.syncing, 1)
	for e.tickets > 0 {
		e.cond.Wait()
	}
	e.condMu.Unlock()

	defer func() {
		e.condMu.Lock()
		atomic.StoreInt32(&e.syncing, 0)
		e.cond.Broadcast()
		e.condMu.Unlock()
	}()

	for _, d := range e.drivers {
		if d == nil {
			continue
		}
		if err := d.Sync(); err != nil {
			return err
		}
	}

	if err := e.log.Reset(); err != nil {
		return err
	}
	return e.log.Sync()
}

/*
Close syncs and releases every backing file. The Engine must not be
used afterwards; every exported method that returns an error,
including a repeat Close, fails with ErrClosed once this has returned.
*/
func (e *Engine) Close() error {
	if !atomic.CompareAndSwapInt32(&e.closed, 0, 1) {
		return ErrClosed
	}

	if err := e.save(); err != nil {
		return err
	}
	name := e.Name()
	for _, d := range e.drivers {
		if err := d.Close(); err != nil {
			return err
		}
	}
	logging.LogInfo(e.sink, "graph.close", logging.Fields{"name": name})
	return nil
}

/*
VertexCount returns the number of live vertices.
*/
func (e *Engine) VertexCount() uint64 { return e.master.VertexCount() }

/*
EdgeCount returns the number of live edges.
*/
func (e *Engine) EdgeCount() uint64 { return e.master.EdgeCount() }

/*
Name returns the graph's configured name.
*/
func (e *Engine) Name() string { return e.master.Name() }

/*
Type returns the graph's configured type string.
*/
func (e *Engine) Type() string { return e.master.Type() }
