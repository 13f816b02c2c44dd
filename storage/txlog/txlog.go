/*
Package txlog implements the storage engine's append-only redo log.
Every mutation accepted by the graph engine is appended here before it
is considered durable; on Open the log is replayed against a supplied
applier so that writes lost to a crash before the next flush are
redone. Replay is idempotent: re-applying an already-applied mutation
must be harmless, so the applier is expected to treat Duplicate and
NotFound as success rather than error.
*/
package txlog

import (
	"fmt"

	"github.com/lysandra/graphdb/internal/errs"
	"github.com/lysandra/graphdb/storage/disk"
)

const component = "txlog"

var magic = [4]byte{'G', 'L', 'O', 'G'}

/*
ErrBadMagic is returned by Open when the log file does not start with
the expected magic bytes.
*/
var ErrBadMagic = errs.New(errs.Corruption, component, "bad transaction log magic")

// Header layout:
//
//	magic      [4]byte @0
//	txnCount   uint64  @4   reserved, advisory only
//	eofAddr    uint64  @12  logical end of the entry stream
const (
	hdrMagic    = 0
	hdrTxnCount = 4
	hdrEOF      = 12
	headerSize  = 20
)

/*
OpCode identifies the kind of mutation a log entry redoes.
*/
type OpCode byte

const (
	OpAddVertex OpCode = iota + 1
	OpAddEdge
	OpRmVertex
	OpRmEdge
)

/*
Entry is one redoable mutation. Not every field is meaningful for
every Op: AddVertex uses ID, Label, Props; AddEdge uses ID (edge id),
A (source), B (target), Label, Props; RmVertex uses A; RmEdge uses A
(edge id).
*/
type Entry struct {
	Op    OpCode
	ID    uint64
	A     uint64
	B     uint64
	Label string
	Props map[string]string
}

/*
File is the on-disk redo log.
*/
type File struct {
	driver *disk.Driver
}

/*
Create lays out a brand-new, empty log.
*/
func Create(driver *disk.Driver) (*File, error) {
	driver.Seek(0)
	ref, err := driver.RefUpdate(headerSize)
	if err != nil {
		return nil, err
	}
	h := ref.View()
	h.WriteBytes(hdrMagic, magic[:])
	h.WriteUint64(hdrTxnCount, 0)
	h.WriteUint64(hdrEOF, headerSize)
	ref.Release()

	return &File{driver: driver}, nil
}

/*
Open attaches to an existing log file and verifies its magic.
*/
func Open(driver *disk.Driver) (*File, error) {
	var got [4]byte
	err := driver.WithRef(0, headerSize, func(h disk.View) {
		copy(got[:], h.ReadBytes(hdrMagic, 4))
	})
	if err != nil {
		return nil, err
	}
	if got != magic {
		return nil, ErrBadMagic
	}

	return &File{driver: driver}, nil
}

func (f *File) eof() int64 {
	var eof int64
	f.driver.WithRef(0, headerSize, func(h disk.View) {
		eof = int64(h.ReadUint64(hdrEOF))
	})
	return eof
}

/*
Append writes one entry to the end of the log and advances the
logical eof marker. It does not sync; callers batch Sync calls under
the engine's flush protocol.
*/
func (f *File) Append(e Entry) error {
	buf := encode(e)

	f.driver.Seek(f.eof())
	lenBuf := make([]byte, 4)
	disk.View(lenBuf).WriteUint32(0, uint32(len(buf)))
	if err := f.driver.Write(lenBuf); err != nil {
		return err
	}
	if err := f.driver.Write(buf); err != nil {
		return err
	}

	newEOF := f.driver.Cursor()
	return f.driver.WithRef(0, headerSize, func(h disk.View) {
		h.WriteUint64(hdrEOF, uint64(newEOF))
		h.WriteUint64(hdrTxnCount, h.ReadUint64(hdrTxnCount)+1)
	})
}

/*
Reset truncates the log logically: the next Append starts right after
the header again. Called once a flush has made every logged mutation
durable in the graph's own files.
*/
func (f *File) Reset() error {
	return f.driver.WithRef(0, headerSize, func(h disk.View) {
		h.WriteUint64(hdrEOF, headerSize)
		h.WriteUint64(hdrTxnCount, 0)
	})
}

/*
Sync flushes the log's driver to disk.
*/
func (f *File) Sync() error {
	return f.driver.Sync()
}

/*
Replay reads every entry between the header and the logical eof and
invokes apply for each, in append order. apply must be idempotent: a
mutation that was already durable before the crash is applied again
and must report success (via the Duplicate/NotFound-as-warning
convention), not an error.
*/
func (f *File) Replay(apply func(Entry) error) error {
	offset := int64(headerSize)
	limit := f.eof()

	for offset < limit {
		f.driver.Seek(offset)
		lenBuf := make([]byte, 4)
		f.driver.Read(lenBuf)
		n := disk.View(lenBuf).ReadUint32(0)

		body := make([]byte, n)
		f.driver.Read(body)

		e, err := decode(body)
		if err != nil {
			return err
		}
		if err := apply(e); err != nil {
			return err
		}

		offset += 4 + int64(n)
	}
	return nil
}

func encode(e Entry) []byte {
	size := 1 + 8 + 8 + 8 + 2 + len(e.Label) + 2
	for k, v := range e.Props {
		size += 2 + len(k) + 2 + len(v)
	}

	buf := make([]byte, size)
	v := disk.View(buf)
	pos := 0

	buf[pos] = byte(e.Op)
	pos++
	v.WriteUint64(pos, e.ID)
	pos += 8
	v.WriteUint64(pos, e.A)
	pos += 8
	v.WriteUint64(pos, e.B)
	pos += 8

	v.WriteUint16(pos, uint16(len(e.Label)))
	pos += 2
	copy(buf[pos:], e.Label)
	pos += len(e.Label)

	v.WriteUint16(pos, uint16(len(e.Props)))
	pos += 2
	for k, val := range e.Props {
		v.WriteUint16(pos, uint16(len(k)))
		pos += 2
		copy(buf[pos:], k)
		pos += len(k)

		v.WriteUint16(pos, uint16(len(val)))
		pos += 2
		copy(buf[pos:], val)
		pos += len(val)
	}

	return buf
}

func decode(buf []byte) (Entry, error) {
	if len(buf) < 1+8+8+8+2 {
		return Entry{}, fmt.Errorf("%w: truncated entry", ErrBadMagic)
	}

	v := disk.View(buf)
	pos := 0

	e := Entry{Op: OpCode(buf[pos])}
	pos++
	e.ID = v.ReadUint64(pos)
	pos += 8
	e.A = v.ReadUint64(pos)
	pos += 8
	e.B = v.ReadUint64(pos)
	pos += 8

	labelLen := int(v.ReadUint16(pos))
	pos += 2
	e.Label = string(buf[pos : pos+labelLen])
	pos += labelLen

	propCount := int(v.ReadUint16(pos))
	pos += 2

	if propCount > 0 {
		e.Props = make(map[string]string, propCount)
	}
	for i := 0; i < propCount; i++ {
		keyLen := int(v.ReadUint16(pos))
		pos += 2
		key := string(buf[pos : pos+keyLen])
		pos += keyLen

		valLen := int(v.ReadUint16(pos))
		pos += 2
		val := string(buf[pos : pos+valLen])
		pos += valLen

		e.Props[key] = val
	}

	return e, nil
}
