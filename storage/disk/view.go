package disk

import (
	"bytes"
	"fmt"
	"unsafe"
)

/*
View is a byte-addressable window directly into a Driver's live memory
mapping. Reads and writes through a View go straight to the mapped
page cache; there is no copy and no separate flush step beyond the
Driver's Sync.

A View must not be retained across a call that might grow the backing
file (see Driver.Write); components that need a longer-lived handle
use a Ref instead, which keeps the mapping pinned for its lifetime.
*/
type View []byte

/*
ReadByte reads a single byte at pos.
*/
func (v View) ReadByte(pos int) byte {
	return v[pos]
}

/*
WriteByte writes a single byte at pos.
*/
func (v View) WriteByte(pos int, val byte) {
	v[pos] = val
}

/*
ReadUint16 reads a little-endian 16-bit unsigned integer at pos.
*/
func (v View) ReadUint16(pos int) uint16 {
	return uint16(v[pos+0]) | (uint16(v[pos+1]) << 8)
}

/*
WriteUint16 writes a little-endian 16-bit unsigned integer at pos.
*/
func (v View) WriteUint16(pos int, val uint16) {
	v[pos+0] = byte(val)
	v[pos+1] = byte(val >> 8)
}

/*
ReadUint32 reads a little-endian 32-bit unsigned integer at pos.
*/
func (v View) ReadUint32(pos int) uint32 {
	return uint32(v[pos+0]) |
		(uint32(v[pos+1]) << 8) |
		(uint32(v[pos+2]) << 16) |
		(uint32(v[pos+3]) << 24)
}

/*
WriteUint32 writes a little-endian 32-bit unsigned integer at pos.
*/
func (v View) WriteUint32(pos int, val uint32) {
	v[pos+0] = byte(val)
	v[pos+1] = byte(val >> 8)
	v[pos+2] = byte(val >> 16)
	v[pos+3] = byte(val >> 24)
}

/*
ReadUint64 reads a little-endian 64-bit unsigned integer at pos.
*/
func (v View) ReadUint64(pos int) uint64 {
	return uint64(v[pos+0]) |
		(uint64(v[pos+1]) << 8) |
		(uint64(v[pos+2]) << 16) |
		(uint64(v[pos+3]) << 24) |
		(uint64(v[pos+4]) << 32) |
		(uint64(v[pos+5]) << 40) |
		(uint64(v[pos+6]) << 48) |
		(uint64(v[pos+7]) << 56)
}

/*
WriteUint64 writes a little-endian 64-bit unsigned integer at pos.
*/
func (v View) WriteUint64(pos int, val uint64) {
	v[pos+0] = byte(val)
	v[pos+1] = byte(val >> 8)
	v[pos+2] = byte(val >> 16)
	v[pos+3] = byte(val >> 24)
	v[pos+4] = byte(val >> 32)
	v[pos+5] = byte(val >> 40)
	v[pos+6] = byte(val >> 48)
	v[pos+7] = byte(val >> 56)
}

/*
Uint32Ptr exposes the 4 bytes at pos as a *uint32 for use with
sync/atomic. pos must be 4-byte aligned within the mapping; block and
header layouts in this package guarantee that for every field accessed
this way. Atomic access relies on the host being little-endian, which
holds for every platform this engine targets (amd64, arm64).
*/
func (v View) Uint32Ptr(pos int) *uint32 {
	return (*uint32)(unsafe.Pointer(&v[pos]))
}

/*
Uint64Ptr exposes the 8 bytes at pos as a *uint64 for use with
sync/atomic. pos must be 8-byte aligned within the mapping.
*/
func (v View) Uint64Ptr(pos int) *uint64 {
	return (*uint64)(unsafe.Pointer(&v[pos]))
}

/*
ReadBytes returns a sub-slice of n bytes at pos. The slice aliases the
mapping; callers that need to keep the bytes after the view becomes
invalid must copy them.
*/
func (v View) ReadBytes(pos, n int) []byte {
	return v[pos : pos+n]
}

/*
WriteBytes copies data into the view at pos.
*/
func (v View) WriteBytes(pos int, data []byte) {
	copy(v[pos:pos+len(data)], data)
}

/*
WriteZero zeroes n bytes at pos.
*/
func (v View) WriteZero(pos, n int) {
	for i := pos; i < pos+n; i++ {
		v[i] = 0
	}
}

/*
String renders a hex dump of the view, in the style of a storage
record dump: useful when debugging corrupted blocks.
*/
func (v View) String() string {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "==== %d bytes ====\n", len(v))

	for i := 0; i < len(v); i += 16 {
		end := i + 16
		if end > len(v) {
			end = len(v)
		}
		fmt.Fprintf(buf, "%06x  ", i)
		for _, b := range v[i:end] {
			fmt.Fprintf(buf, "%02x ", b)
		}
		buf.WriteString("\n")
	}
	buf.WriteString("====\n")

	return buf.String()
}
