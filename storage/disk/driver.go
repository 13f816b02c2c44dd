/*
Package disk implements the lowest layer of the storage engine: a
named file on disk kept live through a byte mapping, grown on demand,
and synced explicitly. Every other storage component (block files, the
index file, the transaction log, the graph's master file) is built on
top of a Driver.
*/
package disk

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"

	"github.com/lysandra/graphdb/config"
)

/*
Driver owns one file on disk plus a live read/write mapping of its
entire contents, shared with the kernel page cache. All bulk I/O and
typed reference access go through a Driver.
*/
type Driver struct {
	mu sync.RWMutex // shared by live Refs; exclusive while growing

	name   string
	file   *os.File
	mapped mmap.MMap
	size   int64
	cursor int64
	growth int64

	closed int32
}

/*
Create makes a new named file, failing if it already exists, and
zero-extends it to size bytes (the page-sized constant if size is 0).
The returned Driver holds the file open and mapped.
*/
func Create(name string, size int64, opts config.Options) (*Driver, error) {
	if size <= 0 {
		size = opts.InitialFileSize
	}

	if _, err := os.Stat(name); err == nil {
		return nil, ErrFileExists
	}

	file, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, wrapIO("create", name, err)
	}

	if err := file.Truncate(size); err != nil {
		file.Close()
		os.Remove(name)
		return nil, wrapTruncate(name, err)
	}

	d, err := mapDriver(name, file, size, opts.GrowthFactor)
	if err != nil {
		file.Close()
		os.Remove(name)
		return nil, err
	}

	return d, nil
}

/*
Open maps an existing named file read/write. It fails if the file does
not exist.
*/
func Open(name string, opts config.Options) (*Driver, error) {
	file, err := os.OpenFile(name, os.O_RDWR, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, wrapIO("open", name, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, wrapIO("stat", name, err)
	}

	return mapDriver(name, file, info.Size(), opts.GrowthFactor)
}

func mapDriver(name string, file *os.File, size int64, growth int64) (*Driver, error) {
	m, err := mmap.MapRegion(file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		file.Close()
		return nil, wrapMap(name, err)
	}

	if growth < 2 {
		growth = 10
	}

	adviseRandom(m)

	return &Driver{
		name:   name,
		file:   file,
		mapped: m,
		size:   size,
		growth: growth,
	}, nil
}

/*
adviseRandom hints to the kernel that this mapping is accessed by
offset rather than scanned start to end, which describes every file
this engine maps: block and index files are addressed by id-derived
offset, and even the redo log is replayed by seeking entry to entry
rather than read in one pass. The hint is advisory only and its
failure is not treated as an error; it does not exist on non-Unix
builds, so it is a no-op there.
*/
func adviseRandom(m mmap.MMap) {
	if runtime.GOOS == "windows" || len(m) == 0 {
		return
	}
	_ = unix.Madvise(m, unix.MADV_RANDOM)
}

/*
Name returns the backing file's name.
*/
func (d *Driver) Name() string {
	return d.name
}

/*
Size returns the current length of the mapped file.
*/
func (d *Driver) Size() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.size
}

/*
Seek repositions the driver's cursor.
*/
func (d *Driver) Seek(offset int64) {
	if offset < 0 {
		panic(fmt.Sprintf("disk: negative seek offset %d", offset))
	}
	atomic.StoreInt64(&d.cursor, offset)
}

/*
Cursor returns the current cursor position.
*/
func (d *Driver) Cursor() int64 {
	return atomic.LoadInt64(&d.cursor)
}

/*
Read fills dst from the cursor and advances it by len(dst). Reading
past the end of the mapped file is a programmer error.
*/
func (d *Driver) Read(dst []byte) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	off := atomic.LoadInt64(&d.cursor)
	if off < 0 || off+int64(len(dst)) > d.size {
		panic(fmt.Sprintf("disk: read out of bounds offset=%d len=%d size=%d", off, len(dst), d.size))
	}

	copy(dst, d.mapped[off:off+int64(len(dst))])
	atomic.StoreInt64(&d.cursor, off+int64(len(dst)))
}

/*
Write copies src to the cursor and advances it by len(src), growing
the backing file first if the write would overflow the mapping.
*/
func (d *Driver) Write(src []byte) error {
	off := atomic.LoadInt64(&d.cursor)
	need := off + int64(len(src))

	if err := d.ensureSize(need); err != nil {
		return err
	}

	d.mu.RLock()
	copy(d.mapped[off:need], src)
	d.mu.RUnlock()

	atomic.StoreInt64(&d.cursor, need)
	return nil
}

/*
Ref returns a pinned View of size bytes at offset. The mapping cannot
be grown (and therefore cannot move) while any Ref returned by this
Driver is still held; callers must call Release when done.
*/
func (d *Driver) Ref(offset int64, size int) (*Ref, error) {
	d.mu.RLock()

	if atomic.LoadInt32(&d.closed) != 0 {
		d.mu.RUnlock()
		return nil, ErrClosed
	}

	if offset < 0 || offset+int64(size) > d.size {
		d.mu.RUnlock()
		panic(fmt.Sprintf("disk: ref out of bounds offset=%d size=%d mapped=%d", offset, size, d.size))
	}

	return &Ref{d: d, view: View(d.mapped[offset : offset+int64(size)])}, nil
}

/*
WithRef pins offset:offset+size for the duration of fn and releases it
before returning. This is the pattern every long-lived component of a
growable file (block file headers, index headers, the transaction log
header) must use instead of caching a View: a cached View aliases
memory that a later grow's unmap/remap can invalidate, and a Ref held
forever would deadlock the grow it is blocking.
*/
func (d *Driver) WithRef(offset int64, size int, fn func(View)) error {
	ref, err := d.Ref(offset, size)
	if err != nil {
		return err
	}
	defer ref.Release()
	fn(ref.View())
	return nil
}

/*
RefUpdate returns a pinned View of size bytes at the current cursor and
advances the cursor by size.
*/
func (d *Driver) RefUpdate(size int) (*Ref, error) {
	off := atomic.LoadInt64(&d.cursor)
	if err := d.ensureSize(off + int64(size)); err != nil {
		return nil, err
	}

	ref, err := d.Ref(off, size)
	if err != nil {
		return nil, err
	}

	atomic.StoreInt64(&d.cursor, off+int64(size))
	return ref, nil
}

/*
Resize explicitly grows the mapping to at least n bytes. It is a no-op
if the file is already at least that large.
*/
func (d *Driver) Resize(n int64) error {
	return d.ensureSize(n)
}

func (d *Driver) ensureSize(need int64) error {
	d.mu.RLock()
	cur := d.size
	d.mu.RUnlock()

	if need <= cur {
		return nil
	}

	grown := cur + (need-cur)*d.growth

	d.mu.Lock()
	defer d.mu.Unlock()

	// Another writer may have already grown past what we need while we
	// waited for the exclusive lock.
	if d.size >= need {
		return nil
	}

	if err := d.mapped.Unmap(); err != nil {
		return wrapMap(d.name, err)
	}

	if err := d.file.Truncate(grown); err != nil {
		return wrapTruncate(d.name, err)
	}

	m, err := mmap.MapRegion(d.file, int(grown), mmap.RDWR, 0, 0)
	if err != nil {
		return wrapMap(d.name, err)
	}
	adviseRandom(m)

	d.mapped = m
	d.size = grown

	return nil
}

/*
Sync asks the OS to flush all dirty pages of the mapping to disk.
*/
func (d *Driver) Sync() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.mapped.Flush(); err != nil {
		return wrapIO("sync", d.name, err)
	}
	return d.file.Sync()
}

/*
Close unmaps and closes the backing file. The Driver must not be used
afterwards.
*/
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !atomic.CompareAndSwapInt32(&d.closed, 0, 1) {
		return nil
	}

	if err := d.mapped.Unmap(); err != nil {
		return wrapMap(d.name, err)
	}

	return d.file.Close()
}

func wrapIO(op, name string, err error) error {
	return fmt.Errorf("disk: %s %s: %w", op, name, err)
}

func wrapMap(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMapFailed, name, err)
}

func wrapTruncate(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTruncateFailed, name, err)
}
