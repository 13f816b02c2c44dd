package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lysandra/graphdb/config"
	"github.com/lysandra/graphdb/storage/disk"
)

func newFile(t *testing.T) *File {
	t.Helper()
	opts := config.Default()
	opts.InitialFileSize = 64
	opts.GrowthFactor = 2

	d, err := disk.Create(filepath.Join(t.TempDir(), "idx.dat"), 0, opts)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	f, err := Create(d)
	require.NoError(t, err)
	return f
}

func TestStoreAndLoad(t *testing.T) {
	f := newFile(t)

	require.NoError(t, f.Grow(5))
	require.NoError(t, f.Store(5, 4096))

	off, ok, err := f.Load(5)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 4096, off)
}

func TestLoadUnsetEntryIsNotOk(t *testing.T) {
	f := newFile(t)
	require.NoError(t, f.Grow(3))

	_, ok, err := f.Load(3)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadBeyondCapacityIsNotOk(t *testing.T) {
	f := newFile(t)

	_, ok, err := f.Load(999999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreTwiceFails(t *testing.T) {
	f := newFile(t)
	require.NoError(t, f.Grow(1))
	require.NoError(t, f.Store(1, 10))

	err := f.Store(1, 20)
	require.ErrorIs(t, err, ErrAlreadySet)
}

func TestClearAllowsRestore(t *testing.T) {
	f := newFile(t)
	require.NoError(t, f.Grow(1))
	require.NoError(t, f.Store(1, 10))
	require.NoError(t, f.Clear(1))

	_, ok, err := f.Load(1)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, f.Store(1, 30))
	off, ok, err := f.Load(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 30, off)
}

func TestGrowIsIdempotentAndMonotonic(t *testing.T) {
	f := newFile(t)
	require.NoError(t, f.Grow(10))
	n1 := f.EntryCount()

	require.NoError(t, f.Grow(5))
	require.Equal(t, n1, f.EntryCount())

	require.NoError(t, f.Grow(10000))
	require.Greater(t, f.EntryCount(), n1)
}
