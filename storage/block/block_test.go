package block

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lysandra/graphdb/config"
	"github.com/lysandra/graphdb/storage/disk"
)

type payload struct{}

func newFile(t *testing.T, slots, slotSize int) *File[payload] {
	t.Helper()
	opts := config.Default()
	opts.InitialFileSize = 64
	opts.GrowthFactor = 2

	d, err := disk.Create(filepath.Join(t.TempDir(), "blocks.dat"), 0, opts)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	f, err := Create[payload](d, slots, slotSize)
	require.NoError(t, err)
	return f
}

func TestAttainAllocatesFreshBlocks(t *testing.T) {
	f := newFile(t, 2, 8)

	b1, err := f.Attain(End)
	require.NoError(t, err)
	require.EqualValues(t, 0, b1.State())
	require.EqualValues(t, 1, f.BlockCount())

	idx := b1.FreeSlotIndex()
	require.Equal(t, 0, idx)
	b1.SetSlot(idx)
	require.True(t, b1.HasSlot(0))

	// Still one free slot, so the same block is reused rather than a
	// second one allocated.
	b2, err := f.Attain(b1.Offset())
	require.NoError(t, err)
	require.Equal(t, b1.Offset(), b2.Offset())
	require.EqualValues(t, 1, f.BlockCount())
}

func TestAttainAllocatesNewBlockWhenFull(t *testing.T) {
	f := newFile(t, 1, 8)

	b1, err := f.Attain(End)
	require.NoError(t, err)
	b1.SetSlot(0)

	b2, err := f.Attain(b1.Offset())
	require.NoError(t, err)
	require.NotEqual(t, b1.Offset(), b2.Offset())
	require.Equal(t, b1.Offset(), b2.Next())
}

func TestReleasePushesFreeListAndAttainReusesIt(t *testing.T) {
	f := newFile(t, 1, 8)

	b1, err := f.Attain(End)
	require.NoError(t, err)
	off1 := b1.Offset()
	b1.SetSlot(0)

	require.NoError(t, f.Release(off1))
	require.EqualValues(t, 1, f.BlockCount())

	b2, err := f.Attain(End)
	require.NoError(t, err)
	require.Equal(t, off1, b2.Offset())
	require.EqualValues(t, 0, b2.State())
	require.EqualValues(t, 1, f.BlockCount())
}

func TestWalkVisitsOnlyLiveBlocks(t *testing.T) {
	f := newFile(t, 1, 8)

	b1, err := f.Attain(End)
	require.NoError(t, err)
	b1.SetSlot(0)

	b2, err := f.Attain(b1.Offset())
	require.NoError(t, err)
	b2.SetSlot(0)

	var visited []uint32
	err = f.Walk(b2.Offset(), func(b *Block[payload]) error {
		visited = append(visited, b.Offset())
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint32{b2.Offset(), b1.Offset()}, visited)
}

func TestOpenRejectsMismatchedSlotLayout(t *testing.T) {
	opts := config.Default()
	d, err := disk.Create(filepath.Join(t.TempDir(), "blocks.dat"), 0, opts)
	require.NoError(t, err)
	defer d.Close()

	_, err = Create[payload](d, 2, 8)
	require.NoError(t, err)

	_, err = Open[payload](d, 3, 8)
	require.ErrorIs(t, err, ErrCorruption)
}
