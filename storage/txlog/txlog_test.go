package txlog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lysandra/graphdb/config"
	"github.com/lysandra/graphdb/storage/disk"
)

func newFile(t *testing.T) (*File, *disk.Driver) {
	t.Helper()
	opts := config.Default()
	opts.InitialFileSize = 64
	opts.GrowthFactor = 2

	d, err := disk.Create(filepath.Join(t.TempDir(), "log.dat"), 0, opts)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	f, err := Create(d)
	require.NoError(t, err)
	return f, d
}

func TestAppendAndReplay(t *testing.T) {
	f, _ := newFile(t)

	entries := []Entry{
		{Op: OpAddVertex, ID: 1, Label: "Person", Props: map[string]string{"name": "ada"}},
		{Op: OpAddVertex, ID: 2, Label: "Person", Props: map[string]string{}},
		{Op: OpAddEdge, ID: 100, A: 1, B: 2, Label: "knows", Props: map[string]string{"since": "2020"}},
		{Op: OpRmEdge, A: 100},
		{Op: OpRmVertex, A: 2},
	}
	for _, e := range entries {
		require.NoError(t, f.Append(e))
	}

	var replayed []Entry
	err := f.Replay(func(e Entry) error {
		replayed = append(replayed, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, replayed, len(entries))
	for i, e := range entries {
		require.Equal(t, e.Op, replayed[i].Op)
		require.Equal(t, e.ID, replayed[i].ID)
		require.Equal(t, e.A, replayed[i].A)
		require.Equal(t, e.B, replayed[i].B)
		require.Equal(t, e.Label, replayed[i].Label)
		// The encoding does not distinguish a nil Props map from an
		// empty one, so compare by content.
		require.Len(t, replayed[i].Props, len(e.Props))
		for k, v := range e.Props {
			require.Equal(t, v, replayed[i].Props[k])
		}
	}
}

func TestResetTruncatesLog(t *testing.T) {
	f, _ := newFile(t)

	require.NoError(t, f.Append(Entry{Op: OpAddVertex, ID: 1, Label: "X"}))
	require.NoError(t, f.Reset())

	var replayed []Entry
	err := f.Replay(func(e Entry) error {
		replayed = append(replayed, e)
		return nil
	})
	require.NoError(t, err)
	require.Empty(t, replayed)

	// The log must still be appendable after a reset.
	require.NoError(t, f.Append(Entry{Op: OpAddVertex, ID: 2, Label: "Y"}))
	replayed = nil
	require.NoError(t, f.Replay(func(e Entry) error {
		replayed = append(replayed, e)
		return nil
	}))
	require.Len(t, replayed, 1)
	require.EqualValues(t, 2, replayed[0].ID)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	opts := config.Default()
	name := filepath.Join(t.TempDir(), "notalog.dat")
	d, err := disk.Create(name, 0, opts)
	require.NoError(t, err)
	defer d.Close()

	d.Seek(0)
	require.NoError(t, d.Write([]byte{'X', 'X', 'X', 'X'}))

	_, err = Open(d)
	require.ErrorIs(t, err, ErrBadMagic)
}
