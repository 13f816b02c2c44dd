package disk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lysandra/graphdb/config"
)

func testOpts() config.Options {
	o := config.Default()
	o.InitialFileSize = 64
	o.GrowthFactor = 2
	return o
}

func TestCreateOpenRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "f.dat")

	d, err := Create(name, 0, testOpts())
	require.NoError(t, err)
	require.EqualValues(t, 64, d.Size())
	require.NoError(t, d.Close())

	d2, err := Open(name, testOpts())
	require.NoError(t, err)
	require.EqualValues(t, 64, d2.Size())
	require.NoError(t, d2.Close())
}

func TestCreateRefusesExisting(t *testing.T) {
	name := filepath.Join(t.TempDir(), "f.dat")

	d, err := Create(name, 0, testOpts())
	require.NoError(t, err)
	defer d.Close()

	_, err = Create(name, 0, testOpts())
	require.ErrorIs(t, err, ErrFileExists)
}

func TestOpenMissingFails(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.dat"), testOpts())
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestWriteGrowsFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "f.dat")
	d, err := Create(name, 0, testOpts())
	require.NoError(t, err)
	defer d.Close()

	big := make([]byte, 200)
	for i := range big {
		big[i] = byte(i)
	}

	d.Seek(0)
	require.NoError(t, d.Write(big))
	require.Greater(t, d.Size(), int64(64))

	d.Seek(0)
	got := make([]byte, len(big))
	d.Read(got)
	require.Equal(t, big, got)
}

func TestDataSurvivesGrowth(t *testing.T) {
	name := filepath.Join(t.TempDir(), "f.dat")
	d, err := Create(name, 0, testOpts())
	require.NoError(t, err)
	defer d.Close()

	ref, err := d.Ref(0, 4)
	require.NoError(t, err)
	ref.View().WriteUint32(0, 0xCAFEBABE)
	ref.Release()

	require.NoError(t, d.Resize(500))

	ref2, err := d.Ref(0, 4)
	require.NoError(t, err)
	require.EqualValues(t, 0xCAFEBABE, ref2.View().ReadUint32(0))
	ref2.Release()
}

func TestWithRefReleasesBeforeReturning(t *testing.T) {
	name := filepath.Join(t.TempDir(), "f.dat")
	d, err := Create(name, 0, testOpts())
	require.NoError(t, err)
	defer d.Close()

	var seen uint32
	err = d.WithRef(0, 4, func(v View) {
		v.WriteUint32(0, 7)
		seen = v.ReadUint32(0)
	})
	require.NoError(t, err)
	require.EqualValues(t, 7, seen)

	// A grow must succeed right after WithRef returns: the pin must
	// already be released, or this would deadlock.
	require.NoError(t, d.Resize(1000))
}

func TestClosedDriverRejectsRef(t *testing.T) {
	name := filepath.Join(t.TempDir(), "f.dat")
	d, err := Create(name, 0, testOpts())
	require.NoError(t, err)
	require.NoError(t, d.Close())

	_, err = d.Ref(0, 4)
	require.ErrorIs(t, err, ErrClosed)
}
