package delta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter_FramesEmptyDelta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.delta")

	w, err := NewWriter(path, 16384, 16384, false, 6)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(headerSize+footerSize), info.Size())

	r, err := OpenReader(path, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, uint64(16384), r.Header().SourceSize)
	assert.Equal(t, uint64(0), r.Footer().RegionCount)
}

func TestWriter_CompressedFlagRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flag.delta")

	w, err := NewWriter(path, 16384, 16384, true, 6)
	require.NoError(t, err)
	assert.True(t, w.Compressed())
	require.NoError(t, w.Close())

	r, err := OpenReader(path, nil)
	require.NoError(t, err)
	defer r.Close()
	assert.True(t, r.Compressed())
	assert.NotZero(t, r.Header().ConfOpts&ConfCompressed)
}

func TestWriter_StatsTrackRegionsAndBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.delta")

	w, err := NewWriter(path, 32768, 16384, false, 6)
	require.NoError(t, err)

	require.NoError(t, w.WriteRegion(0, make([]byte, 16384)))
	require.NoError(t, w.WriteRegion(16384, make([]byte, 16384)))

	regionCount, totalRaw, totalCompressed := w.Stats()
	assert.Equal(t, uint64(2), regionCount)
	assert.Equal(t, uint64(32768), totalRaw)
	assert.Equal(t, uint64(32768), totalCompressed) // uncompressed: stored == raw

	require.NoError(t, w.Close())
}
