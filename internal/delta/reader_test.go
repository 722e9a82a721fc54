package delta

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ddsync/internal/checksum"
	"github.com/iamNilotpal/ddsync/pkg/fingerprint"
	"github.com/iamNilotpal/ddsync/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_UncompressedRegionsApplyByteIdentical(t *testing.T) {
	dir := t.TempDir()
	deltaPath := filepath.Join(dir, "uncompressed.delta")

	regionA := make([]byte, 16384)
	for i := range regionA {
		regionA[i] = byte(i)
	}
	regionB := make([]byte, 16384)
	for i := range regionB {
		regionB[i] = byte(255 - i)
	}

	w, err := NewWriter(deltaPath, 32768, 16384, false, 6)
	require.NoError(t, err)
	require.NoError(t, w.WriteRegion(0, regionA))
	require.NoError(t, w.WriteRegion(16384, regionB))
	require.NoError(t, w.Close())

	r, err := OpenReader(deltaPath, logger.New("t"))
	require.NoError(t, err)
	defer r.Close()

	assert.False(t, r.Compressed())
	assert.Equal(t, uint64(2), r.Footer().RegionCount)

	target, err := os.Create(filepath.Join(dir, "target.bin"))
	require.NoError(t, err)
	defer target.Close()

	stats, err := r.Apply(target, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.RegionsApplied)
	assert.Equal(t, uint64(32768), stats.BytesWritten)

	got := make([]byte, 32768)
	_, err = target.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, regionA, got[0:16384])
	assert.Equal(t, regionB, got[16384:32768])
}

func TestRoundTrip_CompressedRegionsInflateCorrectly(t *testing.T) {
	dir := t.TempDir()
	deltaPath := filepath.Join(dir, "compressed.delta")

	payload := make([]byte, 16384) // zero-filled, compresses well

	w, err := NewWriter(deltaPath, 16384, 16384, true, 9)
	require.NoError(t, err)
	require.NoError(t, w.WriteRegion(0, payload))
	require.NoError(t, w.Close())

	_, totalRaw, totalCompressed := w.Stats()
	assert.Equal(t, uint64(16384), totalRaw)
	assert.Less(t, totalCompressed, totalRaw)

	r, err := OpenReader(deltaPath, logger.New("t"))
	require.NoError(t, err)
	defer r.Close()
	assert.True(t, r.Compressed())

	target, err := os.Create(filepath.Join(dir, "target.bin"))
	require.NoError(t, err)
	defer target.Close()

	stats, err := r.Apply(target, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.RegionsApplied)
	assert.Equal(t, uint64(16384), stats.BytesWritten)

	got := make([]byte, 16384)
	_, err = target.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestApply_UpdatesChecksumStoreWhenProvided(t *testing.T) {
	dir := t.TempDir()
	deltaPath := filepath.Join(dir, "withstore.delta")
	targetPath := filepath.Join(dir, "target.bin")
	storePath := filepath.Join(dir, "checksums.bin")

	payload := make([]byte, 16384)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	w, err := NewWriter(deltaPath, 16384, 16384, false, 6)
	require.NoError(t, err)
	require.NoError(t, w.WriteRegion(0, payload))
	require.NoError(t, w.Close())

	r, err := OpenReader(deltaPath, logger.New("t"))
	require.NoError(t, err)
	defer r.Close()

	store, err := checksum.Open(context.Background(), &checksum.Config{
		Path: storePath, SourceBytes: 16384, Logger: logger.New("t"),
	})
	require.NoError(t, err)
	defer store.Close()

	target, err := os.Create(targetPath)
	require.NoError(t, err)
	defer target.Close()

	_, err = r.Apply(target, store)
	require.NoError(t, err)

	assert.Equal(t, fingerprint.Compute(payload), store.Get(0))
}
