package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ddsync/internal/delta"
	"github.com/iamNilotpal/ddsync/internal/segment"
	"github.com/iamNilotpal/ddsync/pkg/logger"
	"github.com/iamNilotpal/ddsync/pkg/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, opts options.Options) *Engine {
	t.Helper()
	eng, err := New(context.Background(), &Config{Options: &opts, Logger: logger.New("test")})
	require.NoError(t, err)
	return eng
}

func writeSourceFile(t *testing.T, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	return path
}

func TestRunPreflight_MissingStoreRequiresNew(t *testing.T) {
	sourcePath := writeSourceFile(t, 16384*3)
	checksumPath := filepath.Join(t.TempDir(), "checksums.bin") // never created

	eng := newEngine(t, options.Options{SourcePath: sourcePath, ChecksumPath: checksumPath, Workers: 1})

	_, err := eng.Run(context.Background(), ModeNewChecksum)
	assert.ErrorIs(t, err, ErrPreflightNewStoreRequired)
}

func TestRunPreflight_WrongSizedStoreRequiresNew(t *testing.T) {
	sourcePath := writeSourceFile(t, 16384*3)
	checksumPath := filepath.Join(t.TempDir(), "checksums.bin")
	// One segment's worth of entries short of what 3 segments require.
	require.NoError(t, os.WriteFile(checksumPath, make([]byte, 8*2), 0644))

	eng := newEngine(t, options.Options{SourcePath: sourcePath, ChecksumPath: checksumPath, Workers: 1})

	_, err := eng.Run(context.Background(), ModeNewChecksum)
	assert.ErrorIs(t, err, ErrPreflightNewStoreRequired)
}

func TestRunPreflight_CorrectlySizedStorePassesCleanly(t *testing.T) {
	sourceBytes := int64(16384 * 3)
	sourcePath := writeSourceFile(t, sourceBytes)
	checksumPath := filepath.Join(t.TempDir(), "checksums.bin")
	require.NoError(t, os.WriteFile(checksumPath, make([]byte, segment.Count(sourceBytes)*8), 0644))

	eng := newEngine(t, options.Options{SourcePath: sourcePath, ChecksumPath: checksumPath, Workers: 1})

	result, err := eng.Run(context.Background(), ModeNewChecksum)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestRunPreflight_NullChecksumPathNeverRequiresNew(t *testing.T) {
	sourcePath := writeSourceFile(t, 16384)
	eng := newEngine(t, options.Options{SourcePath: sourcePath, Workers: 1})

	_, err := eng.Run(context.Background(), ModeNewChecksum)
	require.NoError(t, err)
}

func TestRunApplyDelta_DispatchesAndAppliesRegions(t *testing.T) {
	dir := t.TempDir()
	deltaPath := filepath.Join(dir, "changes.delta")
	targetPath := filepath.Join(dir, "target.bin")

	payload := make([]byte, 16384)
	for i := range payload {
		payload[i] = byte(i)
	}

	w, err := delta.NewWriter(deltaPath, 16384, 16384, false, 6)
	require.NoError(t, err)
	require.NoError(t, w.WriteRegion(0, payload))
	require.NoError(t, w.Close())

	eng := newEngine(t, options.Options{DeltaPath: deltaPath, TargetPath: targetPath})

	result, err := eng.Run(context.Background(), ModeApplyDelta)
	require.NoError(t, err)
	require.NotNil(t, result.Apply)
	assert.Equal(t, uint64(1), result.Apply.RegionsApplied)
	assert.Equal(t, uint64(16384), result.Apply.BytesWritten)

	got, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestRunShowDelta_DispatchesWithoutError(t *testing.T) {
	dir := t.TempDir()
	deltaPath := filepath.Join(dir, "show.delta")

	w, err := delta.NewWriter(deltaPath, 16384, 16384, false, 6)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	eng := newEngine(t, options.Options{DeltaPath: deltaPath})

	result, err := eng.Run(context.Background(), ModeShowDelta)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestRun_RejectsCallsAfterClose(t *testing.T) {
	eng := newEngine(t, options.Options{SourcePath: writeSourceFile(t, 16384)})
	require.NoError(t, eng.Close())

	_, err := eng.Run(context.Background(), ModeNewChecksum)
	assert.ErrorIs(t, err, ErrEngineClosed)

	assert.ErrorIs(t, eng.Close(), ErrEngineClosed)
}
