package pipeline

import (
	"bytes"
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/ddsync/internal/checksum"
	"github.com/iamNilotpal/ddsync/internal/segment"
	"github.com/iamNilotpal/ddsync/pkg/logger"
)

func newTestStore(t *testing.T, sourceBytes int64) (*checksum.Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "checksums.bin")
	store, err := checksum.Open(context.Background(), &checksum.Config{
		Path:        path,
		SourceBytes: sourceBytes,
		Logger:      logger.New("t"),
	})
	require.NoError(t, err)
	return store, path
}

func writeSource(t *testing.T, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "source.bin")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// E1: replicating a fresh source against an absent checksum store copies
// every segment and reports the full segment count as changed.
func TestRun_FullCopyEquivalence(t *testing.T) {
	source := make([]byte, 3*segment.Size)
	sourcePath := writeSource(t, source)
	targetPath := filepath.Join(t.TempDir(), "target.bin")
	require.NoError(t, os.WriteFile(targetPath, make([]byte, len(source)), 0600))

	store, _ := newTestStore(t, int64(len(source)))
	defer store.Close()

	stats, err := Run(context.Background(), &Config{
		SourcePath: sourcePath,
		TargetPath: targetPath,
		Workers:    2,
		Mode:       ModeSourceTarget,
		Store:      store,
		Logger:     logger.New("t"),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.ChangedSegments)

	got, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(source, got))
}

// E1 second half + property 3: a second run with no source change writes
// nothing and reports zero changed segments.
func TestRun_Idempotence(t *testing.T) {
	source := make([]byte, 3*segment.Size)
	_, _ = rand.Read(source)
	sourcePath := writeSource(t, source)
	targetPath := filepath.Join(t.TempDir(), "target.bin")
	require.NoError(t, os.WriteFile(targetPath, make([]byte, len(source)), 0600))

	store, storePath := newTestStore(t, int64(len(source)))

	cfg := &Config{
		SourcePath: sourcePath,
		TargetPath: targetPath,
		Workers:    1,
		Mode:       ModeSourceTarget,
		Store:      store,
		Logger:     logger.New("t"),
	}
	_, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	before, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	beforeStore, err := os.ReadFile(storePath)
	require.NoError(t, err)

	store2, err := checksum.Open(context.Background(), &checksum.Config{
		Path: storePath, SourceBytes: int64(len(source)), Logger: logger.New("t"),
	})
	require.NoError(t, err)
	defer store2.Close()

	cfg.Store = store2
	stats, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.ChangedSegments)
	assert.EqualValues(t, 0, stats.BytesWritten)

	after, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, after))

	require.NoError(t, store2.Close())
	afterStore, err := os.ReadFile(storePath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(beforeStore, afterStore))
}

// E2: mutating one byte inside segment 1 causes exactly that segment to
// be rewritten on the next run.
func TestRun_IncrementalCorrectness(t *testing.T) {
	source := make([]byte, 3*segment.Size)
	sourcePath := writeSource(t, source)
	targetPath := filepath.Join(t.TempDir(), "target.bin")
	require.NoError(t, os.WriteFile(targetPath, make([]byte, len(source)), 0600))

	store, storePath := newTestStore(t, int64(len(source)))

	cfg := &Config{
		SourcePath: sourcePath, TargetPath: targetPath, Workers: 1,
		Mode: ModeSourceTarget, Store: store, Logger: logger.New("t"),
	}
	_, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	source[20000] = 0xAB // offset 20000 falls inside segment 1
	require.NoError(t, os.WriteFile(sourcePath, source, 0600))

	store2, err := checksum.Open(context.Background(), &checksum.Config{
		Path: storePath, SourceBytes: int64(len(source)), Logger: logger.New("t"),
	})
	require.NoError(t, err)
	defer store2.Close()

	cfg.Store = store2
	stats, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.ChangedSegments)

	got, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(source, got))
}

// Property 9: /dev/null checksum path writes every segment unconditionally.
func TestRun_NoStoreModeWritesEverySegment(t *testing.T) {
	source := make([]byte, 2*segment.Size)
	_, _ = rand.Read(source)
	sourcePath := writeSource(t, source)
	targetPath := filepath.Join(t.TempDir(), "target.bin")
	require.NoError(t, os.WriteFile(targetPath, make([]byte, len(source)), 0600))

	store, err := checksum.Open(context.Background(), &checksum.Config{
		Path: checksum.NullPath, SourceBytes: int64(len(source)), Logger: logger.New("t"),
	})
	require.NoError(t, err)
	defer store.Close()

	stats, err := Run(context.Background(), &Config{
		SourcePath: sourcePath, TargetPath: targetPath, Workers: 1,
		Mode: ModeSourceTarget, Store: store, Logger: logger.New("t"),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.ChangedSegments)

	got, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(source, got))
}

func TestCoalesceDirtyRuns(t *testing.T) {
	dirty := make([]int64, sentinelSize)
	dirty[0] = segment.Size
	dirty[1] = segment.Size
	dirty[3] = segment.Size

	runs := coalesceDirtyRuns(dirty, 4)
	require.Len(t, runs, 2)
	assert.Equal(t, dirtyRun{offset: 0, length: 2 * segment.Size}, runs[0])
	assert.Equal(t, dirtyRun{offset: 3 * segment.Size, length: segment.Size}, runs[1])
}
