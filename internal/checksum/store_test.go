package checksum

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ddsync/pkg/fingerprint"
	"github.com/iamNilotpal/ddsync/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_NewStoreIsSizedAndMarkedNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checksums.bin")

	store, err := Open(context.Background(), &Config{
		Path:        path,
		SourceBytes: 8*1024*1024 + 5,
		Logger:      logger.New("test"),
	})
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, store.IsNew())
	assert.Equal(t, int64(513), store.Segments())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(513*8), info.Size())
}

func TestOpen_ExistingCorrectSizeIsNotNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checksums.bin")
	sourceBytes := int64(16384 * 3)

	first, err := Open(context.Background(), &Config{Path: path, SourceBytes: sourceBytes, Logger: logger.New("t")})
	require.NoError(t, err)
	first.Set(1, fingerprint.Pair{Murmur: 0xdead, CRC32: 0xbeef})
	require.NoError(t, first.Close())

	second, err := Open(context.Background(), &Config{Path: path, SourceBytes: sourceBytes, Logger: logger.New("t")})
	require.NoError(t, err)
	defer second.Close()

	assert.False(t, second.IsNew())
	assert.Equal(t, fingerprint.Pair{Murmur: 0xdead, CRC32: 0xbeef}, second.Get(1))
}

func TestOpen_NullPathIsNoStore(t *testing.T) {
	store, err := Open(context.Background(), &Config{Path: NullPath, SourceBytes: 16384, Logger: logger.New("t")})
	require.NoError(t, err)
	assert.True(t, store.NoStore())
	require.NoError(t, store.Close())
}
