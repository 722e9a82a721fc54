package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ddsync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSized_CreatesAndGrowsRegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.bin")

	f, err := OpenSized(path, 32768)
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(32768), info.Size())
}

func TestOpenSized_RefusesShrink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 65536), 0600))

	_, err := OpenSized(path, 32768)
	require.Error(t, err)
	assert.True(t, errors.IsFormatError(err))

	fe, ok := errors.AsFormatError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCodeSizeShrinkRefused, fe.Code())
}

func TestOpenSized_KeepsExistingSizeWhenEqual(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 16384), 0600))

	f, err := OpenSized(path, 16384)
	require.NoError(t, err)
	defer f.Close()

	size, err := Size(f)
	require.NoError(t, err)
	assert.Equal(t, int64(16384), size)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	assert.True(t, Exists(path))
	assert.False(t, Exists(filepath.Join(dir, "absent.bin")))
}
