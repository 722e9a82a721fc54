// Package checksum implements the memory-mapped, append-sized array of
// fingerprint pairs that lets ddsync tell, without reading the whole
// source twice, which 16 KiB segments changed since the previous run.
//
// The store's lifecycle mirrors an append-only write path's bootstrap
// logic: on open it discovers whether a store already exists at the
// expected size, decides whether this run is starting fresh ("new
// store") or continuing one, and only then maps the file into memory.
// Once mapped, every worker holds the same Store value and writes only
// to its own disjoint slice of segment indices — the mapping is created
// once by the driver before any worker is spawned, and no locking
// protects concurrent Get/Set calls because no two workers ever touch
// the same index.
package checksum

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/iamNilotpal/ddsync/internal/segment"
	"github.com/iamNilotpal/ddsync/pkg/errors"
	"github.com/iamNilotpal/ddsync/pkg/fingerprint"
	"github.com/iamNilotpal/ddsync/pkg/filesys"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// NullPath is the sink that puts the store into no-store mode: every
// segment compares dirty and no checksum file is created or touched.
const NullPath = "/dev/null"

const entrySize = 8 // two little-endian uint32s: murmur, then crc32.

// Store is the mapped fingerprint-pair array indexed by segment index.
type Store struct {
	path     string
	file     *os.File
	data     []byte
	segments int64
	noStore  bool
	isNew    bool
	log      *zap.SugaredLogger
	closed   atomic.Bool
}

// Config holds the parameters needed to open or create a Store.
type Config struct {
	Path        string
	SourceBytes int64
	Logger      *zap.SugaredLogger
}

// Open implements open_or_create from §4.C: if Path is NullPath, the
// store operates in no-store mode. Otherwise, if a file already exists at
// the expected size it is opened and mapped as a continuing store; if it
// is missing or the wrong size, this is a new store — created or grown
// (sparse) to exactly the expected size before mapping. An existing file
// larger than the expected size is refused with a shrink-refused error
// rather than truncated. While a store is
// new, every compared segment is forced dirty regardless of fingerprint
// comparison; see IsNew.
func Open(ctx context.Context, config *Config) (*Store, error) {
	if config == nil || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "checksum store configuration is required",
		).WithField("config").WithRule("required")
	}

	segments := segment.Count(config.SourceBytes)
	expectedBytes := segments * entrySize

	if config.Path == NullPath {
		config.Logger.Infow("checksum store running in no-store mode", "path", NullPath)
		return &Store{path: NullPath, noStore: true, segments: segments, log: config.Logger}, nil
	}

	exists, err := filesys.Exists(config.Path)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat checksum store path").
			WithPath(config.Path)
	}

	isNew := true
	var existingSize int64
	if exists {
		info, statErr := os.Stat(config.Path)
		if statErr != nil {
			return nil, errors.NewStorageError(statErr, errors.ErrorCodeIO, "failed to stat checksum store").
				WithPath(config.Path)
		}
		existingSize = info.Size()
		if existingSize == expectedBytes {
			isNew = false
		}
		if existingSize > expectedBytes {
			return nil, errors.NewShrinkRefusedError(config.Path, existingSize, expectedBytes)
		}
	}

	config.Logger.Infow(
		"opening checksum store",
		"path", config.Path,
		"expectedBytes", expectedBytes,
		"segments", segments,
		"isNew", isNew,
	)

	if isNew {
		// The store may be the first thing ddsync ever writes under this
		// path (e.g. a fresh -c checksum/foo.sum on an otherwise empty
		// directory); make sure its parent exists before creating it.
		if dir := filepath.Dir(config.Path); dir != "." {
			if err := filesys.CreateDir(dir, 0755, true); err != nil {
				return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create checksum store directory").
					WithPath(dir)
			}
		}
	}

	openFlags := os.O_CREATE | os.O_RDWR
	file, err := os.OpenFile(config.Path, openFlags, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, config.Path, config.Path, openFlags)
	}

	if isNew {
		// Sparse grow to exactly the expected size. Never shrink: a
		// checksum store that is already too large for this run's source
		// was refused above, so this only ever grows the file.
		if err := file.Truncate(expectedBytes); err != nil {
			file.Close()
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to size checksum store").
				WithPath(config.Path).WithDetail("expectedBytes", expectedBytes)
		}
	}

	data, err := mapFile(file, expectedBytes)
	if err != nil {
		file.Close()
		return nil, errors.NewRuntimeError(err, errors.ErrorCodeMapFail, "failed to mmap checksum store").
			WithDetail("path", config.Path)
	}

	return &Store{
		path:     config.Path,
		file:     file,
		data:     data,
		segments: segments,
		isNew:    isNew,
		log:      config.Logger,
	}, nil
}

// LoadExisting opens and maps a checksum store for read-write, failing if
// it is missing. Used by APPLY_DELTA, which only ever updates an
// already-sized store rather than creating one from scratch.
func LoadExisting(path string, log *zap.SugaredLogger) (*Store, error) {
	if path == NullPath {
		return &Store{path: NullPath, noStore: true, log: log}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "checksum store does not exist").
			WithPath(path)
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, path, os.O_RDWR)
	}

	data, err := mapFile(file, info.Size())
	if err != nil {
		file.Close()
		return nil, errors.NewRuntimeError(err, errors.ErrorCodeMapFail, "failed to mmap checksum store").
			WithDetail("path", path)
	}

	return &Store{
		path:     path,
		file:     file,
		data:     data,
		segments: info.Size() / entrySize,
		log:      log,
	}, nil
}

func mapFile(file *os.File, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	return unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// NoStore reports whether the store is running in /dev/null mode, where
// every segment is treated as dirty and nothing is persisted.
func (s *Store) NoStore() bool {
	return s.noStore
}

// IsNew reports whether this run created or grew the store, which forces
// every segment dirty regardless of fingerprint comparison.
func (s *Store) IsNew() bool {
	return s.isNew
}

// Segments returns the number of fingerprint-pair entries in the store.
func (s *Store) Segments() int64 {
	return s.segments
}

// Get returns the fingerprint pair stored at the given segment index.
// Callers in no-store mode must not call Get; check NoStore first.
func (s *Store) Get(index int64) fingerprint.Pair {
	off := index * entrySize
	return fingerprint.Pair{
		Murmur: binary.LittleEndian.Uint32(s.data[off : off+4]),
		CRC32:  binary.LittleEndian.Uint32(s.data[off+4 : off+8]),
	}
}

// Set overwrites the fingerprint pair stored at the given segment index.
// Safe for concurrent use across workers as long as no two workers ever
// write the same index, which the partitioning in internal/segment
// guarantees.
func (s *Store) Set(index int64, p fingerprint.Pair) {
	off := index * entrySize
	binary.LittleEndian.PutUint32(s.data[off:off+4], p.Murmur)
	binary.LittleEndian.PutUint32(s.data[off+4:off+8], p.CRC32)
}

// Sync flushes mapped writes back to the backing file.
func (s *Store) Sync() error {
	if s.noStore || s.data == nil {
		return nil
	}
	if err := unix.Msync(s.data, unix.MS_SYNC); err != nil {
		return errors.ClassifySyncError(err, s.path, s.path, 0)
	}
	return nil
}

// Close unmaps and closes the store, then touches its modification time:
// writes through a shared mapping don't reliably bump mtime on every
// platform, and downstream backup tooling depends on mtime changing.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return errors.NewStorageError(nil, errors.ErrorCodeIO, "checksum store already closed").WithPath(s.path)
	}

	if s.noStore {
		return nil
	}

	if err := s.Sync(); err != nil {
		return err
	}

	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			return errors.NewRuntimeError(err, errors.ErrorCodeMapFail, "failed to unmap checksum store").
				WithDetail("path", s.path)
		}
	}

	if err := s.file.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to close checksum store").WithPath(s.path)
	}

	now := time.Now()
	if err := os.Chtimes(s.path, now, now); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to touch checksum store mtime").
			WithPath(s.path)
	}

	return nil
}
