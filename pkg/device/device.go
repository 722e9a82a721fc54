// Package device wraps the handful of low-level operations ddsync needs
// against a source or target: open it read-only or read-write with an
// optional cache-bypass mode, find its length, and size it to match a
// source without ever shrinking a regular file underneath the caller.
//
// Block devices and regular files are handled uniformly where the
// operations agree (open, seek, read, write) and distinctly where they
// don't: a regular file can be grown or (refused to be) shrunk with
// Ftruncate, while a block device's length is fixed by the hardware and
// merely checked against what the caller asked for.
package device

import (
	"io"
	"os"

	"github.com/iamNilotpal/ddsync/pkg/errors"
)

// Exists reports whether a path exists, mirroring access(F_OK).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// OpenRO opens path for reading. When cacheBypass is true it requests
// O_DIRECT where the platform supports it; the flag is silently ignored
// where it is not, matching the conditional compilation the original
// engine used for platforms lacking O_DIRECT.
func OpenRO(path string, cacheBypass bool) (*os.File, error) {
	flags := os.O_RDONLY
	if cacheBypass {
		flags |= directFlag
	}

	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		if f2, retryErr := retryWithoutDirect(path, flags, 0, err); retryErr == nil {
			return f2, nil
		}
		return nil, errors.ClassifyFileOpenError(err, path, path, flags)
	}
	return f, nil
}

// OpenRW opens path for reading and writing. Cache-bypass is intended for
// the source read path only; writers should pass false.
func OpenRW(path string, cacheBypass bool) (*os.File, error) {
	flags := os.O_RDWR
	if cacheBypass {
		flags |= directFlag
	}

	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		if f2, retryErr := retryWithoutDirect(path, flags, 0, err); retryErr == nil {
			return f2, nil
		}
		return nil, errors.ClassifyFileOpenError(err, path, path, flags)
	}
	return f, nil
}

// WriteFull writes all of data to f, looping to resume after any short
// write until the buffer is fully flushed or a hard error occurs.
func WriteFull(f *os.File, data []byte) error {
	written := 0
	for written < len(data) {
		n, err := f.Write(data[written:])
		if err != nil {
			return errors.NewRuntimeError(err, errors.ErrorCodeIoWriteFail, "short write did not converge after retry").
				WithDetail("wantBytes", len(data)).WithDetail("gotBytes", written+n)
		}
		if n == 0 {
			return errors.NewRuntimeError(nil, errors.ErrorCodeIoWriteFail, "write made no progress")
		}
		written += n
	}
	return nil
}

// retryWithoutDirect strips a cache-bypass flag and retries once, for
// platforms/filesystems that advertise O_DIRECT but reject it for a given
// path (e.g. tmpfs). Returns the original error if the retry also fails.
func retryWithoutDirect(path string, flags, perm int, original error) (*os.File, error) {
	if directFlag == 0 || flags&directFlag == 0 {
		return nil, original
	}
	return os.OpenFile(path, flags&^directFlag, os.FileMode(perm))
}

// Size returns the length in bytes of an already-open source or target,
// via seek-to-end followed by seek-to-start so the file's position is left
// unchanged for the caller's subsequent reads.
func Size(f *os.File) (int64, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek to end of file").
			WithFileName(f.Name())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek back to start of file").
			WithFileName(f.Name())
	}
	return size, nil
}

// OpenSized opens (creating if necessary) the file at path and ensures it
// is exactly wantSize bytes, the way the target and checksum-store files
// must be sized before a run begins.
//
// Regular files are grown with Truncate when short and refused when
// larger than wantSize (the caller's prior run produced something bigger
// than this run's source, which this package will not silently discard).
// Block and character devices are never truncated; their existing size
// merely has to already be at least wantSize.
func OpenSized(path string, wantSize int64) (*os.File, error) {
	if !Exists(path) {
		createFlags := os.O_WRONLY | os.O_CREATE
		f, err := os.OpenFile(path, createFlags, 0600)
		if err != nil {
			return nil, errors.ClassifyFileOpenError(err, path, path, createFlags)
		}
		f.Close()
	}

	f, err := OpenRW(path, false)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat sized file").WithPath(path)
	}

	if info.Mode().IsRegular() {
		currentSize := info.Size()
		switch {
		case currentSize < wantSize:
			if err := f.Truncate(wantSize); err != nil {
				f.Close()
				return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to grow file to target size").
					WithPath(path).WithDetail("currentSize", currentSize).WithDetail("wantSize", wantSize)
			}
		case currentSize > wantSize:
			f.Close()
			return nil, errors.NewShrinkRefusedError(path, currentSize, wantSize)
		}
		return f, nil
	}

	// Block/character device: length is fixed by the hardware, just verify
	// it is large enough to hold the requested size.
	currentSize, err := Size(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if currentSize < wantSize {
		f.Close()
		return nil, errors.NewStorageError(
			nil, errors.ErrorCodeIO, "device is smaller than the requested size",
		).WithPath(path).WithDetail("currentSize", currentSize).WithDetail("wantSize", wantSize)
	}
	return f, nil
}
