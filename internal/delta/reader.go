package delta

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/iamNilotpal/ddsync/internal/checksum"
	"github.com/iamNilotpal/ddsync/pkg/device"
	"github.com/iamNilotpal/ddsync/pkg/errors"
	"github.com/iamNilotpal/ddsync/pkg/fingerprint"
	"github.com/klauspost/compress/zlib"
	"go.uber.org/zap"
)

// Reader parses a delta file's header and footer up front, then streams
// region records on demand via Apply.
type Reader struct {
	file   *os.File
	header Header
	footer Footer
	log    *zap.SugaredLogger
}

// OpenReader validates a delta file's magic start and end, decodes its
// header and footer, and leaves the file positioned just past the header
// so the caller can stream region records.
func OpenReader(path string, log *zap.SugaredLogger) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, path, os.O_RDONLY)
	}

	headerBuf := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBuf); err != nil {
		file.Close()
		return nil, errors.NewRuntimeError(err, errors.ErrorCodeHeaderReadFailure, "failed to read delta header")
	}
	if !bytes.Equal(headerBuf[0:8], []byte(magicStart)) {
		file.Close()
		return nil, errors.NewMagicMismatchError(path, "magic_start", []byte(magicStart), headerBuf[0:8])
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat delta file").WithPath(path)
	}
	if info.Size() < int64(headerSize+footerSize) {
		file.Close()
		return nil, errors.NewRuntimeError(nil, errors.ErrorCodeHeaderReadFailure, "delta file too short to contain a footer").
			WithDetail("path", path)
	}

	footerBuf := make([]byte, footerSize)
	if _, err := file.ReadAt(footerBuf, info.Size()-int64(footerSize)); err != nil {
		file.Close()
		return nil, errors.NewRuntimeError(err, errors.ErrorCodeHeaderReadFailure, "failed to read delta footer")
	}
	if !bytes.Equal(footerBuf[24:32], []byte(magicEnd)) {
		file.Close()
		return nil, errors.NewMagicMismatchError(path, "magic_end", []byte(magicEnd), footerBuf[24:32])
	}

	header := Header{
		SourceSize:   binary.LittleEndian.Uint64(headerBuf[16:24]),
		CheckSegSize: binary.LittleEndian.Uint64(headerBuf[24:32]),
		ConfOpts:     binary.LittleEndian.Uint64(headerBuf[32:40]),
	}
	footer := Footer{
		RegionCount:          binary.LittleEndian.Uint64(footerBuf[0:8]),
		TotalRawBytes:        binary.LittleEndian.Uint64(footerBuf[8:16]),
		TotalCompressedBytes: binary.LittleEndian.Uint64(footerBuf[16:24]),
	}

	if _, err := file.Seek(int64(headerSize), io.SeekStart); err != nil {
		file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek past delta header").WithPath(path)
	}

	return &Reader{file: file, header: header, footer: footer, log: log}, nil
}

// Header returns the decoded delta header.
func (r *Reader) Header() Header { return r.header }

// Footer returns the decoded delta footer.
func (r *Reader) Footer() Footer { return r.footer }

// Compressed reports whether region payloads are zlib-deflated.
func (r *Reader) Compressed() bool {
	return r.header.ConfOpts&ConfCompressed != 0
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Show writes a one-line, human-legible summary of the header and
// footer fields: the entirety of SHOW_DELTA's job.
func (r *Reader) Show(w io.Writer) error {
	_, err := fmt.Fprintf(
		w,
		"source_size=%d check_seg_size=%d conf_opts=0x%x region_count=%d total_raw_bytes=%d total_compressed_bytes=%d\n",
		r.header.SourceSize, r.header.CheckSegSize, r.header.ConfOpts,
		r.footer.RegionCount, r.footer.TotalRawBytes, r.footer.TotalCompressedBytes,
	)
	return err
}

// Apply streams every region record onto target in file order, inflating
// compressed payloads as needed. When store is non-nil and not in
// no-store mode, it recomputes and records fresh fingerprints for every
// CheckSegSize-aligned subregion each record touches, plus one extra
// fingerprint for a trailing partial subregion.
func (r *Reader) Apply(target *os.File, store *checksum.Store) (*ApplyStats, error) {
	stats := &ApplyStats{}
	compressed := r.Compressed()

	for i := uint64(0); i < r.footer.RegionCount; i++ {
		recordHeader := make([]byte, 16)
		if _, err := io.ReadFull(r.file, recordHeader); err != nil {
			return nil, errors.NewRuntimeError(err, errors.ErrorCodePayloadReadFailure, "failed to read delta region header").
				WithSegmentIndex(int64(i))
		}
		offset := binary.LittleEndian.Uint64(recordHeader[0:8])
		storedLen := binary.LittleEndian.Uint64(recordHeader[8:16])

		stored := make([]byte, storedLen)
		if _, err := io.ReadFull(r.file, stored); err != nil {
			return nil, errors.NewRuntimeError(err, errors.ErrorCodePayloadReadFailure, "failed to read delta region payload").
				WithOffset(int64(offset))
		}

		payload := stored
		if compressed {
			decompressed, err := inflate(stored)
			if err != nil {
				return nil, err
			}
			payload = decompressed
		}

		if _, err := target.Seek(int64(offset), io.SeekStart); err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek target during delta apply").
				WithPath(target.Name())
		}
		if err := device.WriteFull(target, payload); err != nil {
			return nil, err
		}

		if store != nil && !store.NoStore() {
			updateChecksums(store, offset, payload, r.header.CheckSegSize)
		}

		stats.RegionsApplied++
		stats.BytesWritten += uint64(len(payload))
	}

	return stats, nil
}

func inflate(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.NewRuntimeError(err, errors.ErrorCodeDecompressFail, "failed to open delta region decompressor")
	}
	defer zr.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, zr); err != nil {
		return nil, errors.NewRuntimeError(err, errors.ErrorCodeDecompressFail, "failed to decompress delta region")
	}
	return out.Bytes(), nil
}

// updateChecksums recomputes fingerprints for every segSize-aligned chunk
// of payload (the final chunk falls out short when payload isn't an exact
// multiple, covering the spec's "one extra fingerprint for any trailing
// bytes" case without needing separate logic for it).
func updateChecksums(store *checksum.Store, offset uint64, payload []byte, segSize uint64) {
	if segSize == 0 {
		return
	}
	pos := uint64(0)
	for pos < uint64(len(payload)) {
		end := pos + segSize
		if end > uint64(len(payload)) {
			end = uint64(len(payload))
		}
		idx := (offset + pos) / segSize
		store.Set(int64(idx), fingerprint.Compute(payload[pos:end]))
		pos = end
	}
}
