package delta

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/iamNilotpal/ddsync/pkg/device"
	"github.com/iamNilotpal/ddsync/pkg/errors"
	"github.com/klauspost/compress/zlib"
)

// Writer appends changed regions to a single delta file. SOURCE_DELTA
// forces the engine down to one worker, so a Writer is never shared.
type Writer struct {
	file   *os.File
	header Header
	level  int

	regionCount     uint64
	totalRaw        uint64
	totalCompressed uint64
}

// NewWriter creates (truncating any existing file) and frames a delta
// file at path. When compress is true, region payloads are zlib-deflated
// at the given level (1-9) before being written.
func NewWriter(path string, sourceSize, checkSegSize uint64, compress bool, level int) (*Writer, error) {
	openFlags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	file, err := os.OpenFile(path, openFlags, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, path, openFlags)
	}

	confOpts := ConfRegistered
	if compress {
		confOpts |= ConfCompressed
	}

	w := &Writer{
		file:  file,
		level: level,
		header: Header{
			SourceSize:   sourceSize,
			CheckSegSize: checkSegSize,
			ConfOpts:     confOpts,
		},
	}
	if err := w.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) writeHeader() error {
	buf := make([]byte, headerSize)
	copy(buf[0:8], magicStart)
	copy(buf[8:16], magicVersion)
	binary.LittleEndian.PutUint64(buf[16:24], w.header.SourceSize)
	binary.LittleEndian.PutUint64(buf[24:32], w.header.CheckSegSize)
	binary.LittleEndian.PutUint64(buf[32:40], w.header.ConfOpts)
	if err := device.WriteFull(w.file, buf); err != nil {
		return err
	}
	return nil
}

// Compressed reports whether this writer deflates region payloads.
func (w *Writer) Compressed() bool {
	return w.header.ConfOpts&ConfCompressed != 0
}

// WriteRegion appends one changed region to the delta. The record's
// stored length is the length of payload actually written: the raw
// length when uncompressed, the deflated length otherwise.
func (w *Writer) WriteRegion(offset uint64, payload []byte) error {
	raw := uint64(len(payload))
	stored := payload

	if w.Compressed() {
		compressed, err := w.compress(payload)
		if err != nil {
			return err
		}
		stored = compressed
	}

	recordHeader := make([]byte, 16)
	binary.LittleEndian.PutUint64(recordHeader[0:8], offset)
	binary.LittleEndian.PutUint64(recordHeader[8:16], uint64(len(stored)))

	if err := device.WriteFull(w.file, recordHeader); err != nil {
		return err
	}
	if err := device.WriteFull(w.file, stored); err != nil {
		return err
	}

	w.regionCount++
	w.totalRaw += raw
	w.totalCompressed += uint64(len(stored))
	return nil
}

func (w *Writer) compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, w.level)
	if err != nil {
		return nil, errors.NewRuntimeError(err, errors.ErrorCodeCompressFail, "failed to start delta region compressor")
	}
	if _, err := zw.Write(payload); err != nil {
		zw.Close()
		return nil, errors.NewRuntimeError(err, errors.ErrorCodeCompressFail, "failed to compress delta region")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.NewRuntimeError(err, errors.ErrorCodeCompressFail, "failed to flush delta region compressor")
	}
	return buf.Bytes(), nil
}

// Stats returns the running totals that get written into the footer.
func (w *Writer) Stats() (regionCount, totalRaw, totalCompressed uint64) {
	return w.regionCount, w.totalRaw, w.totalCompressed
}

// Close writes the footer and closes the file.
func (w *Writer) Close() error {
	footer := make([]byte, footerSize)
	binary.LittleEndian.PutUint64(footer[0:8], w.regionCount)
	binary.LittleEndian.PutUint64(footer[8:16], w.totalRaw)
	binary.LittleEndian.PutUint64(footer[16:24], w.totalCompressed)
	copy(footer[24:32], magicEnd)

	if err := device.WriteFull(w.file, footer); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
