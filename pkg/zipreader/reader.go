package zipreader

import (
	"compress/flate"
	"encoding/binary"
	"hash/crc32"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Reader provides random access to the entries of an OCF archive.
type Reader struct {
	src    io.ReaderAt
	size   int64
	limits Limits

	entries []Entry
	byExact map[string]int
	byLower map[string]int
}

// Open parses the archive's End-Of-Central-Directory record and central
// directory, returning a Reader ready for Lookup and entry reads.
func Open(src io.ReaderAt, size int64, limits Limits) (*Reader, error) {
	eocd, err := findEOCD(src, size, limits.MaxEOCDScan)
	if err != nil {
		return nil, err
	}

	dirSize := int64(eocd.centralDirSize)
	dirStart := int64(eocd.centralDirStart)
	if dirStart < 0 || dirStart+dirSize > eocd.offset {
		return nil, newErr(InvalidFormat, "", "central directory does not fit before EOCD record", nil)
	}

	dir := make([]byte, dirSize)
	if dirSize > 0 {
		if _, err := src.ReadAt(dir, dirStart); err != nil && err != io.EOF {
			return nil, wrapErr(IoError, "", err)
		}
	}

	r := &Reader{
		src:     src,
		size:    size,
		limits:  limits,
		byExact: make(map[string]int),
		byLower: make(map[string]int),
	}

	if err := r.parseCentralDirectory(dir); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Reader) parseCentralDirectory(dir []byte) error {
	for len(dir) > 0 {
		if len(dir) < 46 || binary.LittleEndian.Uint32(dir[0:4]) != centralDirSignature {
			return newErr(InvalidFormat, "", "malformed central directory entry", nil)
		}

		method := binary.LittleEndian.Uint16(dir[10:12])
		crc := binary.LittleEndian.Uint32(dir[16:20])
		compressedSize := binary.LittleEndian.Uint32(dir[20:24])
		uncompressedSize := binary.LittleEndian.Uint32(dir[24:28])
		nameLen := int(binary.LittleEndian.Uint16(dir[28:30]))
		extraLen := int(binary.LittleEndian.Uint16(dir[30:32]))
		commentLen := int(binary.LittleEndian.Uint16(dir[32:34]))
		localHeaderOffset := binary.LittleEndian.Uint32(dir[42:46])

		if len(dir) < 46+nameLen+extraLen+commentLen {
			return newErr(InvalidFormat, "", "central directory entry truncated", nil)
		}

		name := string(dir[46 : 46+nameLen])
		dir = dir[46+nameLen+extraLen+commentLen:]

		if len(name) > maxNameLength {
			if r.limits.Strict {
				return newErr(InvalidFormat, name, "entry name exceeds maximum cached length", nil)
			}
			continue // dropped silently in lenient mode
		}

		if len(r.entries) >= maxCentralDirEntries {
			if r.limits.Strict {
				return newErr(CentralDirFull, name, "central directory exceeds cached entry cap", nil)
			}
			break // stop caching further entries in lenient mode
		}

		r.entries = append(r.entries, Entry{
			Name:              name,
			Method:            CompressionMethod(method),
			CompressedSize:    uint64(compressedSize),
			UncompressedSize:  uint64(uncompressedSize),
			CRC32:             crc,
			LocalHeaderOffset: uint64(localHeaderOffset),
		})
		idx := len(r.entries) - 1
		if _, exists := r.byExact[name]; !exists {
			r.byExact[name] = idx
		}
		lower := strings.ToLower(name)
		if _, exists := r.byLower[lower]; !exists {
			r.byLower[lower] = idx
		}
	}
	return nil
}

// Entries returns the cached central-directory entries in archive order.
func (r *Reader) Entries() []Entry {
	return r.entries
}

// Lookup finds an entry by path: exact match first, then ASCII
// case-insensitive, tolerating a leading slash on either the query or the
// cached name.
func (r *Reader) Lookup(name string) (Entry, bool) {
	if idx, ok := r.byExact[name]; ok {
		return r.entries[idx], true
	}
	if idx, ok := r.byLower[strings.ToLower(name)]; ok {
		return r.entries[idx], true
	}

	trimmed := strings.TrimPrefix(name, "/")
	if trimmed != name {
		if idx, ok := r.byExact[trimmed]; ok {
			return r.entries[idx], true
		}
		if idx, ok := r.byLower[strings.ToLower(trimmed)]; ok {
			return r.entries[idx], true
		}
	}
	for _, prefix := range []string{"/"} {
		withSlash := prefix + name
		if idx, ok := r.byLower[strings.ToLower(withSlash)]; ok {
			return r.entries[idx], true
		}
	}
	return Entry{}, false
}

// dataOffset re-reads the local file header to compute the absolute offset
// of an entry's compressed data, since the central directory's recorded
// extra-field length may differ from the local header's.
func (r *Reader) dataOffset(e Entry) (int64, error) {
	hdr := make([]byte, localHeaderSize)
	if _, err := r.src.ReadAt(hdr, int64(e.LocalHeaderOffset)); err != nil {
		return 0, wrapErr(IoError, e.Name, err)
	}
	if binary.LittleEndian.Uint32(hdr[0:4]) != 0x04034b50 {
		return 0, newErr(InvalidFormat, e.Name, "missing local file header signature", nil)
	}
	nameLen := int(binary.LittleEndian.Uint16(hdr[26:28]))
	extraLen := int(binary.LittleEndian.Uint16(hdr[28:30]))
	return int64(e.LocalHeaderOffset) + localHeaderSize + int64(nameLen) + int64(extraLen), nil
}

// ReadInto decompresses an entry fully into buf, which must have capacity
// for at least e.UncompressedSize bytes. It returns the number of bytes
// written and verifies the CRC-32 of the decompressed payload.
func (r *Reader) ReadInto(e Entry, buf []byte) (int, error) {
	if e.UncompressedSize > r.limits.MaxFileReadSize {
		return 0, newErr(FileTooLarge, e.Name, "", nil)
	}
	if uint64(cap(buf)) < e.UncompressedSize {
		return 0, newErr(BufferTooSmall, e.Name, "", nil)
	}
	buf = buf[:e.UncompressedSize]

	var w countingCRCWriter
	w.dst = buf
	if err := r.stream(e, &w, make([]byte, inflateScratchSize(e))); err != nil {
		return 0, err
	}
	if w.crc != e.CRC32 {
		return 0, newErr(CrcMismatch, e.Name, "", nil)
	}
	return w.n, nil
}

// StreamTo decompresses an entry, writing chunks to w as they are produced.
// scratch bounds how much decompressed data is buffered at a time; the full
// entry is never materialized in memory. CRC-32 is verified once streaming
// completes.
func (r *Reader) StreamTo(e Entry, w io.Writer, scratch []byte) error {
	if e.UncompressedSize > r.limits.MaxFileReadSize {
		return newErr(FileTooLarge, e.Name, "", nil)
	}
	if len(scratch) == 0 {
		scratch = make([]byte, 32*1024)
	}

	cw := &crcPassthroughWriter{dst: w}
	if err := r.stream(e, cw, scratch); err != nil {
		return err
	}
	if cw.crc != e.CRC32 {
		return newErr(CrcMismatch, e.Name, "", nil)
	}
	return nil
}

// stream drives decompression of e's payload into dst, chunked through
// scratch for the deflate case.
func (r *Reader) stream(e Entry, dst io.Writer, scratch []byte) error {
	offset, err := r.dataOffset(e)
	if err != nil {
		return err
	}
	section := io.NewSectionReader(r.src, offset, int64(e.CompressedSize))

	switch e.Method {
	case Stored:
		n, err := io.CopyBuffer(dst, io.LimitReader(section, int64(e.UncompressedSize)), scratch)
		if err != nil {
			return wrapErr(IoError, e.Name, err)
		}
		if uint64(n) != e.UncompressedSize {
			return newErr(InvalidFormat, e.Name, "stored entry shorter than declared size", nil)
		}
		return nil
	case Deflate:
		fr := flate.NewReader(section)
		defer fr.Close()
		n, err := io.CopyBuffer(dst, fr, scratch)
		if err != nil {
			return &Error{Kind: DecompressError, Name: e.Name, Err: errors.WithStack(err)}
		}
		if uint64(n) != e.UncompressedSize {
			return newErr(DecompressError, e.Name, "decompressed size does not match declared size", nil)
		}
		return nil
	default:
		return newErr(UnsupportedCompression, e.Name, "", nil)
	}
}

func inflateScratchSize(e Entry) int {
	if e.UncompressedSize < 32*1024 {
		size := int(e.UncompressedSize)
		if size == 0 {
			return 1
		}
		return size
	}
	return 32 * 1024
}

// countingCRCWriter writes sequentially into a fixed destination slice
// while accumulating a running CRC-32 and byte count.
type countingCRCWriter struct {
	dst []byte
	n   int
	crc uint32
}

func (w *countingCRCWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > len(w.dst) {
		return 0, newErr(BufferTooSmall, "", "", nil)
	}
	copy(w.dst[w.n:], p)
	w.crc = crc32.Update(w.crc, crc32.IEEETable, p)
	w.n += len(p)
	return len(p), nil
}

// crcPassthroughWriter forwards writes to dst while accumulating CRC-32.
type crcPassthroughWriter struct {
	dst io.Writer
	crc uint32
}

func (w *crcPassthroughWriter) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	w.crc = crc32.Update(w.crc, crc32.IEEETable, p[:n])
	return n, err
}

const expectedMimetypeContent = "application/epub+zip"

// ValidateMimetype reads the "mimetype" entry and requires its content to
// equal exactly "application/epub+zip".
func (r *Reader) ValidateMimetype() error {
	e, ok := r.Lookup("mimetype")
	if !ok {
		return newErr(InvalidMimetype, "mimetype", "entry not found", nil)
	}
	if e.UncompressedSize > r.limits.MaxMimetypeSize {
		return newErr(InvalidMimetype, "mimetype", "entry exceeds configured size limit", nil)
	}
	buf := make([]byte, e.UncompressedSize)
	if _, err := r.ReadInto(e, buf); err != nil {
		return newErr(InvalidMimetype, "mimetype", "failed to read entry", err)
	}
	if string(buf) != expectedMimetypeContent {
		return newErr(InvalidMimetype, "mimetype", "unexpected content", nil)
	}
	return nil
}
