package zipreader

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildZip creates an in-memory ZIP archive using the standard library
// writer, returning its bytes. Using archive/zip here only exercises the
// package as a test fixture generator; the reader under test never uses it.
func buildZip(t *testing.T, files map[string]string, methods map[string]uint16) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for name, content := range files {
		method := uint16(zip.Deflate)
		if m, ok := methods[name]; ok {
			method = m
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestOpenAndReadStoredAndDeflate(t *testing.T) {
	data := buildZip(t, map[string]string{
		"mimetype":             "application/epub+zip",
		"META-INF/container.xml": "<container/>",
		"OEBPS/ch1.xhtml":        "<html><body><p>Hello</p></body></html>",
	}, map[string]uint16{"mimetype": zip.Store})

	r, err := Open(bytes.NewReader(data), int64(len(data)), DefaultLimits())
	require.NoError(t, err)

	e, ok := r.Lookup("mimetype")
	require.True(t, ok)
	assert.Equal(t, Stored, e.Method)

	buf := make([]byte, e.UncompressedSize)
	n, err := r.ReadInto(e, buf)
	require.NoError(t, err)
	assert.Equal(t, "application/epub+zip", string(buf[:n]))

	e2, ok := r.Lookup("OEBPS/ch1.xhtml")
	require.True(t, ok)
	assert.Equal(t, Deflate, e2.Method)
	buf2 := make([]byte, e2.UncompressedSize)
	n2, err := r.ReadInto(e2, buf2)
	require.NoError(t, err)
	assert.Equal(t, "<html><body><p>Hello</p></body></html>", string(buf2[:n2]))
}

func TestLookupCaseInsensitiveAndLeadingSlash(t *testing.T) {
	data := buildZip(t, map[string]string{"OEBPS/Chapter1.xhtml": "x"}, nil)
	r, err := Open(bytes.NewReader(data), int64(len(data)), DefaultLimits())
	require.NoError(t, err)

	_, ok := r.Lookup("oebps/chapter1.xhtml")
	assert.True(t, ok)
	_, ok = r.Lookup("/OEBPS/Chapter1.xhtml")
	assert.True(t, ok)
	_, ok = r.Lookup("does/not/exist")
	assert.False(t, ok)
}

func TestValidateMimetype(t *testing.T) {
	good := buildZip(t, map[string]string{"mimetype": "application/epub+zip"}, nil)
	r, err := Open(bytes.NewReader(good), int64(len(good)), DefaultLimits())
	require.NoError(t, err)
	assert.NoError(t, r.ValidateMimetype())

	bad := buildZip(t, map[string]string{"mimetype": "text/plain"}, nil)
	r2, err := Open(bytes.NewReader(bad), int64(len(bad)), DefaultLimits())
	require.NoError(t, err)
	err = r2.ValidateMimetype()
	require.Error(t, err)
	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, InvalidMimetype, zerr.Kind)

	missing := buildZip(t, map[string]string{"other": "x"}, nil)
	r3, err := Open(bytes.NewReader(missing), int64(len(missing)), DefaultLimits())
	require.NoError(t, err)
	assert.Error(t, r3.ValidateMimetype())
}

func TestCrcMismatchDetected(t *testing.T) {
	data := buildZip(t, map[string]string{"f.txt": "hello world"}, map[string]uint16{"f.txt": zip.Store})

	// Corrupt one payload byte without touching any header so the CRC in
	// the central directory no longer matches the decompressed content.
	needle := []byte("hello world")
	idx := bytes.Index(data, needle)
	require.GreaterOrEqual(t, idx, 0)
	corrupted := append([]byte(nil), data...)
	corrupted[idx] = 'H'

	r, err := Open(bytes.NewReader(corrupted), int64(len(corrupted)), DefaultLimits())
	require.NoError(t, err)
	e, ok := r.Lookup("f.txt")
	require.True(t, ok)

	buf := make([]byte, e.UncompressedSize)
	_, err = r.ReadInto(e, buf)
	require.Error(t, err)
	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, CrcMismatch, zerr.Kind)
}

func TestBufferTooSmall(t *testing.T) {
	data := buildZip(t, map[string]string{"f.txt": "hello world"}, nil)
	r, err := Open(bytes.NewReader(data), int64(len(data)), DefaultLimits())
	require.NoError(t, err)
	e, _ := r.Lookup("f.txt")

	_, err = r.ReadInto(e, make([]byte, 2))
	require.Error(t, err)
	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, BufferTooSmall, zerr.Kind)
}

func TestStreamToWritesWithoutMaterializingWhole(t *testing.T) {
	content := bytes.Repeat([]byte("abcdefghij"), 1000)
	data := buildZip(t, map[string]string{"big.bin": string(content)}, nil)
	r, err := Open(bytes.NewReader(data), int64(len(data)), DefaultLimits())
	require.NoError(t, err)
	e, _ := r.Lookup("big.bin")

	var out bytes.Buffer
	err = r.StreamTo(e, &out, make([]byte, 16)) // tiny scratch buffer
	require.NoError(t, err)
	assert.Equal(t, content, out.Bytes())
}

func TestUnsupportedZip64Sentinel(t *testing.T) {
	// Hand-build a minimal, otherwise-valid EOCD whose total-entries field
	// is the ZIP64 sentinel 0xFFFF.
	eocd := make([]byte, eocdFixedSize)
	binary.LittleEndian.PutUint32(eocd[0:4], eocdSignature)
	binary.LittleEndian.PutUint16(eocd[10:12], 0xFFFF)
	data := eocd

	_, err := Open(bytes.NewReader(data), int64(len(data)), DefaultLimits())
	require.Error(t, err)
	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, UnsupportedZip64, zerr.Kind)
}

func TestEOCDNotFoundWithinScanWindow(t *testing.T) {
	data := bytes.Repeat([]byte{0}, 100)
	_, err := Open(bytes.NewReader(data), int64(len(data)), Limits{
		MaxFileReadSize: 1024, MaxMimetypeSize: 64, MaxEOCDScan: 22,
	})
	require.Error(t, err)
	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, InvalidFormat, zerr.Kind)
}

func TestCentralDirectoryEntryCapLenient(t *testing.T) {
	files := make(map[string]string, 300)
	for i := 0; i < 300; i++ {
		files[paddedName(i)] = "x"
	}
	data := buildZip(t, files, nil)
	limits := DefaultLimits()
	limits.Strict = false
	r, err := Open(bytes.NewReader(data), int64(len(data)), limits)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(r.Entries()), maxCentralDirEntries)
}

func TestCentralDirectoryEntryCapStrict(t *testing.T) {
	files := make(map[string]string, 300)
	for i := 0; i < 300; i++ {
		files[paddedName(i)] = "x"
	}
	data := buildZip(t, files, nil)
	limits := DefaultLimits()
	limits.Strict = true
	_, err := Open(bytes.NewReader(data), int64(len(data)), limits)
	require.Error(t, err)
	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, CentralDirFull, zerr.Kind)
}

func paddedName(i int) string {
	b := make([]byte, 0, 16)
	b = append(b, []byte("f")...)
	return string(b) + itoa(i) + ".txt"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

var _ io.Writer = (*bytes.Buffer)(nil)
