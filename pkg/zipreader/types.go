// Package zipreader is a streaming reader for OCF (ZIP-based) container
// archives. It parses the central directory with bounded memory, supports
// random access to entries by path, and decompresses stored or DEFLATE
// entries without materializing more than a caller-sized scratch buffer at
// a time. ZIP64 archives are explicitly rejected rather than silently
// mishandled.
package zipreader

// CompressionMethod identifies how an entry's bytes are stored in the
// archive. Only Stored and Deflate are supported; anything else is
// rejected with an *Error of kind UnsupportedCompression when the entry is
// read.
type CompressionMethod uint16

const (
	Stored  CompressionMethod = 0
	Deflate CompressionMethod = 8
)

// Entry describes a single file within the archive, as recorded in the
// central directory. Name is case-preserving; Reader.Lookup performs
// case-insensitive matching with a tolerant leading slash.
type Entry struct {
	Name              string
	Method            CompressionMethod
	CompressedSize    uint64
	UncompressedSize  uint64
	CRC32             uint32
	LocalHeaderOffset uint64
}

// Limits bounds the resources a Reader will consume.
type Limits struct {
	// MaxFileReadSize caps the uncompressed size of any single entry read
	// via ReadInto or StreamTo.
	MaxFileReadSize uint64 `validate:"required,gt=0"`

	// MaxMimetypeSize caps the size accepted when validating the
	// "mimetype" entry.
	MaxMimetypeSize uint64 `validate:"required,gt=0"`

	// Strict converts recoverable truncation and overflow conditions
	// (overlong names, central-directory overflow) into hard errors
	// instead of silently dropping the affected entries.
	Strict bool

	// MaxEOCDScan bounds how many trailing bytes of the archive are
	// scanned for the End-Of-Central-Directory signature. Minimum 22.
	MaxEOCDScan int `validate:"required,gte=22"`
}

// DefaultLimits returns limits generous enough for typical EPUBs while
// still bounding worst-case memory: 64MiB per entry, 64 bytes for the
// mimetype entry, lenient mode, and a 64KiB EOCD scan window.
func DefaultLimits() Limits {
	return Limits{
		MaxFileReadSize: 64 * 1024 * 1024,
		MaxMimetypeSize: 64,
		Strict:          false,
		MaxEOCDScan:     64 * 1024,
	}
}

const (
	maxCentralDirEntries = 256
	maxNameLength        = 256
)
