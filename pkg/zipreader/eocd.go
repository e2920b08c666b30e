package zipreader

import (
	"encoding/binary"
	"io"
)

const (
	eocdSignature       = 0x06054b50
	eocdFixedSize       = 22
	centralDirSignature = 0x02014b50
	localHeaderSize     = 30
	zip64LocatorSig     = 0x07064b50
	zip64LocatorSize    = 20
)

// eocdRecord holds the fields of the End-Of-Central-Directory record that
// matter for locating and bounding the central directory.
type eocdRecord struct {
	offset          int64 // absolute offset of the EOCD signature in the archive
	totalEntries    uint16
	centralDirSize  uint32
	centralDirStart uint32
	commentLength   uint16
}

// findEOCD scans up to limits.MaxEOCDScan bytes from the tail of the
// archive for the EOCD signature, confirming that the record, together with
// its trailing comment, exactly accounts for the remainder of the file. It
// also rejects ZIP64 archives, per spec: any ZIP64 sentinel in the EOCD
// fields, or a ZIP64 end-of-central-directory locator immediately preceding
// the EOCD record, is treated as unsupported rather than silently
// misread.
func findEOCD(r io.ReaderAt, size int64, maxScan int) (eocdRecord, error) {
	if size < eocdFixedSize {
		return eocdRecord{}, newErr(InvalidFormat, "", "archive smaller than minimum EOCD size", nil)
	}
	if maxScan < eocdFixedSize {
		maxScan = eocdFixedSize
	}
	window := int64(maxScan)
	if window > size {
		window = size
	}

	buf := make([]byte, window)
	if _, err := r.ReadAt(buf, size-window); err != nil && err != io.EOF {
		return eocdRecord{}, wrapErr(IoError, "", err)
	}

	// Scan backward for the signature so the last (outermost) EOCD wins
	// when a forged comment embeds an earlier fake signature.
	var found = -1
	sigBytes := []byte{0x50, 0x4b, 0x05, 0x06}
	for i := len(buf) - eocdFixedSize; i >= 0; i-- {
		if buf[i] == sigBytes[0] && buf[i+1] == sigBytes[1] && buf[i+2] == sigBytes[2] && buf[i+3] == sigBytes[3] {
			found = i
			break
		}
	}
	if found < 0 {
		return eocdRecord{}, newErr(InvalidFormat, "", "end-of-central-directory signature not found within scan window", nil)
	}

	eocdOffset := size - window + int64(found)
	rec := buf[found:]
	if len(rec) < eocdFixedSize {
		// Signature landed too close to the window edge; re-read precisely.
		rec = make([]byte, eocdFixedSize)
		if _, err := r.ReadAt(rec, eocdOffset); err != nil {
			return eocdRecord{}, wrapErr(IoError, "", err)
		}
	}

	commentLength := binary.LittleEndian.Uint16(rec[20:22])
	if eocdOffset+eocdFixedSize+int64(commentLength) != size {
		return eocdRecord{}, newErr(InvalidFormat, "", "EOCD record does not account for end of file", nil)
	}

	e := eocdRecord{
		offset:          eocdOffset,
		totalEntries:    binary.LittleEndian.Uint16(rec[10:12]),
		centralDirSize:  binary.LittleEndian.Uint32(rec[12:16]),
		centralDirStart: binary.LittleEndian.Uint32(rec[16:20]),
		commentLength:   commentLength,
	}

	if e.totalEntries == 0xFFFF || e.centralDirSize == 0xFFFFFFFF || e.centralDirStart == 0xFFFFFFFF {
		return eocdRecord{}, newErr(UnsupportedZip64, "", "ZIP64 sentinel present in EOCD record", nil)
	}

	if eocdOffset >= zip64LocatorSize {
		locator := make([]byte, zip64LocatorSize)
		if _, err := r.ReadAt(locator, eocdOffset-zip64LocatorSize); err == nil {
			if binary.LittleEndian.Uint32(locator[0:4]) == zip64LocatorSig {
				return eocdRecord{}, newErr(UnsupportedZip64, "", "ZIP64 end-of-central-directory locator present", nil)
			}
		}
	}

	return e, nil
}
