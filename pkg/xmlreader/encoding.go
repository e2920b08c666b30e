package xmlreader

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var byteOrderMarks = []struct {
	bom []byte
	enc *unicode.Decoder
}{
	{[]byte{0xFF, 0xFE}, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()},
	{[]byte{0xFE, 0xFF}, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()},
}

// toUTF8 normalizes raw bytes to valid UTF-8 for feeding into encoding/xml,
// which decodes only UTF-8 on its own. A UTF-16 byte-order mark is
// transcoded first. Failing that, bytes that are already valid UTF-8 pass
// through untouched; otherwise they're assumed to be Latin-1 (ISO-8859-1),
// a conversion that never itself fails since every byte value is a valid
// Latin-1 code point, which covers the common case of an EPUB2 document
// declaring "ISO-8859-1" but omitting a matching BOM. A final lossy-UTF-8
// replacement pass is kept as a last-resort safety net, since a single
// malformed byte sequence should not abort an entire archive parse.
func toUTF8(raw []byte) []byte {
	for _, b := range byteOrderMarks {
		if bytes.HasPrefix(raw, b.bom) {
			out, err := b.enc.Bytes(raw)
			if err == nil {
				return out
			}
			break
		}
	}
	if utf8.Valid(raw) {
		return raw
	}
	if out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw); err == nil {
		return out
	}
	return []byte(strings.ToValidUTF8(string(raw), "�"))
}
