package muepub

import (
	"strings"

	"github.com/google/uuid"
)

// bookIDNamespace scopes the UUID5 namespace used to derive a stable book
// id from a non-UUID dc:identifier value (an ISBN, a publisher slug, and
// so on), so the same identifier string always maps to the same id.
var bookIDNamespace = uuid.MustParse("6f1e6e6a-93b4-4a3b-9b9b-6a6f6d657075")

// ID returns a stable identifier for this book, suitable as the book-id
// component of a (book id, chapter index, pagination profile id) page
// cache key. If the package's unique-identifier metadata is itself a UUID
// (the common case for an EPUB3 urn:uuid: scheme), that UUID is returned
// verbatim; otherwise a UUID5 is derived deterministically from the raw
// identifier string so repeated opens of the same book agree.
func (b *Book) ID() string {
	raw := b.pkg.UniqueIdentifier
	for _, id := range b.pkg.Metadata.Identifiers {
		if id.ID == raw || id.ID == "" {
			raw = id.Value
			break
		}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.NewSHA1(bookIDNamespace, []byte(b.opfPath)).String()
	}
	if trimmed := strings.TrimPrefix(strings.ToLower(raw), "urn:uuid:"); trimmed != strings.ToLower(raw) {
		if u, err := uuid.Parse(trimmed); err == nil {
			return u.String()
		}
	}
	if u, err := uuid.Parse(raw); err == nil {
		return u.String()
	}
	return uuid.NewSHA1(bookIDNamespace, []byte(raw)).String()
}
