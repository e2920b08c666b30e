package muepub

import (
	"github.com/muepub/muepub/pkg/renderprep"
	"github.com/muepub/muepub/pkg/zipreader"
)

// Limits aggregates the bounded-memory knobs of every pipeline stage the
// façade drives, plus the mimetype/EOCD caps of the ZIP layer itself.
type Limits struct {
	Zip   zipreader.Limits
	Style renderprep.StyleLimits
	Font  renderprep.FontLimits
}

// DefaultLimits combines each pipeline stage's own defaults.
func DefaultLimits() Limits {
	cfg := renderprep.DefaultConfig()
	return Limits{
		Zip:   zipreader.DefaultLimits(),
		Style: cfg.StyleLimits,
		Font:  cfg.FontLimits,
	}
}

// Metadata holds the Dublin Core and EPUB3 metadata extracted from the
// package document.
type Metadata struct {
	Version     string
	Titles      []string
	Authors     []Author
	Language    []string
	Identifiers []Identifier
	Publisher   string
	Date        string
	Description string
	Subjects    []string
	Rights      string
	Source      string
}

// Author is a dc:creator or dc:contributor entry.
type Author struct {
	Name   string
	FileAs string
	Role   string
}

// Identifier is a dc:identifier entry.
type Identifier struct {
	Value  string
	Scheme string
	ID     string
}

// TOCItem is a single table-of-contents entry, with the spine range it
// covers resolved against the book's spine.
type TOCItem struct {
	Title         string
	Href          string
	Children      []TOCItem
	SpineIndex    int
	SpineEndIndex int
}

// Chapter is a lightweight spine-item handle. Content is loaded lazily from
// the archive via the owning Book.
type Chapter struct {
	Title  string
	Href   string
	ID     string
	Linear bool

	book bookReader
}

// bookReader lets Chapter fetch its own content without exposing the full
// Book surface.
type bookReader interface {
	readResource(href string) ([]byte, error)
}

// CoverImage is the detected cover image of a book.
type CoverImage struct {
	Path      string
	MediaType string
	Data      []byte
}
