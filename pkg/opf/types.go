// Package opf parses the OCF container pointer (META-INF/container.xml) and
// the OPF package document it references: metadata, manifest, spine, and
// guide. Parsing streams through pkg/xmlreader rather than building a DOM,
// and every collection is capped by a Limits value so a hostile or
// malformed document cannot force unbounded memory growth.
package opf

// ManifestItem is a single <item> entry in the package manifest.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string // space-separated EPUB3 "properties" attribute, split
	Fallback   string
}

// HasProperty reports whether the manifest item declares the given
// EPUB3 property (e.g. "cover-image", "nav").
func (m ManifestItem) HasProperty(name string) bool {
	for _, p := range m.Properties {
		if p == name {
			return true
		}
	}
	return false
}

// SpineItemRef is a single <itemref> entry in the spine.
type SpineItemRef struct {
	IDRef  string
	ID     string
	Linear bool
}

// GuideReference is a single <reference> entry in the optional EPUB2 guide.
type GuideReference struct {
	Type  string
	Title string
	Href  string
}

// Creator is a dc:creator (or dc:contributor) entry with its OPF role and
// file-as attributes, when present. ID is the element's EPUB3 xml:id, used
// only to resolve <meta refines="#id"> entries during parsing; callers
// outside this package generally don't need it.
type Creator struct {
	Name   string
	FileAs string
	Role   string
	ID     string
}

// Identifier is a dc:identifier entry.
type Identifier struct {
	Value  string
	Scheme string
	ID     string
}

// Metadata holds the Dublin Core and EPUB3 meta fields collected from the
// package document.
type Metadata struct {
	Titles          []string
	Creators        []Creator
	Contributors    []Creator
	Languages       []string
	Identifiers     []Identifier
	Publisher       string
	Date            string
	Description     string
	Subjects        []string
	Rights          string
	Source          string
	Modified        string // dcterms:modified meta value
	RenditionLayout string // rendition:layout meta value
}

// Package is the parsed form of the OPF package document.
type Package struct {
	Version          string
	UniqueIdentifier string
	Metadata         Metadata
	Manifest         []ManifestItem
	Spine            []SpineItemRef
	SpineToc         string // spine "toc" attribute, for NCX fallback
	Guide            []GuideReference
	LegacyCoverID    string // manifest id from EPUB2 <meta name="cover" content="id"/>
}

// ManifestByID returns the manifest item with the given id, if any.
func (p *Package) ManifestByID(id string) (ManifestItem, bool) {
	for _, m := range p.Manifest {
		if m.ID == id {
			return m, true
		}
	}
	return ManifestItem{}, false
}

// CoverItem returns the manifest item marked as the cover image, preferring
// the EPUB3 "cover-image" property and falling back to the EPUB2
// <meta name="cover" content="id"/> convention recorded during parsing.
func (p *Package) CoverItem() (ManifestItem, bool) {
	for _, m := range p.Manifest {
		if m.HasProperty("cover-image") {
			return m, true
		}
	}
	if p.LegacyCoverID != "" {
		return p.ManifestByID(p.LegacyCoverID)
	}
	return ManifestItem{}, false
}

// Limits bounds how many elements of each kind the parser will collect.
type Limits struct {
	MaxManifestItems int `validate:"required,gt=0"`
	MaxSpineItemRefs int `validate:"required,gt=0"`
	MaxGuideRefs     int `validate:"required,gt=0"`
	MaxSubjects      int `validate:"required,gt=0"`
	// Strict turns exceeding a limit into a hard error instead of
	// truncating the collection and continuing.
	Strict bool
}

// DefaultLimits matches the caps named in the package document spec: 1024
// manifest items, 256 itemrefs, 64 guide references, 64 subjects.
func DefaultLimits() Limits {
	return Limits{
		MaxManifestItems: 1024,
		MaxSpineItemRefs: 256,
		MaxGuideRefs:     64,
		MaxSubjects:      64,
	}
}
