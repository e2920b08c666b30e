package muepub

import (
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/muepub/muepub/pkg/navdoc"
	"github.com/muepub/muepub/pkg/opf"
	"github.com/muepub/muepub/pkg/validate"
	"github.com/muepub/muepub/pkg/xhtmltok"
	"github.com/muepub/muepub/pkg/zipreader"
)

// Book is the main entry point: a parsed, validated EPUB archive with
// lazily-loaded chapter content. A Book is not safe for concurrent use.
type Book struct {
	zr     *zipreader.Reader
	closer io.Closer

	opfPath string
	opfDir  string
	pkg     *opf.Package

	spine    []Chapter
	toc      []TOCItem
	landmark []TOCItem

	limits Limits
	report *validate.Report
}

// Option configures Open/NewReader.
type Option func(*openConfig)

type openConfig struct {
	limits Limits
	mode   validate.Mode
}

// WithLimits overrides the default bounded-memory limits.
func WithLimits(l Limits) Option {
	return func(c *openConfig) { c.limits = l }
}

// WithValidationMode selects strict or lenient structural validation.
// Strict mode causes Open/NewReader to fail if validation reports any
// error-severity diagnostic; lenient mode proceeds regardless.
func WithValidationMode(mode validate.Mode) Option {
	return func(c *openConfig) { c.mode = mode }
}

// Open opens an EPUB file at the given filesystem path.
func Open(filePath string, opts ...Option) (*Book, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errIO("open "+filePath, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errIO("stat "+filePath, err)
	}
	b, err := newBook(f, info.Size(), f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return b, nil
}

// NewReader opens an EPUB from a seekable source of known size. The caller
// retains ownership of r; Close does not touch it.
func NewReader(r io.ReaderAt, size int64, opts ...Option) (*Book, error) {
	return newBook(r, size, nil, opts...)
}

func newBook(r io.ReaderAt, size int64, closer io.Closer, opts ...Option) (*Book, error) {
	cfg := openConfig{limits: DefaultLimits(), mode: validate.Lenient}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.limits.Validate(); err != nil {
		return nil, err
	}

	zr, err := zipreader.Open(r, size, cfg.limits.Zip)
	if err != nil {
		return nil, errZip("open archive", err)
	}

	report := validate.Validate(zr)
	if verr := cfg.mode.Err(report); verr != nil {
		return nil, errInvalid("strict validation failed", verr)
	}

	b := &Book{zr: zr, closer: closer, limits: cfg.limits, report: report}
	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Book) load() error {
	containerData, ok := b.readEntry("META-INF/container.xml")
	if !ok {
		return errInvalid("missing META-INF/container.xml", nil)
	}
	rootfile, err := opf.ParseContainer(containerData)
	if err != nil {
		return errParse("container.xml", err)
	}
	b.opfPath = rootfile
	b.opfDir = path.Dir(rootfile)

	opfData, ok := b.readEntry(rootfile)
	if !ok {
		return errInvalid("package document entry missing: "+rootfile, nil)
	}
	pkg, err := opf.ParsePackage(opfData, opf.DefaultLimits())
	if err != nil {
		return errParse("package document", err)
	}
	b.pkg = pkg

	b.buildSpine()
	b.loadNavigation()
	return nil
}

// resourcePath resolves a manifest/spine href to an archive-internal path.
func (b *Book) resourcePath(href string) string {
	href = hrefWithoutFragment(href)
	if b.opfDir == "." || b.opfDir == "" {
		return path.Clean(href)
	}
	return path.Clean(path.Join(b.opfDir, href))
}

func (b *Book) readEntry(name string) ([]byte, bool) {
	e, ok := b.zr.Lookup(name)
	if !ok {
		return nil, false
	}
	buf := make([]byte, e.UncompressedSize)
	n, err := b.zr.ReadInto(e, buf)
	if err != nil {
		return nil, false
	}
	return buf[:n], true
}

func (b *Book) buildSpine() {
	chapters := make([]Chapter, 0, len(b.pkg.Spine))
	for _, s := range b.pkg.Spine {
		m, ok := b.pkg.ManifestByID(s.IDRef)
		if !ok {
			chapters = append(chapters, Chapter{ID: s.IDRef, Linear: s.Linear, book: b})
			continue
		}
		chapters = append(chapters, Chapter{
			ID:     m.ID,
			Href:   hrefWithoutFragment(m.Href),
			Linear: s.Linear,
			book:   b,
		})
	}
	b.spine = chapters
}

func (b *Book) loadNavigation() {
	var navItem opf.ManifestItem
	var hasNav bool
	for _, m := range b.pkg.Manifest {
		if m.HasProperty("nav") {
			navItem, hasNav = m, true
			break
		}
	}

	spineIndex := make(map[string]int, len(b.spine))
	for i, ch := range b.spine {
		spineIndex[ch.Href] = i
	}

	var doc *navdoc.Document
	navDir := "."
	if hasNav {
		navDir = path.Dir(hrefWithoutFragment(navItem.Href))
		if data, ok := b.readEntry(b.resourcePath(navItem.Href)); ok {
			if d, err := navdoc.ParseNav(data); err == nil {
				doc = d
			}
		}
	} else if b.pkg.SpineToc != "" {
		if tocItem, ok := b.pkg.ManifestByID(b.pkg.SpineToc); ok {
			navDir = path.Dir(hrefWithoutFragment(tocItem.Href))
			if data, ok := b.readEntry(b.resourcePath(tocItem.Href)); ok {
				if d, err := navdoc.ParseNCX(data); err == nil {
					doc = d
				}
			}
		}
	}

	if doc == nil {
		b.toc = []TOCItem{}
		return
	}

	b.toc = convertNavPoints(doc.TOC, navDir, spineIndex)
	b.landmark = convertNavPoints(doc.Landmarks, navDir, spineIndex)
	computeSpineRanges(b.toc, len(b.spine))
}

// convertNavPoints resolves each NavPoint's href relative to navDir (the
// package-relative directory the nav/NCX document itself lives in) into
// the same package-relative href space as Chapter.Href, then looks up its
// spine index.
func convertNavPoints(points []navdoc.NavPoint, navDir string, spineIndex map[string]int) []TOCItem {
	if len(points) == 0 {
		return nil
	}
	items := make([]TOCItem, 0, len(points))
	for _, p := range points {
		item := TOCItem{Title: strings.TrimSpace(p.Label), SpineIndex: -1, SpineEndIndex: -1}
		if p.Href != "" {
			base := hrefWithoutFragment(p.Href)
			var resolved string
			if navDir == "." || navDir == "" {
				resolved = path.Clean(base)
			} else {
				resolved = path.Clean(path.Join(navDir, base))
			}
			item.Href = resolved
			if frag := fragmentOf(p.Href); frag != "" {
				item.Href += "#" + frag
			}
			if idx, ok := spineIndex[resolved]; ok {
				item.SpineIndex = idx
			}
		}
		item.Children = convertNavPoints(p.Children, navDir, spineIndex)
		items = append(items, item)
	}
	return items
}

// computeSpineRanges sets SpineEndIndex so each entry covers
// spine[SpineIndex:SpineEndIndex], ordered by increasing SpineIndex.
func computeSpineRanges(items []TOCItem, spineLen int) {
	var flat []*TOCItem
	flattenTOCItems(&flat, items)

	seen := make(map[int]bool, len(flat))
	var indices []int
	for _, item := range flat {
		if item.SpineIndex >= 0 && !seen[item.SpineIndex] {
			seen[item.SpineIndex] = true
			indices = append(indices, item.SpineIndex)
		}
	}
	if len(indices) == 0 {
		return
	}
	sort.Ints(indices)

	endFor := make(map[int]int, len(indices))
	for i, idx := range indices {
		if i+1 < len(indices) {
			endFor[idx] = indices[i+1]
		} else {
			endFor[idx] = spineLen
		}
	}
	for _, item := range flat {
		if item.SpineIndex >= 0 {
			item.SpineEndIndex = endFor[item.SpineIndex]
		} else {
			item.SpineEndIndex = -1
		}
	}
}

func flattenTOCItems(flat *[]*TOCItem, items []TOCItem) {
	for i := range items {
		*flat = append(*flat, &items[i])
		if len(items[i].Children) > 0 {
			flattenTOCItems(flat, items[i].Children)
		}
	}
}

// Close releases the underlying file, if Open (not NewReader) created it.
// Close is idempotent.
func (b *Book) Close() error {
	if b.closer != nil {
		err := b.closer.Close()
		b.closer = nil
		return err
	}
	return nil
}

// ValidationReport returns the structural diagnostics collected when the
// book was opened.
func (b *Book) ValidationReport() *validate.Report {
	return b.report
}

// Metadata returns the book's Dublin Core / EPUB3 metadata.
func (b *Book) Metadata() Metadata {
	md := b.pkg.Metadata
	out := Metadata{
		Version:     b.pkg.Version,
		Titles:      append([]string(nil), md.Titles...),
		Language:    append([]string(nil), md.Languages...),
		Publisher:   md.Publisher,
		Date:        md.Date,
		Description: md.Description,
		Subjects:    append([]string(nil), md.Subjects...),
		Rights:      md.Rights,
		Source:      md.Source,
	}
	for _, c := range md.Creators {
		out.Authors = append(out.Authors, Author{Name: c.Name, FileAs: c.FileAs, Role: c.Role})
	}
	for _, id := range md.Identifiers {
		out.Identifiers = append(out.Identifiers, Identifier{Value: id.Value, Scheme: id.Scheme, ID: id.ID})
	}
	return out
}

// HasTOC reports whether a navigation document was found and parsed.
func (b *Book) HasTOC() bool { return len(b.toc) > 0 }

// TOC returns the table of contents as a tree.
func (b *Book) TOC() []TOCItem { return copyTOCItems(b.toc) }

// Landmarks returns the EPUB3 nav landmarks, or nil for EPUB2 books.
func (b *Book) Landmarks() []TOCItem { return copyTOCItems(b.landmark) }

func copyTOCItems(in []TOCItem) []TOCItem {
	if in == nil {
		return nil
	}
	out := make([]TOCItem, len(in))
	for i := range in {
		out[i] = in[i]
		out[i].Children = copyTOCItems(in[i].Children)
	}
	return out
}

// ChapterCount returns the number of spine items.
func (b *Book) ChapterCount() int { return len(b.spine) }

// Chapters returns the spine, in order, as chapter handles. Titles are
// filled in from the first matching TOC entry by href.
func (b *Book) Chapters() []Chapter {
	titleByHref := make(map[string]string)
	var assign func(items []TOCItem)
	assign = func(items []TOCItem) {
		for _, it := range items {
			href := hrefWithoutFragment(it.Href)
			if href != "" {
				if _, exists := titleByHref[href]; !exists {
					titleByHref[href] = it.Title
				}
			}
			assign(it.Children)
		}
	}
	assign(b.toc)

	out := make([]Chapter, len(b.spine))
	for i, ch := range b.spine {
		ch.Title = titleByHref[ch.Href]
		out[i] = ch
	}
	return out
}

// Chapter returns the chapter at the given spine index.
func (b *Book) Chapter(index int) (Chapter, error) {
	if index < 0 || index >= len(b.spine) {
		return Chapter{}, errChapterOutOfBounds(index, len(b.spine))
	}
	chapters := b.Chapters()
	return chapters[index], nil
}

// ChapterByIDRef returns the chapter whose manifest id matches idref.
func (b *Book) ChapterByIDRef(idref string) (Chapter, error) {
	for _, ch := range b.Chapters() {
		if ch.ID == idref {
			return ch, nil
		}
	}
	return Chapter{}, errManifestItemMissing(idref)
}

// ReadResource reads an archive resource by package-relative href. Any
// "#fragment" suffix is ignored.
func (b *Book) ReadResource(href string) ([]byte, error) {
	return b.readResource(href)
}

func (b *Book) readResource(href string) ([]byte, error) {
	resolved := b.resourcePath(href)
	data, ok := b.readEntry(resolved)
	if !ok {
		return nil, errIO("resource not found: "+resolved, nil)
	}
	return data, nil
}

// WriteResource streams an archive resource by package-relative href to w
// without materializing the whole entry in memory beyond scratch's size.
func (b *Book) WriteResource(href string, w io.Writer, scratch []byte) error {
	resolved := b.resourcePath(href)
	e, ok := b.zr.Lookup(resolved)
	if !ok {
		return errIO("resource not found: "+resolved, nil)
	}
	if err := b.zr.StreamTo(e, w, scratch); err != nil {
		return errIO("stream resource: "+resolved, err)
	}
	return nil
}

// Tokenize streams the structural token sequence for a chapter's raw XHTML.
func (b *Book) Tokenize(href string) (*xhtmltok.Tokenizer, error) {
	data, err := b.readRawXHTML(href)
	if err != nil {
		return nil, err
	}
	return xhtmltok.NewBoundedTokenizer(data, xhtmltok.DefaultLimits()), nil
}

func (b *Book) readRawXHTML(href string) ([]byte, error) {
	data, err := b.readResource(href)
	if err != nil {
		return nil, err
	}
	return stripBOM(data), nil
}
