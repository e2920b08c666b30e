package validate

import (
	"path"
	"strings"

	"github.com/muepub/muepub/pkg/navdoc"
	"github.com/muepub/muepub/pkg/opf"
	"github.com/muepub/muepub/pkg/xhtmltok"
	"github.com/muepub/muepub/pkg/zipreader"
)

// coreMediaTypes are renderable without a fallback.
var coreMediaTypes = map[string]bool{
	"application/xhtml+xml": true,
	"text/css":              true,
	"image/jpeg":            true,
	"image/png":             true,
	"image/gif":             true,
	"image/svg+xml":         true,
	"application/x-dtbncx+xml": true,
}

// Validate runs every structural check against an already-opened archive
// and returns the accumulated diagnostics. It never itself returns an
// error: unreadable/unparseable structure is reported as an Error
// diagnostic and subsequent checks that depend on it are skipped.
func Validate(zr *zipreader.Reader) *Report {
	r := &Report{}

	rootfilePath, ok := checkContainer(zr, r)
	if !ok {
		return r
	}

	pkg, opfDir, ok := checkPackageDocument(zr, r, rootfilePath)
	if !ok {
		return r
	}

	checkManifest(zr, r, pkg, opfDir)
	checkSpine(r, pkg)
	checkNavigation(zr, r, pkg, opfDir)
	checkEncryptionSidecars(zr, r)
	checkContentFrontmatter(zr, r, pkg, opfDir)

	return r
}

func readEntry(zr *zipreader.Reader, name string) ([]byte, bool) {
	e, ok := zr.Lookup(name)
	if !ok {
		return nil, false
	}
	buf := make([]byte, e.UncompressedSize)
	n, err := zr.ReadInto(e, buf)
	if err != nil {
		return nil, false
	}
	return buf[:n], true
}

func checkContainer(zr *zipreader.Reader, r *Report) (string, bool) {
	if _, ok := zr.Lookup("mimetype"); !ok {
		r.errorf("OCF-001", "4.E.1", `add a "mimetype" entry as the first, uncompressed archive entry`,
			"mimetype", "", "archive has no mimetype entry")
	} else if err := zr.ValidateMimetype(); err != nil {
		r.errorf("OCF-002", "4.E.1", `mimetype entry must be exactly "application/epub+zip"`,
			"mimetype", "", "mimetype entry is invalid: %v", err)
	}

	data, ok := readEntry(zr, "META-INF/container.xml")
	if !ok {
		r.errorf("OCF-010", "4.E.2", "add META-INF/container.xml with a usable <rootfile>",
			"META-INF/container.xml", "", "container.xml is missing")
		return "", false
	}
	rootfilePath, err := opf.ParseContainer(data)
	if err != nil {
		r.errorf("OCF-011", "4.E.2", "ensure the first <rootfile> declares a full-path attribute",
			"META-INF/container.xml", "", "container.xml declares no usable rootfile: %v", err)
		return "", false
	}
	return rootfilePath, true
}

func checkPackageDocument(zr *zipreader.Reader, r *Report, rootfilePath string) (*opf.Package, string, bool) {
	data, ok := readEntry(zr, rootfilePath)
	if !ok {
		r.errorf("OPF-001", "4.E.3", "ensure the rootfile path matches an archive entry",
			rootfilePath, "", "package document entry %q is missing", rootfilePath)
		return nil, "", false
	}
	pkg, err := opf.ParsePackage(data, opf.DefaultLimits())
	if err != nil {
		r.errorf("OPF-002", "4.E.3", "fix the package document's XML", rootfilePath, "", "package document failed to parse: %v", err)
		return nil, "", false
	}
	return pkg, path.Dir(rootfilePath), true
}

func resolvePackagePath(opfDir, href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if opfDir == "." || opfDir == "" {
		return path.Clean(href)
	}
	return path.Clean(path.Join(opfDir, href))
}

func checkManifest(zr *zipreader.Reader, r *Report, pkg *opf.Package, opfDir string) {
	seenIDs := make(map[string]bool)
	seenHrefs := make(map[string]bool)

	for _, m := range pkg.Manifest {
		if m.ID == "" {
			r.errorf("MAN-001", "4.E.4", "give every manifest item a non-empty id", m.Href, "", "manifest item has an empty id")
		} else if seenIDs[m.ID] {
			r.errorf("MAN-001", "4.E.4", "manifest ids must be unique", m.Href, m.ID, "duplicate manifest id %q", m.ID)
		}
		seenIDs[m.ID] = true

		if m.Href == "" {
			r.errorf("MAN-002", "4.E.4", "give every manifest item a non-empty href", "", m.ID, "manifest item %q has an empty href", m.ID)
		} else if seenHrefs[m.Href] {
			r.warnf("MAN-002", "4.E.4", "avoid referencing the same resource from two manifest items", m.Href, m.ID, "duplicate manifest href %q", m.Href)
		}
		seenHrefs[m.Href] = true

		if m.MediaType == "" {
			r.errorf("MAN-003", "4.E.4", "declare a media-type for every manifest item", m.Href, m.ID, "manifest item %q has no media-type", m.ID)
		}

		if m.Href != "" {
			resolved := resolvePackagePath(opfDir, m.Href)
			if _, ok := zr.Lookup(resolved); !ok {
				r.errorf("MAN-004", "4.E.4", "point every manifest href at an entry that exists in the archive",
					m.Href, m.ID, "manifest href %q does not resolve to an archive entry", m.Href)
			}
		}

		if m.MediaType != "" && !coreMediaTypes[m.MediaType] && m.Fallback == "" {
			r.warnf("MAN-005", "4.E.5", "add a fallback item for foreign media types",
				m.Href, m.ID, "manifest item %q has foreign media type %q with no fallback", m.ID, m.MediaType)
		}
	}

	for _, m := range pkg.Manifest {
		if m.Fallback == "" {
			continue
		}
		checkFallbackChain(r, pkg, m.ID, m.Fallback, map[string]bool{m.ID: true})
	}
}

func checkFallbackChain(r *Report, pkg *opf.Package, originID, fallbackID string, visited map[string]bool) {
	target, ok := pkg.ManifestByID(fallbackID)
	if !ok {
		r.errorf("MAN-006", "4.E.5", "point fallback at an existing manifest id", "", originID,
			"manifest item %q has a fallback %q that does not exist", originID, fallbackID)
		return
	}
	if visited[fallbackID] {
		r.errorf("MAN-007", "4.E.5", "break the fallback cycle", "", originID,
			"manifest item %q has a fallback chain that cycles back to %q", originID, fallbackID)
		return
	}
	visited[fallbackID] = true
	if target.Fallback != "" {
		checkFallbackChain(r, pkg, originID, target.Fallback, visited)
	}
}

func checkSpine(r *Report, pkg *opf.Package) {
	if len(pkg.Spine) == 0 {
		r.warnf("SPN-001", "4.E.6", "add at least one <itemref> to the spine", "", "", "spine is empty")
	}
	for _, s := range pkg.Spine {
		m, ok := pkg.ManifestByID(s.IDRef)
		if !ok {
			r.errorf("SPN-002", "4.E.6", "reference only manifest ids from the spine", "", s.IDRef,
				"spine itemref %q does not resolve to a manifest item", s.IDRef)
			continue
		}
		if m.MediaType != "" && m.MediaType != "application/xhtml+xml" {
			r.warnf("SPN-003", "4.E.6", "spine items are normally XHTML content documents", m.Href, s.IDRef,
				"spine itemref %q has non-XHTML media type %q", s.IDRef, m.MediaType)
		}
	}
}

func checkNavigation(zr *zipreader.Reader, r *Report, pkg *opf.Package, opfDir string) {
	var navItem opf.ManifestItem
	var hasNavItem bool
	for _, m := range pkg.Manifest {
		if m.HasProperty("nav") {
			navItem, hasNavItem = m, true
			break
		}
	}

	switch {
	case hasNavItem:
		data, ok := readEntry(zr, resolvePackagePath(opfDir, navItem.Href))
		if !ok {
			r.errorf("NAV-001", "4.E.7", "ensure the nav document entry exists in the archive", navItem.Href, navItem.ID,
				"navigation document %q is unreachable", navItem.Href)
			return
		}
		if _, err := navdoc.ParseNav(data); err != nil {
			r.errorf("NAV-001", "4.E.7", "fix the nav document's markup", navItem.Href, navItem.ID,
				"navigation document %q failed to parse: %v", navItem.Href, err)
		}

	case pkg.SpineToc != "":
		tocItem, ok := pkg.ManifestByID(pkg.SpineToc)
		if !ok {
			r.errorf("NAV-002", "4.E.7", `spine toc must reference a manifest id`, "", pkg.SpineToc,
				"spine toc %q does not resolve to a manifest item", pkg.SpineToc)
			return
		}
		data, ok := readEntry(zr, resolvePackagePath(opfDir, tocItem.Href))
		if !ok {
			r.errorf("NAV-002", "4.E.7", "ensure the NCX entry exists in the archive", tocItem.Href, tocItem.ID,
				"NCX document %q is unreachable", tocItem.Href)
			return
		}
		if _, err := navdoc.ParseNCX(data); err != nil {
			r.errorf("NAV-002", "4.E.7", "fix the NCX document's markup", tocItem.Href, tocItem.ID,
				"NCX document %q failed to parse: %v", tocItem.Href, err)
		}

	default:
		r.warnf("NAV-003", "4.E.7", "add an EPUB3 nav document or an EPUB2 NCX", "", "", "no navigation document declared")
	}
}

func checkEncryptionSidecars(zr *zipreader.Reader, r *Report) {
	for _, name := range []string{"META-INF/encryption.xml", "META-INF/rights.xml"} {
		data, ok := readEntry(zr, name)
		if !ok {
			continue
		}
		refs, err := cipherReferences(data)
		if err != nil {
			r.errorf("ENC-001", "4.E.8", "fix the sidecar's XML", name, "", "%s failed to parse: %v", name, err)
			continue
		}
		for _, ref := range refs {
			if _, ok := zr.Lookup(ref); !ok {
				r.errorf("ENCRYPTION_REFERENCE_MISSING", "4.E.8", "point every CipherReference at an existing archive entry", name, ref,
					"%s references missing entry %q", name, ref)
			}
		}
	}
}

// gutenbergPatterns are case-insensitive substrings that alone indicate a
// Project Gutenberg boilerplate page.
var gutenbergPatterns = []string{
	"project gutenberg license",
	"gutenberg.org/license",
	"start of the project gutenberg license",
	"end of the project gutenberg license",
	"start of this project gutenberg ebook",
	"end of this project gutenberg ebook",
}

// gutenbergComboPatterns are pairs of substrings that together (both
// present, case-insensitive) indicate Gutenberg boilerplate.
var gutenbergComboPatterns = [][2]string{
	{"project gutenberg", "terms of use"},
	{"full license", "gutenberg"},
}

// checkContentFrontmatter flags spine chapters whose text reads as Project
// Gutenberg license boilerplate rather than book content. This is purely
// informational: such a chapter is not structurally invalid, so it is
// reported at Info severity rather than Warning or Error.
func checkContentFrontmatter(zr *zipreader.Reader, r *Report, pkg *opf.Package, opfDir string) {
	for _, s := range pkg.Spine {
		m, ok := pkg.ManifestByID(s.IDRef)
		if !ok || m.MediaType != "application/xhtml+xml" {
			continue
		}
		data, ok := readEntry(zr, resolvePackagePath(opfDir, m.Href))
		if !ok {
			continue
		}
		if isGutenbergBoilerplate(data) {
			r.infof("CONTENT-FRONTMATTER", "8.I", "no action required; informational only", m.Href, s.IDRef,
				"spine item %q reads as Project Gutenberg license boilerplate", s.IDRef)
		}
	}
}

// isGutenbergBoilerplate extracts a chapter's plain text and tests it
// against the Gutenberg patterns. Tokenizer failure falls back to a raw
// lowercased scan so a malformed chapter still gets a best-effort check
// rather than silently skipping it.
func isGutenbergBoilerplate(data []byte) bool {
	text, err := extractPlainText(data)
	if err != nil {
		text = strings.ToLower(string(data))
	} else {
		text = strings.ToLower(text)
	}

	for _, pat := range gutenbergPatterns {
		if strings.Contains(text, pat) {
			return true
		}
	}
	for _, combo := range gutenbergComboPatterns {
		if strings.Contains(text, combo[0]) && strings.Contains(text, combo[1]) {
			return true
		}
	}
	return false
}

// extractPlainText collapses a chapter's XHTML down to its text content,
// joining its text tokens with single spaces. It is intentionally minimal
// compared to the façade's chapter text extraction: this package cannot
// import the root module, so it reads tokens directly off pkg/xhtmltok
// rather than sharing that logic.
func extractPlainText(data []byte) (string, error) {
	tz := xhtmltok.NewTokenizer(data)
	var sb strings.Builder
	for {
		tok, err := tz.Next()
		if err != nil {
			return "", err
		}
		if tok.Kind == xhtmltok.EOF {
			break
		}
		if tok.Kind == xhtmltok.Text {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(tok.Text)
		}
	}
	return sb.String(), nil
}
