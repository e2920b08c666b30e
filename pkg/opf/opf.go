package opf

import (
	"sort"
	"strconv"
	"strings"

	"github.com/muepub/muepub/pkg/xmlreader"
)

// titleEntry pairs a raw dc:title value with its xml:id, so display-seq
// refines can be resolved after the whole document has been scanned.
type titleEntry struct {
	value string
	id    string
}

// refineMeta is a <meta refines="#id" property="..."> entry.
type refineMeta struct {
	target   string // target element id, "#" stripped
	property string
	value    string
}

// ParsePackage streams the OPF package document, collecting metadata,
// manifest, spine, and guide entries bounded by limits. A legacy cover id
// found in an EPUB2 <meta name="cover" content="id"/> element is stored in
// the returned Package's LegacyCoverID for CoverItem to consult.
func ParsePackage(raw []byte, limits Limits) (*Package, error) {
	r := xmlreader.NewReader(raw)
	p := &Package{}

	var (
		section   string // "", "metadata", "manifest", "spine", "guide"
		leaf      string
		leafAttrs map[string]string
		leafText  strings.Builder

		titles  []titleEntry
		refines []refineMeta
	)

	flushLeaf := func() error {
		text := strings.TrimSpace(leafText.String())
		switch section {
		case "metadata":
			switch leaf {
			case "title":
				titles = append(titles, titleEntry{value: text, id: leafAttrs["id"]})
			case "creator":
				p.Metadata.Creators = append(p.Metadata.Creators, Creator{
					Name: text, FileAs: leafAttrs["file-as"], Role: leafAttrs["role"], ID: leafAttrs["id"],
				})
			case "contributor":
				p.Metadata.Contributors = append(p.Metadata.Contributors, Creator{
					Name: text, FileAs: leafAttrs["file-as"], Role: leafAttrs["role"], ID: leafAttrs["id"],
				})
			case "language":
				p.Metadata.Languages = append(p.Metadata.Languages, text)
			case "identifier":
				p.Metadata.Identifiers = append(p.Metadata.Identifiers, Identifier{
					Value: text, Scheme: leafAttrs["scheme"], ID: leafAttrs["id"],
				})
			case "publisher":
				p.Metadata.Publisher = text
			case "date":
				p.Metadata.Date = text
			case "description":
				p.Metadata.Description = text
			case "subject":
				if limits.Strict && len(p.Metadata.Subjects) >= limits.MaxSubjects {
					return newErr(LimitExceeded, "dc:subject count exceeds limit", nil)
				}
				if len(p.Metadata.Subjects) < limits.MaxSubjects {
					p.Metadata.Subjects = append(p.Metadata.Subjects, text)
				}
			case "rights":
				p.Metadata.Rights = text
			case "source":
				p.Metadata.Source = text
			case "meta":
				applyMeta(p, leafAttrs, text)
				if target, ok := leafAttrs["refines"]; ok && strings.HasPrefix(target, "#") {
					refines = append(refines, refineMeta{
						target: target[1:], property: leafAttrs["property"], value: text,
					})
				}
			}
		}
		leaf = ""
		leafAttrs = nil
		leafText.Reset()
		return nil
	}

	for {
		ev, err := r.Next()
		if err != nil {
			return nil, newErr(MalformedXML, "package document", err)
		}
		if ev.Kind == xmlreader.EventEOF {
			break
		}

		switch ev.Kind {
		case xmlreader.EventText:
			if leaf != "" {
				leafText.WriteString(ev.Text)
			}
		case xmlreader.EventStartElement, xmlreader.EventSelfClosing:
			switch {
			case ev.Name == "package":
				p.Version, _ = ev.Attr("version")
				p.UniqueIdentifier, _ = ev.Attr("unique-identifier")
			case section == "" && (ev.Name == "metadata" || ev.Name == "manifest" || ev.Name == "spine" || ev.Name == "guide"):
				section = ev.Name
				if ev.Name == "spine" {
					p.SpineToc, _ = ev.Attr("toc")
				}
				if ev.Kind == xmlreader.EventSelfClosing {
					section = ""
				}
			case section == "metadata":
				leaf = ev.Name
				leafAttrs = attrMap(ev)
				leafText.Reset()
				if ev.Kind == xmlreader.EventSelfClosing {
					if err := flushLeaf(); err != nil {
						return nil, err
					}
				}
			case section == "manifest" && ev.Name == "item":
				if limits.Strict && len(p.Manifest) >= limits.MaxManifestItems {
					return nil, newErr(LimitExceeded, "manifest item count exceeds limit", nil)
				}
				if len(p.Manifest) < limits.MaxManifestItems {
					href, _ := ev.Attr("href")
					mediaType, _ := ev.Attr("media-type")
					props, _ := ev.Attr("properties")
					id, _ := ev.Attr("id")
					fallback, _ := ev.Attr("fallback")
					p.Manifest = append(p.Manifest, ManifestItem{
						ID: id, Href: href, MediaType: mediaType,
						Properties: strings.Fields(props), Fallback: fallback,
					})
				}
			case section == "spine" && ev.Name == "itemref":
				if limits.Strict && len(p.Spine) >= limits.MaxSpineItemRefs {
					return nil, newErr(LimitExceeded, "spine itemref count exceeds limit", nil)
				}
				if len(p.Spine) < limits.MaxSpineItemRefs {
					idref, _ := ev.Attr("idref")
					id, _ := ev.Attr("id")
					linear := true
					if l, ok := ev.Attr("linear"); ok && l == "no" {
						linear = false
					}
					p.Spine = append(p.Spine, SpineItemRef{IDRef: idref, ID: id, Linear: linear})
				}
			case section == "guide" && ev.Name == "reference":
				if limits.Strict && len(p.Guide) >= limits.MaxGuideRefs {
					return nil, newErr(LimitExceeded, "guide reference count exceeds limit", nil)
				}
				if len(p.Guide) < limits.MaxGuideRefs {
					typ, _ := ev.Attr("type")
					title, _ := ev.Attr("title")
					href, _ := ev.Attr("href")
					p.Guide = append(p.Guide, GuideReference{Type: typ, Title: title, Href: href})
				}
			}
		case xmlreader.EventEndElement:
			switch {
			case section == "metadata" && leaf != "" && ev.Name == leaf:
				if err := flushLeaf(); err != nil {
					return nil, err
				}
			case ev.Name == section:
				section = ""
			}
		}
	}

	resolveRefines(p, titles, refines)
	return p, nil
}

// resolveRefines applies EPUB3 <meta refines="#id"> metadata onto the
// package's already-collected metadata: title display-seq ordering,
// creator/contributor file-as and role, and identifier scheme. EPUB2
// documents have no refines metas, so this is a no-op for them.
func resolveRefines(p *Package, titles []titleEntry, refines []refineMeta) {
	byTarget := make(map[string][]refineMeta, len(refines))
	for _, r := range refines {
		byTarget[r.target] = append(byTarget[r.target], r)
	}
	find := func(id, property string) (string, bool) {
		for _, r := range byTarget[id] {
			if r.property != property {
				continue
			}
			if v := strings.TrimSpace(r.value); v != "" {
				return v, true
			}
		}
		return "", false
	}

	p.Metadata.Titles = resolveTitleOrder(titles, find)
	resolveCreatorRefines(p.Metadata.Creators, find)
	resolveCreatorRefines(p.Metadata.Contributors, find)

	for i := range p.Metadata.Identifiers {
		id := &p.Metadata.Identifiers[i]
		if id.Scheme == "" && id.ID != "" {
			if s, ok := find(id.ID, "identifier-type"); ok {
				id.Scheme = s
			}
		}
	}
}

func resolveCreatorRefines(creators []Creator, find func(id, property string) (string, bool)) {
	for i := range creators {
		c := &creators[i]
		if c.ID == "" {
			continue
		}
		if c.FileAs == "" {
			if fa, ok := find(c.ID, "file-as"); ok {
				c.FileAs = fa
			}
		}
		if c.Role == "" {
			if role, ok := find(c.ID, "role"); ok {
				c.Role = role
			}
		}
	}
}

// resolveTitleOrder sorts titles by EPUB3 display-seq refines when at least
// one title carries one, leaving document order untouched otherwise.
// Titles without a seq sort after titles with one, per display-seq's
// "lower values first" convention.
func resolveTitleOrder(titles []titleEntry, find func(id, property string) (string, bool)) []string {
	if len(titles) == 0 {
		return nil
	}

	type ordered struct {
		value string
		seq   int
		index int
	}

	entries := make([]ordered, 0, len(titles))
	hasSeq := false
	for i, t := range titles {
		v := strings.TrimSpace(t.value)
		if v == "" {
			continue
		}
		e := ordered{value: v, index: i}
		if t.id != "" {
			if seqStr, ok := find(t.id, "display-seq"); ok {
				if n, err := strconv.Atoi(seqStr); err == nil {
					e.seq = n
					hasSeq = true
				}
			}
		}
		entries = append(entries, e)
	}

	if hasSeq {
		sort.SliceStable(entries, func(i, j int) bool {
			si, sj := entries[i].seq, entries[j].seq
			if si == 0 && sj == 0 {
				return entries[i].index < entries[j].index
			}
			if si == 0 {
				return false
			}
			if sj == 0 {
				return true
			}
			return si < sj
		})
	}

	result := make([]string, len(entries))
	for i, e := range entries {
		result[i] = e.value
	}
	return result
}

func attrMap(ev xmlreader.Event) map[string]string {
	m := make(map[string]string, len(ev.Attrs))
	for _, a := range ev.Attrs {
		m[a.Name] = a.Value
	}
	return m
}

// applyMeta interprets a <meta> element under either the EPUB2
// name/content convention or the EPUB3 property/text-content convention.
func applyMeta(p *Package, attrs map[string]string, text string) {
	if name, ok := attrs["name"]; ok {
		if name == "cover" {
			p.LegacyCoverID = attrs["content"]
		}
		return
	}
	switch attrs["property"] {
	case "dcterms:modified":
		p.Metadata.Modified = text
	case "rendition:layout":
		p.Metadata.RenditionLayout = text
	}
}
