package muepub

import (
	"strings"

	"github.com/muepub/muepub/pkg/xhtmltok"
)

// Cover detects the book's cover image, trying in order: the manifest
// cover-image property (or legacy EPUB2 meta, both resolved by
// [opf.Package.CoverItem]), a guide reference of type "cover", and finally
// the first image referenced by the first spine chapter.
func (b *Book) Cover() (CoverImage, error) {
	if item, ok := b.pkg.CoverItem(); ok {
		return b.loadCover(b.resourcePath(item.Href), item.MediaType)
	}

	for _, g := range b.pkg.Guide {
		if !strings.EqualFold(g.Type, "cover") {
			continue
		}
		if src, ok := b.firstImageIn(b.resourcePath(g.Href)); ok {
			if mt, ok := b.mediaTypeFor(src); ok {
				return b.loadCover(src, mt)
			}
		}
	}

	if len(b.spine) > 0 {
		if src, ok := b.firstImageIn(b.resourcePath(b.spine[0].Href)); ok {
			if mt, ok := b.mediaTypeFor(src); ok {
				return b.loadCover(src, mt)
			}
		}
	}

	return CoverImage{}, errInvalid("no cover image found", nil)
}

func (b *Book) loadCover(resolvedPath, mediaType string) (CoverImage, error) {
	data, ok := b.readEntry(resolvedPath)
	if !ok {
		return CoverImage{}, errIO("cover resource not found: "+resolvedPath, nil)
	}
	return CoverImage{Path: resolvedPath, MediaType: mediaType, Data: data}, nil
}

func (b *Book) mediaTypeFor(resolvedPath string) (string, bool) {
	for _, m := range b.pkg.Manifest {
		if b.resourcePath(m.Href) == resolvedPath {
			return m.MediaType, true
		}
	}
	return "", false
}

// firstImageIn tokenizes the XHTML entry at resolvedPath and returns the
// archive-resolved path of the first Image token's src, if any.
func (b *Book) firstImageIn(resolvedPath string) (string, bool) {
	data, ok := b.readEntry(resolvedPath)
	if !ok {
		return "", false
	}
	tok := xhtmltok.NewBoundedTokenizer(stripBOM(data), xhtmltok.DefaultLimits())
	for {
		t, err := tok.Next()
		if err != nil || t.Kind == xhtmltok.EOF {
			return "", false
		}
		if t.Kind == xhtmltok.Image && t.Src != "" {
			if resolved := resolveRelativePath(resolvedPath, t.Src); resolved != "" {
				return resolved, true
			}
			return "", false
		}
	}
}
