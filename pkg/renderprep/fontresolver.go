package renderprep

import (
	"fmt"
	"strings"

	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// FaceDescriptor identifies a font face by its typographic coordinates.
type FaceDescriptor struct {
	Family string
	Weight int // CSS-style weight, 100..900
	Italic bool
	Href   string // chapter-relative path to the embedded font resource
}

func normalizeFamily(f string) string { return strings.ToLower(strings.TrimSpace(f)) }

func (d FaceDescriptor) key() string {
	style := "r"
	if d.Italic {
		style = "i"
	}
	return fmt.Sprintf("%s|%d|%s|%s", normalizeFamily(d.Family), d.Weight, style, strings.ToLower(d.Href))
}

// FaceLoader fetches the raw bytes of an embedded font resource identified
// by its chapter-relative href.
type FaceLoader func(href string) ([]byte, error)

// registeredFace is a face accepted into the library, in registration order.
type registeredFace struct {
	desc       FaceDescriptor
	order      int
	validFamily string // family/weight/style extracted from the embedded face, if validated
	validWeight int
	validItalic bool
	validated  bool
}

// FontLibrary deduplicates and bounds the font faces registered for a
// chapter, and resolves a requested face to the closest registered one.
// Embedded-face validation (extracting the actual family/weight/style from
// the font's own tables with golang.org/x/image/font/opentype) runs for
// every face whose bytes a loader supplies; the recovered values are kept
// on the registered face only, and layout measurement never depends on the
// parsed face.
type FontLibrary struct {
	limits    FontLimits
	faces     map[string]*registeredFace
	order     []*registeredFace
	totalBytes int64
}

// NewFontLibrary creates an empty library bounded by limits.
func NewFontLibrary(limits FontLimits) *FontLibrary {
	return &FontLibrary{limits: limits, faces: make(map[string]*registeredFace)}
}

// RegisterFace adds a face to the library, loading and optionally validating
// its bytes via loader. Duplicate (family, weight, style, href) tuples are
// silently deduplicated. The returned font id starts at 1 and counts up in
// registration order; id 0 is left to the policy default family that
// Resolve falls back to. Returns a FontLimitExceeded error once MaxFaces,
// MaxBytesPerFace, or MaxTotalBytes is exceeded.
func (lib *FontLibrary) RegisterFace(desc FaceDescriptor, loader FaceLoader) (int, error) {
	k := desc.key()
	if existing, ok := lib.faces[k]; ok {
		return existing.order, nil
	}
	if len(lib.order) >= lib.limits.MaxFaces {
		return 0, &Error{Kind: FontLimitExceeded, Reason: "face count exceeds configured limit"}
	}

	rf := &registeredFace{desc: desc, order: len(lib.order) + 1}

	if loader != nil {
		data, err := loader(desc.Href)
		if err != nil {
			return 0, &Error{Kind: FontLoadFailed, Reason: "loading " + desc.Href, Err: err}
		}
		if int64(len(data)) > lib.limits.MaxBytesPerFace {
			return 0, &Error{Kind: FontLimitExceeded, Reason: "face " + desc.Href + " exceeds per-face byte limit"}
		}
		if lib.totalBytes+int64(len(data)) > lib.limits.MaxTotalBytes {
			return 0, &Error{Kind: FontLimitExceeded, Reason: "registering " + desc.Href + " exceeds total font byte budget"}
		}
		lib.totalBytes += int64(len(data))

		if family, weight, italic, ok := validateFace(data); ok {
			rf.validated = true
			rf.validFamily, rf.validWeight, rf.validItalic = family, weight, italic
		}
	}

	lib.faces[k] = rf
	lib.order = append(lib.order, rf)
	return rf.order, nil
}

// validateFace parses an embedded font's own tables to recover its family,
// weight, and italic flag. RegisterFace records them on the registered
// face; Resolve and ResolveTrace do not use them.
func validateFace(data []byte) (family string, weight int, italic bool, ok bool) {
	f, err := opentype.Parse(data)
	if err != nil {
		return "", 0, false, false
	}
	var buf sfnt.Buffer
	family, err = f.Name(&buf, sfnt.NameIDFamily)
	if err != nil || family == "" {
		return "", 400, false, true
	}
	subfamily, _ := f.Name(&buf, sfnt.NameIDSubfamily)
	lower := strings.ToLower(family + " " + subfamily)
	weight = 400
	if strings.Contains(lower, "bold") {
		weight = 700
	}
	italic = strings.Contains(lower, "italic") || strings.Contains(lower, "oblique")
	return family, weight, italic, true
}

// ResolveTrace explains why a particular face was chosen for a request.
type ResolveTrace struct {
	Score             int
	MissingGlyphRisk  bool
	FellBackToDefault bool
}

// Resolve picks the best-matching registered face with the requested
// family, scoring by |registered.weight - requested.weight| plus a
// style-mismatch penalty of 1000 (so italic intent always dominates weight
// distance). Ties break by registration order. If no registered face has
// the requested family, Resolve does not substitute a face from a
// different family: it falls back to font id 0 (the policy default
// family) and flags a missing-glyph risk when the run's text is
// non-ASCII.
func (lib *FontLibrary) Resolve(desc FaceDescriptor, text string) (int, ResolveTrace) {
	best := -1
	bestScore := 1 << 30
	matched := false
	fam := normalizeFamily(desc.Family)

	for _, rf := range lib.order {
		if normalizeFamily(rf.desc.Family) != fam {
			continue
		}
		score := abs(rf.desc.Weight - desc.Weight)
		if rf.desc.Italic != desc.Italic {
			score += 1000
		}
		if !matched || score < bestScore {
			best, bestScore, matched = rf.order, score, true
		}
	}

	if !matched {
		return 0, ResolveTrace{FellBackToDefault: true, MissingGlyphRisk: !isASCII(text)}
	}
	return best, ResolveTrace{Score: bestScore}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}
