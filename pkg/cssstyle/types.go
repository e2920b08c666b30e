// Package cssstyle implements the small CSS subset an EPUB stylesheet is
// allowed to use: tag, class, and tag.class selectors, and a fixed set of
// typography-relevant declarations. There is no ecosystem CSS parser among
// the reference examples for this corpus's domain, so this package is a
// hand-rolled scanner in the same regexp/string-scanning idiom the pack
// uses for other lightweight text formats (see fb2encoding's declaration
// detection).
package cssstyle

// Selector matches elements by tag name, class, or both. An empty Tag
// matches any tag; an empty Class means no class is required.
type Selector struct {
	Tag   string
	Class string
}

// Matches reports whether the selector applies to an element with the
// given lowercased tag name and class list.
func (s Selector) Matches(tag string, classes []string) bool {
	if s.Tag != "" && s.Tag != tag {
		return false
	}
	if s.Class == "" {
		return true
	}
	for _, c := range classes {
		if c == s.Class {
			return true
		}
	}
	return false
}

// Declaration is the set of typography properties this subset understands.
// A nil/zero-value pointer field means the property was not set by this
// declaration; Merge only overrides fields that are actually set.
type Declaration struct {
	FontSizePx *float64
	FontSizeEm *float64

	FontFamily []string // comma-separated stack, quotes stripped

	FontWeightBold *bool
	FontStyleItalic *bool

	TextAlign *string // "left" | "center" | "right" | "justify"

	LineHeightPx         *float64
	LineHeightMultiplier *float64
	LineHeightNormal     bool // explicit "normal" (unset) was declared

	MarginTopPx    *float64
	MarginBottomPx *float64
}

// Merge overlays the set fields of src onto dst, later declarations
// overriding earlier ones.
func (dst *Declaration) Merge(src Declaration) {
	if src.FontSizePx != nil {
		dst.FontSizePx = src.FontSizePx
		dst.FontSizeEm = nil
	}
	if src.FontSizeEm != nil {
		dst.FontSizeEm = src.FontSizeEm
		dst.FontSizePx = nil
	}
	if src.FontFamily != nil {
		dst.FontFamily = src.FontFamily
	}
	if src.FontWeightBold != nil {
		dst.FontWeightBold = src.FontWeightBold
	}
	if src.FontStyleItalic != nil {
		dst.FontStyleItalic = src.FontStyleItalic
	}
	if src.TextAlign != nil {
		dst.TextAlign = src.TextAlign
	}
	if src.LineHeightPx != nil {
		dst.LineHeightPx = src.LineHeightPx
		dst.LineHeightMultiplier = nil
		dst.LineHeightNormal = false
	}
	if src.LineHeightMultiplier != nil {
		dst.LineHeightMultiplier = src.LineHeightMultiplier
		dst.LineHeightPx = nil
		dst.LineHeightNormal = false
	}
	if src.LineHeightNormal {
		dst.LineHeightNormal = true
		dst.LineHeightPx = nil
		dst.LineHeightMultiplier = nil
	}
	if src.MarginTopPx != nil {
		dst.MarginTopPx = src.MarginTopPx
	}
	if src.MarginBottomPx != nil {
		dst.MarginBottomPx = src.MarginBottomPx
	}
}

// Rule is a single selector/declaration pair, in source order.
type Rule struct {
	Selector Selector
	Decl     Declaration
}

// Sheet is a parsed stylesheet: its Rules are kept in document order so
// cascade resolution can apply them in the order they were declared.
type Sheet struct {
	Rules []Rule
}

// Limits bounds how much of a stylesheet is parsed.
type Limits struct {
	MaxCSSBytes  int `validate:"required,gt=0"`
	MaxSelectors int `validate:"required,gt=0"`
}

// DefaultLimits is generous enough for a typical EPUB chapter stylesheet.
func DefaultLimits() Limits {
	return Limits{MaxCSSBytes: 256 * 1024, MaxSelectors: 2048}
}

// Resolve computes the cascaded declaration for an element matching tag
// and classes, applying sheets in order (and each sheet's rules in document
// order), then merging inline last.
func Resolve(sheets []*Sheet, tag string, classes []string, inline *Declaration) Declaration {
	var out Declaration
	for _, sheet := range sheets {
		if sheet == nil {
			continue
		}
		for _, rule := range sheet.Rules {
			if rule.Selector.Matches(tag, classes) {
				out.Merge(rule.Decl)
			}
		}
	}
	if inline != nil {
		out.Merge(*inline)
	}
	return out
}
