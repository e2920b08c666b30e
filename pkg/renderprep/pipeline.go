package renderprep

import (
	"fmt"
	"strings"

	"github.com/muepub/muepub/pkg/cssstyle"
	"github.com/muepub/muepub/pkg/xhtmltok"
)

// ParseStylesheets parses every chapter stylesheet source under the same
// byte and selector-count limits.
func ParseStylesheets(cssSources []string, limits StyleLimits) ([]*cssstyle.Sheet, error) {
	cssLimits := cssstyle.Limits{MaxCSSBytes: limits.MaxCSSBytes, MaxSelectors: limits.MaxSelectors}
	sheets := make([]*cssstyle.Sheet, 0, len(cssSources))
	for _, src := range cssSources {
		sheet, err := cssstyle.ParseSheet(src, cssLimits)
		if err != nil {
			return nil, &Error{Kind: StyleLimitExceeded, Reason: "parsing chapter stylesheet", Err: err}
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// stackEntry is one open element on the cascade context stack. role is
// Body unless this element itself establishes one (p, h1..h6, li).
type stackEntry struct {
	tag          string
	classes      []string
	inline       *cssstyle.Declaration
	role         SemanticRole
	headingLevel int
	forceBold    bool
	forceItalic  bool
}

// Prepare walks a chapter's tokenized XHTML, resolving the CSS cascade plus
// font for every run of text, and returns the flat structural event stream.
// lib may be nil, in which case Run.FontID is left at its zero value and no
// font resolution trace is attached.
func Prepare(xhtml []byte, sheets []*cssstyle.Sheet, lib *FontLibrary, cfg Config) ([]Event, error) {
	tz := xhtmltok.NewTokenizer(xhtml)

	var events []Event
	var stack []stackEntry

	push := func(tag string, attrs map[string]string, role SemanticRole, level int, forceBold, forceItalic bool) {
		stack = append(stack, stackEntry{
			tag: tag, classes: classesFromAttrs(attrs), inline: inlineFromAttrs(attrs),
			role: role, headingLevel: level, forceBold: forceBold, forceItalic: forceItalic,
		})
	}
	pop := func() {
		if len(stack) > 0 {
			stack = stack[:len(stack)-1]
		}
	}

	for {
		tok, err := tz.Next()
		if err != nil {
			return nil, &Error{Kind: MalformedMarkup, Reason: "tokenizing chapter markup", Err: err}
		}
		if tok.Kind == xhtmltok.EOF {
			break
		}

		switch tok.Kind {
		case xhtmltok.Paragraph:
			if !tok.Close {
				push("p", tok.Attrs, Paragraph, 0, false, false)
				events = append(events, Event{Kind: ParagraphStart})
			} else {
				pop()
				events = append(events, Event{Kind: ParagraphEnd})
			}
		case xhtmltok.Heading:
			if !tok.Close {
				push(fmt.Sprintf("h%d", tok.Level), tok.Attrs, Heading, tok.Level, false, false)
				events = append(events, Event{Kind: HeadingStart, Level: tok.Level})
			} else {
				pop()
				events = append(events, Event{Kind: HeadingEnd, Level: tok.Level})
			}
		case xhtmltok.Emphasis:
			if !tok.Close {
				push("em", tok.Attrs, Body, 0, false, true)
			} else {
				pop()
			}
		case xhtmltok.Strong:
			if !tok.Close {
				push("strong", tok.Attrs, Body, 0, true, false)
			} else {
				pop()
			}
		case xhtmltok.ListStart:
			tag := "ul"
			if tok.Ordered {
				tag = "ol"
			}
			push(tag, tok.Attrs, Body, 0, false, false)
		case xhtmltok.ListEnd:
			pop()
		case xhtmltok.ListItemStart:
			push("li", tok.Attrs, ListItem, 0, false, false)
			events = append(events, Event{Kind: ListItemStart})
		case xhtmltok.ListItemEnd:
			pop()
			events = append(events, Event{Kind: ListItemEnd})
		case xhtmltok.LinkStart:
			push("a", tok.Attrs, Body, 0, false, false)
		case xhtmltok.LinkEnd:
			pop()
		case xhtmltok.ContainerStart:
			push(tok.Tag, tok.Attrs, Body, 0, false, false)
		case xhtmltok.ContainerEnd:
			pop()
		case xhtmltok.LineBreak:
			events = append(events, Event{Kind: LineBreakEvent})
		case xhtmltok.Image:
			// Images carry no text run and produce no event in this
			// stream; the layout stage receives nothing for them.
		case xhtmltok.Text:
			events = append(events, Event{Kind: RunEvent, Run: buildRun(stack, tok.Text, sheets, cfg, lib)})
		}
	}

	if len(stack) != 0 {
		return events, &Error{Kind: MalformedMarkup, Reason: "chapter ends with unclosed elements"}
	}
	return events, nil
}

func classesFromAttrs(attrs map[string]string) []string {
	if attrs == nil {
		return nil
	}
	class := attrs["class"]
	if class == "" {
		return nil
	}
	return strings.Fields(class)
}

func inlineFromAttrs(attrs map[string]string) *cssstyle.Declaration {
	if attrs == nil {
		return nil
	}
	style := attrs["style"]
	if style == "" {
		return nil
	}
	d := cssstyle.ParseInlineStyle(style)
	return &d
}

func buildRun(stack []stackEntry, text string, sheets []*cssstyle.Sheet, cfg Config, lib *FontLibrary) Run {
	var acc cssstyle.Declaration
	forceBold, forceItalic := false, false
	role, level := Body, 0

	for _, e := range stack {
		acc.Merge(cssstyle.Resolve(sheets, e.tag, e.classes, nil))
		if e.inline != nil {
			acc.Merge(*e.inline)
		}
		if e.forceBold {
			forceBold = true
		}
		if e.forceItalic {
			forceItalic = true
		}
		if e.role != Body {
			role, level = e.role, e.headingLevel
		}
	}
	if forceBold {
		b := true
		acc.FontWeightBold = &b
	}
	if forceItalic {
		it := true
		acc.FontStyleItalic = &it
	}

	size := resolveFontSize(acc, cfg.Hints, role, level)
	lineHeight := resolveLineHeight(acc, cfg.Hints, size)

	family := acc.FontFamily
	if len(family) == 0 {
		def := cfg.Policy.DefaultFamily
		if def == "" {
			def = "serif"
		}
		family = []string{def}
	}

	bold := acc.FontWeightBold != nil && *acc.FontWeightBold
	italic := acc.FontStyleItalic != nil && *acc.FontStyleItalic

	run := Run{
		Text: text, Role: role, HeadingLevel: level,
		FontSizePx: size, LineHeight: lineHeight, FamilyStack: family,
		Bold: bold, Italic: italic,
	}

	if lib != nil {
		weight := 400
		if bold {
			weight = 700
		}

		var trace ResolveTrace
		matched := false
		for _, fam := range family {
			id, tr := lib.Resolve(FaceDescriptor{Family: fam, Weight: weight, Italic: italic}, text)
			if !tr.FellBackToDefault {
				run.FontID = id
				run.ResolvedFamily = fam
				trace = tr
				matched = true
				break
			}
			trace = tr
		}
		if !matched {
			def := cfg.Policy.DefaultFamily
			if def == "" {
				def = "serif"
			}
			run.FontID = 0
			run.ResolvedFamily = def
		}
		run.MissingGlyphRisk = trace.MissingGlyphRisk
	}
	return run
}

func resolveFontSize(acc cssstyle.Declaration, hints LayoutHints, role SemanticRole, level int) float64 {
	var size float64
	switch {
	case acc.FontSizePx != nil:
		size = *acc.FontSizePx
	case acc.FontSizeEm != nil:
		size = *acc.FontSizeEm * hints.BaseFontSizePx
	case role == Heading && (level == 1 || level == 2):
		size = hints.BaseFontSizePx * 1.25
	default:
		size = hints.BaseFontSizePx
	}
	if size < hints.MinFontSizePx {
		size = hints.MinFontSizePx
	}
	if size > hints.MaxFontSizePx {
		size = hints.MaxFontSizePx
	}
	return size
}

func resolveLineHeight(acc cssstyle.Declaration, hints LayoutHints, sizePx float64) float64 {
	var lh float64
	switch {
	case acc.LineHeightPx != nil && *acc.LineHeightPx >= 1:
		if sizePx > 0 {
			lh = *acc.LineHeightPx / sizePx
		} else {
			lh = 1.4
		}
	case acc.LineHeightMultiplier != nil:
		lh = *acc.LineHeightMultiplier
	default:
		lh = 1.4
	}
	if lh < hints.MinLineHeight {
		lh = hints.MinLineHeight
	}
	if lh > hints.MaxLineHeight {
		lh = hints.MaxLineHeight
	}
	return lh
}
