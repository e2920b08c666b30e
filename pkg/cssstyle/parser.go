package cssstyle

import (
	"regexp"
	"strconv"
	"strings"
)

var commentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
var selectorPattern = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9-]*)?(?:\.([-\w]+))?$`)
var fontSizePattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)(px|em)$`)
var lineHeightPxPattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)px$`)
var plainNumberPattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)$`)

// ParseSheet parses a CSS subset stylesheet: tag/class/tag.class selectors,
// each with a block of declarations from the supported property set.
// Comments are stripped before parsing; unknown properties are ignored;
// declarations with no colon are skipped.
func ParseSheet(css string, limits Limits) (*Sheet, error) {
	if len(css) > limits.MaxCSSBytes {
		css = css[:limits.MaxCSSBytes]
	}
	css = commentPattern.ReplaceAllString(css, "")

	sheet := &Sheet{}
	for len(css) > 0 {
		if len(sheet.Rules) >= limits.MaxSelectors {
			break
		}
		open := strings.IndexByte(css, '{')
		if open < 0 {
			break
		}
		selectorText := strings.TrimSpace(css[:open])
		close := strings.IndexByte(css[open:], '}')
		if close < 0 {
			break
		}
		body := css[open+1 : open+close]
		css = css[open+close+1:]

		decl := parseDeclarationBlock(body)
		for _, selText := range strings.Split(selectorText, ",") {
			sel, ok := parseSelector(strings.TrimSpace(selText))
			if !ok {
				continue
			}
			if len(sheet.Rules) >= limits.MaxSelectors {
				break
			}
			sheet.Rules = append(sheet.Rules, Rule{Selector: sel, Decl: decl})
		}
	}
	return sheet, nil
}

func parseSelector(text string) (Selector, bool) {
	if text == "" {
		return Selector{}, false
	}
	m := selectorPattern.FindStringSubmatch(text)
	if m == nil {
		return Selector{}, false
	}
	if m[1] == "" && m[2] == "" {
		return Selector{}, false
	}
	return Selector{Tag: strings.ToLower(m[1]), Class: m[2]}, true
}

// ParseInlineStyle parses the contents of a style="..." attribute as a
// single declaration block.
func ParseInlineStyle(style string) Declaration {
	return parseDeclarationBlock(style)
}

func parseDeclarationBlock(body string) Declaration {
	var d Declaration
	for _, stmt := range strings.Split(body, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		idx := strings.IndexByte(stmt, ':')
		if idx < 0 {
			continue // malformed declaration, skipped
		}
		prop := strings.ToLower(strings.TrimSpace(stmt[:idx]))
		val := strings.TrimSpace(stmt[idx+1:])
		applyProperty(&d, prop, val)
	}
	return d
}

func applyProperty(d *Declaration, prop, val string) {
	switch prop {
	case "font-size":
		if m := fontSizePattern.FindStringSubmatch(val); m != nil {
			n, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return
			}
			if m[2] == "px" {
				d.FontSizePx = &n
			} else {
				d.FontSizeEm = &n
			}
		}
	case "font-family":
		d.FontFamily = parseFontFamily(val)
	case "font-weight":
		bold := parseFontWeight(val)
		if bold != nil {
			d.FontWeightBold = bold
		}
	case "font-style":
		italic := strings.EqualFold(val, "italic") || strings.EqualFold(val, "oblique")
		d.FontStyleItalic = &italic
	case "text-align":
		switch strings.ToLower(val) {
		case "left", "center", "right", "justify":
			v := strings.ToLower(val)
			d.TextAlign = &v
		}
	case "line-height":
		parseLineHeight(d, val)
	case "margin-top":
		if n, ok := parsePx(val); ok {
			d.MarginTopPx = &n
		}
	case "margin-bottom":
		if n, ok := parsePx(val); ok {
			d.MarginBottomPx = &n
		}
	case "margin":
		fields := strings.Fields(val)
		if len(fields) == 1 {
			if n, ok := parsePx(fields[0]); ok {
				d.MarginTopPx = &n
				d.MarginBottomPx = &n
			}
		}
	}
}

func parseFontFamily(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `"'`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseFontWeight(val string) *bool {
	switch strings.ToLower(val) {
	case "bold":
		b := true
		return &b
	case "normal":
		b := false
		return &b
	}
	if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
		b := n >= 700
		return &b
	}
	return nil
}

func parseLineHeight(d *Declaration, val string) {
	if strings.EqualFold(val, "normal") {
		d.LineHeightNormal = true
		return
	}
	if m := lineHeightPxPattern.FindStringSubmatch(val); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			d.LineHeightPx = &n
		}
		return
	}
	if m := plainNumberPattern.FindStringSubmatch(val); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			d.LineHeightMultiplier = &n
		}
	}
}

func parsePx(val string) (float64, bool) {
	if m := lineHeightPxPattern.FindStringSubmatch(val); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		return n, err == nil
	}
	if m := plainNumberPattern.FindStringSubmatch(val); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		return n, err == nil
	}
	return 0, false
}
