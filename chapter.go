package muepub

import (
	"strings"
	"unicode/utf8"

	"github.com/muepub/muepub/pkg/xhtmltok"
)

// RawContent reads this chapter's raw XHTML bytes, with any leading UTF-8
// BOM stripped.
func (c Chapter) RawContent() ([]byte, error) {
	if c.book == nil {
		return nil, errInvalid("chapter has no owning book", nil)
	}
	data, err := c.book.readResource(c.Href)
	if err != nil {
		return nil, err
	}
	return stripBOM(data), nil
}

// TextContent extracts the chapter's plain text: paragraph, heading, and
// list-item boundaries produce line breaks; script/style/nav-like elements
// are skipped by the tokenizer itself.
func (c Chapter) TextContent() (string, error) {
	data, err := c.RawContent()
	if err != nil {
		return "", err
	}
	return extractText(data)
}

// TextContentWithLimit extracts plain text truncated to at most maxBytes,
// cut on a UTF-8 rune boundary. maxBytes == 0 returns "".
func (c Chapter) TextContentWithLimit(maxBytes int) (string, error) {
	text, err := c.TextContent()
	if err != nil {
		return "", err
	}
	return truncateUTF8(text, maxBytes), nil
}

func truncateUTF8(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

var blockKinds = map[xhtmltok.TokenKind]bool{
	xhtmltok.Paragraph:     true,
	xhtmltok.Heading:       true,
	xhtmltok.LineBreak:     true,
	xhtmltok.ListItemStart: true,
	xhtmltok.ListItemEnd:   true,
}

// extractText flattens a chapter's token stream into plain text. Block
// boundaries produce a single newline; runs of collapsed whitespace from
// adjacent text tokens are preserved as-is since the tokenizer already
// collapses them per node.
func extractText(xhtml []byte) (string, error) {
	tok := xhtmltok.NewBoundedTokenizer(xhtml, xhtmltok.DefaultLimits())
	var buf strings.Builder
	lastWasNewline := true

	for {
		t, err := tok.Next()
		if err != nil {
			return "", errParse("tokenize chapter", err)
		}
		switch t.Kind {
		case xhtmltok.EOF:
			return strings.TrimSpace(buf.String()), nil
		case xhtmltok.Text:
			if t.Text == "" {
				continue
			}
			buf.WriteString(t.Text)
			lastWasNewline = false
		default:
			if blockKinds[t.Kind] && buf.Len() > 0 && !lastWasNewline {
				buf.WriteByte('\n')
				lastWasNewline = true
			}
		}
	}
}
