package xhtmltok

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var collapseWhitespace = regexp.MustCompile(`\s+`)

// Tokenizer streams Tokens from chapter XHTML bytes.
type Tokenizer struct {
	z      *html.Tokenizer
	limits TokenizeLimits

	stack      []string // open paired elements, for mismatch detection
	skipTag    string
	skipDepth  int
	tokenCount int
	textBytes  int
}

// NewTokenizer creates a Tokenizer with DefaultLimits.
func NewTokenizer(data []byte) *Tokenizer {
	return NewBoundedTokenizer(data, DefaultLimits())
}

// NewBoundedTokenizer creates a Tokenizer that fails once limits are
// exceeded rather than growing without bound.
func NewBoundedTokenizer(data []byte, limits TokenizeLimits) *Tokenizer {
	return &Tokenizer{z: html.NewTokenizer(bytes.NewReader(data)), limits: limits}
}

// Next returns the next Token, or a Token{Kind: EOF} once the document is
// exhausted.
func (t *Tokenizer) Next() (Token, error) {
	for {
		tt := t.z.Next()
		if tt == html.ErrorToken {
			return Token{Kind: EOF}, nil
		}

		name, _ := t.z.TagName()
		tagName := string(name)

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if t.skipDepth > 0 {
				if tagName == t.skipTag {
					t.skipDepth++
				}
				continue
			}
			if skipTags[tagName] {
				if tt == html.SelfClosingTagToken {
					continue
				}
				t.skipTag = tagName
				t.skipDepth = 1
				continue
			}
			attrs := readAttrs(t.z)
			if tagName == "img" && attrs["src"] == "" {
				continue // images without a src contribute nothing to the stream
			}
			tok, paired, err := t.startToken(tagName, attrs)
			if err != nil {
				return Token{}, err
			}
			tok.Attrs = attrs
			if paired {
				if len(t.stack) >= t.limits.MaxNesting {
					return Token{}, &Error{Kind: LimitExceeded, Reason: "nesting exceeds configured limit"}
				}
				t.stack = append(t.stack, tagName)
			}
			if err := t.count(); err != nil {
				return Token{}, err
			}
			return tok, nil

		case html.EndTagToken:
			if t.skipDepth > 0 {
				if tagName == t.skipTag {
					t.skipDepth--
					if t.skipDepth == 0 {
						t.skipTag = ""
					}
				}
				continue
			}
			if !isPairedTag(tagName) {
				continue // ignore end tags for elements we never opened (e.g. stray </br>)
			}
			if len(t.stack) == 0 || t.stack[len(t.stack)-1] != tagName {
				return Token{}, &Error{Kind: MismatchedEndTag, Reason: "</" + tagName + "> does not match innermost open element"}
			}
			t.stack = t.stack[:len(t.stack)-1]
			tok := t.endToken(tagName)
			if err := t.count(); err != nil {
				return Token{}, err
			}
			return tok, nil

		case html.TextToken:
			if t.skipDepth > 0 {
				continue
			}
			text := collapseWhitespace.ReplaceAllString(string(t.z.Text()), " ")
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			t.textBytes += len(text)
			if t.textBytes > t.limits.MaxTextBytes {
				return Token{}, &Error{Kind: LimitExceeded, Reason: "accumulated text exceeds configured byte limit"}
			}
			if err := t.count(); err != nil {
				return Token{}, err
			}
			return Token{Kind: Text, Text: text}, nil

		case html.CommentToken, html.DoctypeToken:
			continue
		}
	}
}

func (t *Tokenizer) count() error {
	t.tokenCount++
	if t.tokenCount > t.limits.MaxTokens {
		return &Error{Kind: LimitExceeded, Reason: "token count exceeds configured limit"}
	}
	return nil
}

func isPairedTag(tag string) bool {
	switch tag {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "em", "i", "strong", "b",
		"ul", "ol", "li", "a":
		return true
	}
	return !isVoidLike(tag)
}

func isVoidLike(tag string) bool {
	switch tag {
	case "br", "img":
		return true
	}
	return false
}

func (t *Tokenizer) startToken(tag string, attrs map[string]string) (Token, bool, error) {
	switch tag {
	case "p", "div":
		return Token{Kind: Paragraph}, true, nil
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(tag[1:])
		return Token{Kind: Heading, Level: level}, true, nil
	case "em", "i":
		return Token{Kind: Emphasis}, true, nil
	case "strong", "b":
		return Token{Kind: Strong}, true, nil
	case "br":
		return Token{Kind: LineBreak}, false, nil
	case "ul", "ol":
		return Token{Kind: ListStart, Ordered: tag == "ol"}, true, nil
	case "li":
		return Token{Kind: ListItemStart}, true, nil
	case "a":
		if href, ok := attrs["href"]; ok && href != "" {
			return Token{Kind: LinkStart, Href: href}, true, nil
		}
		return Token{Kind: ContainerStart, Tag: "a"}, true, nil
	case "img":
		return Token{Kind: Image, Src: attrs["src"], Alt: attrs["alt"]}, false, nil
	default:
		return Token{Kind: ContainerStart, Tag: tag}, true, nil
	}
}

func (t *Tokenizer) endToken(tag string) Token {
	switch tag {
	case "p", "div":
		return Token{Kind: Paragraph, Close: true}
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(tag[1:])
		return Token{Kind: Heading, Level: level, Close: true}
	case "em", "i":
		return Token{Kind: Emphasis, Close: true}
	case "strong", "b":
		return Token{Kind: Strong, Close: true}
	case "ul", "ol":
		return Token{Kind: ListEnd, Ordered: tag == "ol"}
	case "li":
		return Token{Kind: ListItemEnd}
	case "a":
		return Token{Kind: LinkEnd}
	default:
		return Token{Kind: ContainerEnd, Tag: tag}
	}
}

// readAttrs drains the current tag's attribute list exactly once; the
// underlying Tokenizer only yields each attribute a single time per tag.
func readAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		attrs[string(key)] = string(val)
		if !more {
			break
		}
	}
	return attrs
}
