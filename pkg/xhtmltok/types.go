// Package xhtmltok streams a token/event sequence from XHTML chapter
// content, built directly on golang.org/x/net/html's low-level Tokenizer
// (the same library the teacher uses for nav-document parsing). Elements
// with no rendering role (script, style, head, nav, header, footer, aside,
// noscript) are skipped along with their entire subtree. Tokenization is
// XML-strict: an end tag that does not match the innermost open element is
// reported as an error rather than silently tolerated.
package xhtmltok

// TokenKind identifies the kind of a streamed token.
type TokenKind int

const (
	Paragraph TokenKind = iota // Open/Close via the Close field
	Heading
	Emphasis
	Strong
	LineBreak
	ListStart
	ListEnd
	ListItemStart
	ListItemEnd
	LinkStart
	LinkEnd
	Image
	Text
	ContainerStart
	ContainerEnd
	EOF
)

// Token is a single streamed event. Close distinguishes the open/close half
// of a paired element (Paragraph, Heading, Emphasis, Strong). Level is the
// heading level (1..6). Ordered marks an <ol> for ListStart. Href, Src, and
// Alt carry link/image attributes. Text carries collapsed text content; Tag
// carries the lowercased element name for generic containers.
type Token struct {
	Kind    TokenKind
	Close   bool
	Level   int
	Ordered bool
	Href    string
	Src     string
	Alt     string
	Text    string
	Tag     string

	// Attrs carries every attribute of a start/self-closing tag (including
	// "class" and "style"), for consumers that need more than the fields
	// above — the render-prep cascade, in particular.
	Attrs map[string]string
}

// TokenizeLimits bounds a streamed tokenization pass.
type TokenizeLimits struct {
	MaxTokens    int `validate:"required,gt=0"`
	MaxNesting   int `validate:"required,gt=0"`
	MaxTextBytes int `validate:"required,gt=0"`
}

// DefaultLimits is generous enough for a typical EPUB chapter.
func DefaultLimits() TokenizeLimits {
	return TokenizeLimits{MaxTokens: 1 << 20, MaxNesting: 256, MaxTextBytes: 32 * 1024 * 1024}
}

var skipTags = map[string]bool{
	"script": true, "style": true, "head": true, "nav": true,
	"header": true, "footer": true, "aside": true, "noscript": true,
}
