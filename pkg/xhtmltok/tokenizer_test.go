package xhtmltok

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectAll(t *testing.T, doc string) []Token {
	t.Helper()
	tz := NewTokenizer([]byte(doc))
	var toks []Token
	for {
		tok, err := tz.Next()
		require.NoError(t, err)
		if tok.Kind == EOF {
			break
		}
		toks = append(toks, tok)
	}
	return toks
}

func TestParagraphAndHeading(t *testing.T) {
	toks := collectAll(t, `<h1>Title</h1><p>Hello <strong>world</strong>!</p>`)
	require.Len(t, toks, 10)
	assert.Equal(t, Heading, toks[0].Kind)
	assert.Equal(t, 1, toks[0].Level)
	assert.Equal(t, Text, toks[1].Kind)
	assert.Equal(t, "Title", toks[1].Text)
	assert.Equal(t, Heading, toks[2].Kind)
	assert.True(t, toks[2].Close)
	assert.Equal(t, Paragraph, toks[3].Kind)
	assert.Equal(t, Text, toks[4].Kind)
	assert.Equal(t, "Hello", toks[4].Text)
	assert.Equal(t, Strong, toks[5].Kind)
	assert.Equal(t, Text, toks[6].Kind)
	assert.Equal(t, "world", toks[6].Text)
	assert.Equal(t, Strong, toks[7].Kind)
	assert.True(t, toks[7].Close)
	assert.Equal(t, Text, toks[8].Kind)
	assert.Equal(t, "!", toks[8].Text)
	assert.Equal(t, Paragraph, toks[9].Kind)
	assert.True(t, toks[9].Close)
}

func TestSkipTagsExcludeSubtree(t *testing.T) {
	toks := collectAll(t, `<html><head><title>ignored</title></head><body><script>var x = "<p>fake</p>";</script><p>real</p></body></html>`)
	require.Len(t, toks, 7)
	assert.Equal(t, ContainerStart, toks[0].Kind)
	assert.Equal(t, "html", toks[0].Tag)
	assert.Equal(t, ContainerStart, toks[1].Kind)
	assert.Equal(t, "body", toks[1].Tag)
	assert.Equal(t, Paragraph, toks[2].Kind)
	assert.Equal(t, "real", toks[3].Text)
	assert.Equal(t, Paragraph, toks[4].Kind)
	assert.True(t, toks[4].Close)
}

func TestLinkAndImage(t *testing.T) {
	toks := collectAll(t, `<p><a href="ch2.xhtml">next</a><img src="pic.png" alt="a pic"/><img/></p>`)
	require.Len(t, toks, 6)
	assert.Equal(t, LinkStart, toks[1].Kind)
	assert.Equal(t, "ch2.xhtml", toks[1].Href)
	assert.Equal(t, LinkEnd, toks[3].Kind)
	assert.Equal(t, Image, toks[4].Kind)
	assert.Equal(t, "pic.png", toks[4].Src)
	assert.Equal(t, "a pic", toks[4].Alt)
}

func TestListAndListItem(t *testing.T) {
	toks := collectAll(t, `<ul><li>one</li><li>two</li></ul>`)
	require.Len(t, toks, 8)
	assert.Equal(t, ListStart, toks[0].Kind)
	assert.False(t, toks[0].Ordered)
	assert.Equal(t, ListItemStart, toks[1].Kind)
	assert.Equal(t, ListEnd, toks[7].Kind)
}

func TestWhitespaceCollapsedAndTrimmed(t *testing.T) {
	toks := collectAll(t, "<p>  hello   \n  world  </p>")
	require.Len(t, toks, 3)
	assert.Equal(t, "hello world", toks[1].Text)
}

func TestMismatchedEndTagIsError(t *testing.T) {
	tz := NewTokenizer([]byte(`<p><strong>bold</p></strong>`))
	var lastErr error
	for {
		_, err := tz.Next()
		if err != nil {
			lastErr = err
			break
		}
	}
	require.Error(t, lastErr)
	var xerr *Error
	require.ErrorAs(t, lastErr, &xerr)
	assert.Equal(t, MismatchedEndTag, xerr.Kind)
}

func TestGenericContainerForUnknownElement(t *testing.T) {
	toks := collectAll(t, `<section><p>text</p></section>`)
	require.Len(t, toks, 5)
	assert.Equal(t, ContainerStart, toks[0].Kind)
	assert.Equal(t, "section", toks[0].Tag)
	assert.Equal(t, ContainerEnd, toks[4].Kind)
}

func TestBoundedTokenizerEnforcesLimits(t *testing.T) {
	tz := NewBoundedTokenizer([]byte(`<p>one</p><p>two</p><p>three</p>`), TokenizeLimits{
		MaxTokens: 3, MaxNesting: 8, MaxTextBytes: 1024,
	})
	var lastErr error
	for i := 0; i < 10; i++ {
		_, err := tz.Next()
		if err != nil {
			lastErr = err
			break
		}
	}
	require.Error(t, lastErr)
	var xerr *Error
	require.ErrorAs(t, lastErr, &xerr)
	assert.Equal(t, LimitExceeded, xerr.Kind)
}
