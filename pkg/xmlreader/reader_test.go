package xmlreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, doc string) []Event {
	t.Helper()
	r := NewReader([]byte(doc))
	var events []Event
	for {
		e, err := r.Next()
		require.NoError(t, err)
		if e.Kind == EventEOF {
			break
		}
		events = append(events, e)
	}
	return events
}

func TestStartEndElement(t *testing.T) {
	events := collect(t, `<p>hello</p>`)
	require.Len(t, events, 3)
	assert.Equal(t, EventStartElement, events[0].Kind)
	assert.Equal(t, "p", events[0].Name)
	assert.Equal(t, EventText, events[1].Kind)
	assert.Equal(t, "hello", events[1].Text)
	assert.Equal(t, EventEndElement, events[2].Kind)
	assert.Equal(t, "p", events[2].Name)
}

func TestSelfClosingElement(t *testing.T) {
	events := collect(t, `<root><br/><img src="x.png"/></root>`)
	require.Len(t, events, 4)
	assert.Equal(t, EventSelfClosing, events[1].Kind)
	assert.Equal(t, "br", events[1].Name)
	assert.Equal(t, EventSelfClosing, events[2].Kind)
	src, ok := events[2].Attr("src")
	assert.True(t, ok)
	assert.Equal(t, "x.png", src)
}

func TestNamespacePrefixStrippedAndLowercased(t *testing.T) {
	events := collect(t, `<OPF:Package xmlns:OPF="urn:x"><OPF:Item Id="a"/></OPF:Package>`)
	require.Len(t, events, 3)
	assert.Equal(t, "package", events[0].Name)
	assert.Equal(t, "item", events[1].Name)
	id, ok := events[1].Attr("id")
	assert.True(t, ok)
	assert.Equal(t, "a", id)
}

func TestEntityReferenceResolved(t *testing.T) {
	events := collect(t, `<p>Tom &amp; Jerry</p>`)
	require.Len(t, events, 3)
	assert.Equal(t, "Tom & Jerry", events[1].Text)
}

func TestNamedHTMLEntityResolved(t *testing.T) {
	events := collect(t, `<p>a&nbsp;b</p>`)
	require.Len(t, events, 3)
	assert.Equal(t, "a b", events[1].Text)
}

func TestCommentsProcessingInstructionsAndDoctypeIgnored(t *testing.T) {
	doc := `<?xml version="1.0"?>
<!DOCTYPE html>
<!-- a comment -->
<root><!-- inline --><child/></root>`
	events := collect(t, doc)
	// The three newlines after the prolog items come through as text
	// events, then <root>, the self-closed <child/>, and </root>.
	require.Len(t, events, 6)
	assert.Equal(t, "root", events[3].Name)
	assert.Equal(t, EventSelfClosing, events[4].Kind)
}

func TestMismatchedEndTagIsError(t *testing.T) {
	r := NewReader([]byte(`<p><b>bold</p></b>`))
	var lastErr error
	for {
		_, err := r.Next()
		if err != nil {
			lastErr = err
			break
		}
	}
	require.Error(t, lastErr)
}

func TestInvalidUTF8FallsBackToLatin1(t *testing.T) {
	raw := append([]byte(`<p>`), 0xff, 0xfe)
	raw = append(raw, []byte(`</p>`)...)
	r := NewReader(raw)
	_, err := r.Next()
	require.NoError(t, err)
}

func TestLatin1FallbackDecodesAccentedBytes(t *testing.T) {
	// 0xe9 is 'é' in ISO-8859-1, an invalid standalone UTF-8 byte.
	raw := append([]byte(`<p>caf`), 0xe9)
	raw = append(raw, []byte(`</p>`)...)
	r := NewReader(raw)

	_, err := r.Next() // <p>
	require.NoError(t, err)
	text, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "café", text.Text)
}
