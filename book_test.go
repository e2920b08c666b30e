package muepub

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muepub/muepub/pkg/validate"
)

func TestOpenMinimalValidArchive(t *testing.T) {
	b := openTestBook(t)
	defer b.Close()

	assert.Equal(t, 2, b.ChapterCount())
	md := b.Metadata()
	require.Len(t, md.Titles, 1)
	assert.Equal(t, "Test Book", md.Titles[0])
	assert.True(t, b.HasTOC())
}

func TestChapterTextHelloScenario(t *testing.T) {
	data := buildZip(t, map[string]string{
		"mimetype":               testMimetype,
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="bookid">id1</dc:identifier>
    <dc:title>Minimal</dc:title>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
  </spine>
</package>`,
		"OEBPS/ch1.xhtml": `<html xmlns="http://www.w3.org/1999/xhtml"><body><p>Hello</p></body></html>`,
	})
	b, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	defer b.Close()

	require.Equal(t, 1, b.ChapterCount())
	ch, err := b.Chapter(0)
	require.NoError(t, err)
	text, err := ch.TextContent()
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
}

func TestOpenSpineManifestMismatchLenientVsStrict(t *testing.T) {
	files := testBookFiles()
	files["OEBPS/content.opf"] = testOPF("", `<itemref idref="missing"/>`)

	data := buildZip(t, files)

	_, err := NewReader(bytes.NewReader(data), int64(len(data)), WithValidationMode(validate.Strict))
	require.Error(t, err)
	var epubErr *EpubError
	require.True(t, errors.As(err, &epubErr))

	b, err := NewReader(bytes.NewReader(data), int64(len(data)), WithValidationMode(validate.Lenient))
	require.NoError(t, err)
	defer b.Close()

	require.Equal(t, 3, b.ChapterCount())
	ch, err := b.ChapterByIDRef("missing")
	require.NoError(t, err)
	assert.Empty(t, ch.Href)

	_, err = ch.RawContent()
	require.Error(t, err)
	require.True(t, errors.As(err, &epubErr))
}

func TestReadResourceIgnoresFragment(t *testing.T) {
	b := openTestBook(t)
	defer b.Close()

	withFrag, err := b.ReadResource("text/ch1.xhtml#section-2")
	require.NoError(t, err)
	without, err := b.ReadResource("text/ch1.xhtml")
	require.NoError(t, err)
	assert.Equal(t, without, withFrag)
}

func TestTOCSpineRangesAreNonOverlapping(t *testing.T) {
	b := openTestBook(t)
	defer b.Close()

	toc := b.TOC()
	require.Len(t, toc, 2)
	assert.Equal(t, 0, toc[0].SpineIndex)
	assert.Equal(t, 1, toc[1].SpineIndex)
	assert.LessOrEqual(t, toc[0].SpineEndIndex, toc[1].SpineIndex)
}

func TestOpenInvalidLimitsRejected(t *testing.T) {
	data := buildZip(t, testBookFiles())
	bad := DefaultLimits()
	bad.Style.MaxSelectors = 0

	_, err := NewReader(bytes.NewReader(data), int64(len(data)), WithLimits(bad))
	require.Error(t, err)
}

func TestBookIDStableAcrossOpens(t *testing.T) {
	data := buildZip(t, testBookFiles())

	b1, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	defer b1.Close()
	b2, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	defer b2.Close()

	assert.Equal(t, b1.ID(), b2.ID())
	assert.Equal(t, "9d8f3a2c-1b4e-4a5d-8c6f-123456789abc", b1.ID())
}
