package muepub

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for name, content := range files {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const testMimetype = "application/epub+zip"

const testContainer = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func testOPF(extraManifest, extraSpine string) string {
	return `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="bookid">urn:uuid:9d8f3a2c-1b4e-4a5d-8c6f-123456789abc</dc:identifier>
    <dc:title>Test Book</dc:title>
    <dc:creator>Author One</dc:creator>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    ` + extraManifest + `
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
    ` + extraSpine + `
  </spine>
</package>`
}

const testNav = `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Nav</title></head>
<body>
  <nav epub:type="toc">
    <ol>
      <li><a href="text/ch1.xhtml">Chapter One</a></li>
      <li><a href="text/ch2.xhtml">Chapter Two</a></li>
    </ol>
  </nav>
</body>
</html>`

const testChapterOne = `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>One</title></head>
<body><p>Hello</p></body>
</html>`

const testChapterTwo = `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Two</title></head>
<body><p>World</p><p>Second paragraph.</p></body>
</html>`

func testBookFiles() map[string]string {
	return map[string]string{
		"mimetype":                testMimetype,
		"META-INF/container.xml":  testContainer,
		"OEBPS/content.opf":       testOPF("", ""),
		"OEBPS/nav.xhtml":         testNav,
		"OEBPS/text/ch1.xhtml":    testChapterOne,
		"OEBPS/text/ch2.xhtml":    testChapterTwo,
	}
}

func openTestBook(t *testing.T, opts ...Option) *Book {
	t.Helper()
	data := buildZip(t, testBookFiles())
	b, err := NewReader(bytes.NewReader(data), int64(len(data)), opts...)
	require.NoError(t, err)
	return b
}
