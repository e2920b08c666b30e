package muepub

import (
	"net/url"
	"path"
	"strings"
)

// resolveRelativePath resolves href relative to the directory of basePath.
// Both are archive-internal, forward-slash paths. Returns "" if href is
// absolute, percent-decodes to something unsafe, or escapes the archive
// root via path traversal.
func resolveRelativePath(basePath, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	joined := path.Join(path.Dir(basePath), href)
	cleaned := path.Clean(joined)
	if !isSafePath(cleaned) {
		return ""
	}
	return cleaned
}

// isSafePath reports whether p stays within the archive root.
func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	return cleaned != ".." && !strings.HasPrefix(cleaned, "../") && !strings.HasPrefix(cleaned, "/")
}

// stripBOM removes a leading UTF-8 byte-order mark, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// hrefWithoutFragment returns href with any "#..." fragment removed.
func hrefWithoutFragment(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}
