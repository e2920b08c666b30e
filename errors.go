package muepub

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind tags the top-level failure modes a caller needs to branch on.
type ErrorKind int

const (
	Zip ErrorKind = iota
	Parse
	InvalidEpub
	Navigation
	Css
	Io
	ChapterOutOfBounds
	ManifestItemMissing
	ChapterNotUtf8
)

func (k ErrorKind) String() string {
	switch k {
	case Zip:
		return "Zip"
	case Parse:
		return "Parse"
	case InvalidEpub:
		return "InvalidEpub"
	case Navigation:
		return "Navigation"
	case Css:
		return "Css"
	case Io:
		return "Io"
	case ChapterOutOfBounds:
		return "ChapterOutOfBounds"
	case ManifestItemMissing:
		return "ManifestItemMissing"
	case ChapterNotUtf8:
		return "ChapterNotUtf8"
	default:
		return "Unknown"
	}
}

// EpubError is the structured error type returned across the façade.
// Display produces a single line, "<Kind>: <detail>", with enough context
// to diagnose without a debug trace.
type EpubError struct {
	Kind ErrorKind

	// Index/ChapterCount populate ChapterOutOfBounds.
	Index        int
	ChapterCount int

	// IDRef populates ManifestItemMissing.
	IDRef string

	// Href populates ChapterNotUtf8.
	Href string

	Detail string
	Err    error
}

func (e *EpubError) Error() string {
	detail := e.Detail
	switch e.Kind {
	case ChapterOutOfBounds:
		detail = fmt.Sprintf("index %d, chapter_count %d", e.Index, e.ChapterCount)
	case ManifestItemMissing:
		detail = fmt.Sprintf("idref %q", e.IDRef)
	case ChapterNotUtf8:
		detail = fmt.Sprintf("href %q", e.Href)
	}
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, detail)
}

func (e *EpubError) Unwrap() error { return e.Err }

// withStack wraps a non-nil cause with a stack trace captured at the call
// site, so %+v on the eventual error gives a trace in debug builds without
// affecting Error() string output.
func withStack(cause error) error {
	if cause == nil {
		return nil
	}
	return errors.WithStack(cause)
}

func errZip(detail string, cause error) *EpubError {
	return &EpubError{Kind: Zip, Detail: detail, Err: withStack(cause)}
}

func errParse(detail string, cause error) *EpubError {
	return &EpubError{Kind: Parse, Detail: detail, Err: withStack(cause)}
}

func errInvalid(detail string, cause error) *EpubError {
	return &EpubError{Kind: InvalidEpub, Detail: detail, Err: withStack(cause)}
}

func errNavigation(detail string, cause error) *EpubError {
	return &EpubError{Kind: Navigation, Detail: detail, Err: withStack(cause)}
}

func errCSS(detail string, cause error) *EpubError {
	return &EpubError{Kind: Css, Detail: detail, Err: withStack(cause)}
}

func errIO(detail string, cause error) *EpubError {
	return &EpubError{Kind: Io, Detail: detail, Err: withStack(cause)}
}

func errChapterOutOfBounds(index, count int) *EpubError {
	return &EpubError{Kind: ChapterOutOfBounds, Index: index, ChapterCount: count}
}

func errManifestItemMissing(idref string) *EpubError {
	return &EpubError{Kind: ManifestItemMissing, IDRef: idref}
}

func errChapterNotUTF8(href string, cause error) *EpubError {
	return &EpubError{Kind: ChapterNotUtf8, Href: href, Err: withStack(cause)}
}
