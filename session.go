package muepub

import (
	"strings"

	"github.com/google/uuid"
)

// LocatorKind discriminates the variants of Locator.
type LocatorKind int

const (
	// LocatorChapter addresses a chapter by spine index.
	LocatorChapter LocatorKind = iota
	// LocatorHref addresses a resource href, optionally with a #fragment.
	LocatorHref
	// LocatorFragment addresses an id within the current chapter.
	LocatorFragment
	// LocatorTocID addresses a TOC entry by matching label or fragment.
	LocatorTocID
	// LocatorPosition restores a previously saved Position.
	LocatorPosition
)

// Locator is a sum type identifying a place in a book. Exactly the field
// implied by Kind is meaningful; construct one with the Locator* helpers.
type Locator struct {
	Kind     LocatorKind
	Chapter  int
	Href     string
	Fragment string
	TocID    string
	Position Position
}

// LocatorByChapter builds a Locator addressing a chapter by spine index.
func LocatorByChapter(index int) Locator { return Locator{Kind: LocatorChapter, Chapter: index} }

// LocatorByHref builds a Locator addressing href, splitting off any
// "#fragment" suffix.
func LocatorByHref(href string) Locator {
	base, frag := href, ""
	if i := strings.IndexByte(href, '#'); i >= 0 {
		base, frag = href[:i], href[i+1:]
	}
	return Locator{Kind: LocatorHref, Href: base, Fragment: frag}
}

// LocatorByFragment builds a Locator addressing id within whatever chapter
// is currently open.
func LocatorByFragment(id string) Locator { return Locator{Kind: LocatorFragment, Fragment: id} }

// LocatorByTocID builds a Locator that resolves against the TOC/landmarks
// forest, matching an entry whose href fragment or title equals id.
func LocatorByTocID(id string) Locator { return Locator{Kind: LocatorTocID, TocID: id} }

// LocatorFromPosition builds a Locator that restores a previously saved
// Position.
func LocatorFromPosition(p Position) Locator { return Locator{Kind: LocatorPosition, Position: p} }

// Position is an opaque, serializable reading position: a chapter and an
// offset into that chapter's rendered page sequence.
type Position struct {
	ChapterIndex int
	PageIndex    int
}

// ReadingSession tracks the reader's current place in a book across
// chapter navigation and locator resolution. Not safe for concurrent use.
type ReadingSession struct {
	id      uuid.UUID
	book    *Book
	current Position
}

// NewReadingSession starts a session at the first chapter, page 0. Its ID
// is an opaque handle unique to this in-memory session; the core never
// persists it.
func NewReadingSession(book *Book) *ReadingSession {
	return &ReadingSession{id: uuid.New(), book: book}
}

// ID returns this session's opaque handle identifier.
func (s *ReadingSession) ID() uuid.UUID { return s.id }

// Current returns the session's current position.
func (s *ReadingSession) Current() Position { return s.current }

// SeekPosition moves the session directly to p without locator resolution.
func (s *ReadingSession) SeekPosition(p Position) error {
	if p.ChapterIndex < 0 || p.ChapterIndex >= s.book.ChapterCount() {
		return errChapterOutOfBounds(p.ChapterIndex, s.book.ChapterCount())
	}
	s.current = p
	return nil
}

// ResolveLocator moves the session to the position addressed by loc and
// returns it. LocatorFragment and LocatorTocID resolutions that can't be
// pinned to a page default to page 0 of the resolved chapter.
func (s *ReadingSession) ResolveLocator(loc Locator) (Position, error) {
	switch loc.Kind {
	case LocatorChapter:
		if loc.Chapter < 0 || loc.Chapter >= s.book.ChapterCount() {
			return Position{}, errChapterOutOfBounds(loc.Chapter, s.book.ChapterCount())
		}
		s.current = Position{ChapterIndex: loc.Chapter, PageIndex: 0}
		return s.current, nil

	case LocatorHref:
		idx, err := s.chapterIndexForHref(loc.Href)
		if err != nil {
			return Position{}, err
		}
		s.current = Position{ChapterIndex: idx, PageIndex: 0}
		return s.current, nil

	case LocatorFragment:
		s.current = Position{ChapterIndex: s.current.ChapterIndex, PageIndex: 0}
		return s.current, nil

	case LocatorTocID:
		idx, err := s.chapterIndexForTocID(loc.TocID)
		if err != nil {
			return Position{}, err
		}
		s.current = Position{ChapterIndex: idx, PageIndex: 0}
		return s.current, nil

	case LocatorPosition:
		if err := s.SeekPosition(loc.Position); err != nil {
			return Position{}, err
		}
		return s.current, nil
	}
	return Position{}, errInvalid("unknown locator kind", nil)
}

func (s *ReadingSession) chapterIndexForHref(href string) (int, error) {
	target := hrefWithoutFragment(href)
	for i, ch := range s.book.Chapters() {
		if hrefWithoutFragment(ch.Href) == target {
			return i, nil
		}
	}
	return 0, errNavigation("no chapter matches href: "+href, nil)
}

func (s *ReadingSession) chapterIndexForTocID(id string) (int, error) {
	var found *TOCItem
	var walk func(items []TOCItem)
	walk = func(items []TOCItem) {
		for i := range items {
			item := items[i]
			if found != nil {
				return
			}
			if hrefWithoutFragment(item.Href) == id || item.Title == id || fragmentOf(item.Href) == id {
				found = &item
				return
			}
			walk(item.Children)
		}
	}
	walk(s.book.TOC())
	if found == nil {
		walk(s.book.Landmarks())
	}
	if found == nil {
		return 0, errNavigation("no TOC entry matches id: "+id, nil)
	}
	return s.chapterIndexForHref(found.Href)
}

func fragmentOf(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[i+1:]
	}
	return ""
}

// ChapterProgress returns the session's fraction of progress through the
// current chapter, given that chapter's total page count. Returns 0 when
// pageCount is 0.
func (s *ReadingSession) ChapterProgress(pageCount int) float64 {
	if pageCount <= 0 {
		return 0
	}
	return float64(s.current.PageIndex) / float64(pageCount)
}

// BookProgress returns the session's fraction of progress through the
// whole book, given the page count of every chapter indexed by spine
// position. Chapters before the current one count as fully read;
// chapters after it count as unread.
func (s *ReadingSession) BookProgress(pagesPerChapter []int) float64 {
	total, read := 0, 0
	for i, n := range pagesPerChapter {
		total += n
		switch {
		case i < s.current.ChapterIndex:
			read += n
		case i == s.current.ChapterIndex:
			read += s.current.PageIndex
		}
	}
	if total == 0 {
		return 0
	}
	return float64(read) / float64(total)
}
