// Package muepub is a pure-Go library for reading and rendering EPUB 2 and
// EPUB 3 books under bounded memory, aimed at embedded and other
// resource-constrained readers.
//
// # Opening
//
// Open parses a file path; NewReader parses from any io.ReaderAt of known
// size (useful over a memory-mapped file or a partial HTTP range source).
// Both accept Options: WithLimits overrides the bounded-memory defaults
// from DefaultLimits, and WithValidationMode selects whether structural
// problems (a spine idref with no manifest entry, a missing navigation
// document, and so on) are tolerated or rejected outright.
//
//	book, err := muepub.Open("book.epub", muepub.WithValidationMode(validate.Strict))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer book.Close()
//
// # Metadata, TOC, and chapters
//
// [Book.Metadata] returns Dublin Core fields. [Book.TOC] and
// [Book.Landmarks] return the navigation forest as [TOCItem] trees, each
// item resolved to the spine index range it covers. [Book.Chapters]
// returns the spine in reading order; chapter content is read lazily
// through [Chapter.RawContent], [Chapter.TextContent], and
// [Chapter.TextContentWithLimit].
//
// # Resources and cover
//
// [Book.ReadResource] and [Book.WriteResource] fetch any archive member by
// manifest-relative href, ignoring a trailing "#fragment". [Book.Cover]
// resolves the book's cover image, trying the manifest cover-image
// property, a guide reference of type "cover", and finally the first
// image in the first spine chapter.
//
// # Rendering
//
// [RenderEngine] turns chapter XHTML and its linked stylesheets into
// paged output via the renderprep and layout packages:
// [RenderEngine.PrepareChapter] renders a whole chapter eagerly,
// [RenderEngine.PrepareChapterWith] and
// [RenderEngine.PrepareChapterWithCancel] deliver pages incrementally
// with optional cooperative cancellation via [CancelToken],
// [RenderEngine.PrepareChapterPageRange] returns a page window, and
// [RenderEngine.PrepareChapterIterStreaming] delivers pages over a
// capacity-1 channel from a worker goroutine. A [DiagnosticSink]
// installed with [RenderEngine.SetDiagnosticSink] receives reflow-time
// and cancellation diagnostics.
//
// [ReadingSession] tracks a reader's place in a book: ResolveLocator
// accepts a [Locator] (by chapter, href, in-chapter fragment, TOC entry,
// or a previously saved [Position]) and updates the session's current
// position accordingly.
//
// # Error handling
//
// Failures are returned as [*EpubError], carrying an [ErrorKind] plus
// context fields (chapter index, idref, href) relevant to that kind.
// Wrapped causes are reachable via errors.Unwrap.
//
// If no table of contents is present, [Book.TOC] returns an empty slice
// and [Book.HasTOC] returns false.
package muepub
