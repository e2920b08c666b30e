package layout

import (
	"strings"

	"github.com/muepub/muepub/pkg/renderprep"
)

type laidWord struct {
	text           string
	sizePx         float64
	bold, italic   bool
	familyStack    []string
	fontID         int
	extraLeftInset float64
}

type lineBuffer struct {
	words        []laidWord
	widthPx      float64
	lineHeightPx float64
}

type blockContext struct {
	role               renderprep.SemanticRole
	headingLevel       int
	inList             bool
	pendingIndent      bool
	suppressNextIndent bool
	leftInsetPx        float64
}

// Session is the single-threaded, cooperative layout state machine for one
// chapter: feed it the render-prep event stream in order via Push, then call
// Finish to flush the final line/page and apply chrome annotations.
type Session struct {
	cfg Config

	pageNumber int
	cursorY    float64

	currentContent []DrawCommand
	pages          []RenderPage

	line  lineBuffer
	block blockContext
}

// NewSession starts a fresh layout pass under cfg.
func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg, pageNumber: 1, cursorY: cfg.Margins.Top}
}

func (s *Session) contentWidth() float64 {
	return s.cfg.DisplayWidthPx - s.cfg.Margins.Left - s.cfg.Margins.Right
}

func (s *Session) availableWidth() float64 {
	return s.contentWidth() - s.block.leftInsetPx
}

// ensureSpace closes the current page (if it holds content) and resets the
// cursor when the next increment would overflow the printable area. A page
// with no content is never emitted; the cursor is still reset so a single
// oversize element cannot loop forever.
func (s *Session) ensureSpace(increment float64) {
	limit := s.cfg.DisplayHeightPx - s.cfg.Margins.Bottom
	if s.cursorY+increment <= limit {
		return
	}
	s.closeCurrentPage()
	s.cursorY = s.cfg.Margins.Top
}

func (s *Session) closeCurrentPage() {
	if len(s.currentContent) == 0 {
		return
	}
	page := RenderPage{PageNumber: s.pageNumber, Content: s.currentContent}
	s.pages = append(s.pages, page)
	s.pageNumber++
	s.currentContent = nil
}

func (s *Session) addGap(px float64) {
	s.ensureSpace(px)
	s.cursorY += px
}

// Push advances the session by one render-prep event. Callers that need
// cancellation should poll their token before each call.
func (s *Session) Push(ev renderprep.Event) error {
	switch ev.Kind {
	case renderprep.ParagraphStart:
		if s.block.suppressNextIndent {
			s.block.suppressNextIndent = false
		} else {
			s.block.pendingIndent = true
		}
		s.block.role = renderprep.Paragraph
		s.block.headingLevel = 0

	case renderprep.ParagraphEnd:
		s.flushLine(true)
		s.addGap(s.cfg.ParagraphGapPx)

	case renderprep.HeadingStart:
		s.flushLine(false)
		s.addGap(s.cfg.HeadingGapPx)
		level := ev.Level
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		s.block.headingLevel = level
		s.block.role = renderprep.Heading

	case renderprep.HeadingEnd:
		s.flushLine(true)
		s.addGap(s.cfg.HeadingGapPx)
		if s.cfg.SuppressIndentAfterHeading {
			s.block.suppressNextIndent = true
		}

	case renderprep.ListItemStart:
		s.flushLine(false)
		s.block.inList = true
		s.block.role = renderprep.ListItem
		s.block.leftInsetPx = s.cfg.ListIndentPx

	case renderprep.ListItemEnd:
		s.flushLine(true)
		gap := s.cfg.ParagraphGapPx - 2
		if gap < 0 {
			gap = 0
		}
		s.addGap(gap)
		s.block.inList = false
		s.block.leftInsetPx = 0

	case renderprep.LineBreakEvent:
		s.flushLine(false)

	case renderprep.RunEvent:
		s.pushRun(ev.Run)
	}
	return nil
}

func (s *Session) pushRun(run renderprep.Run) {
	for _, word := range strings.Fields(run.Text) {
		s.addWord(word, run)
	}
}

func (s *Session) addWord(word string, run renderprep.Run) {
	sizePx, bold, italic := run.FontSizePx, run.Bold, run.Italic
	visible := stripSoftHyphens(word)
	wordW := measureWidth(visible, sizePx, bold, italic, s.cfg.LetterSpacingPx)

	spaceW := 0.0
	if len(s.line.words) > 0 {
		spaceW = measureWidth(" ", sizePx, bold, italic, 0)
	}
	avail := s.availableWidth()

	if s.line.widthPx+spaceW+wordW <= avail {
		s.appendWordToLine(visible, run, spaceW+wordW)
		return
	}

	if s.cfg.SoftHyphenPolicy == Discretionary {
		budget := avail - s.line.widthPx - spaceW
		if prefix, remainder, ok := trySoftHyphenSplit(word, sizePx, bold, italic, s.cfg.LetterSpacingPx, budget); ok {
			withHyphen := prefix + "-"
			s.appendWordToLine(withHyphen, run, spaceW+measureWidth(withHyphen, sizePx, bold, italic, s.cfg.LetterSpacingPx))
			s.flushLine(false)
			if remainder != "" {
				s.addWord(remainder, run)
			}
			return
		}
	}

	if len(s.line.words) == 0 {
		s.appendWordToLine(visible, run, wordW)
		return
	}
	s.flushLine(false)
	s.addWord(word, run)
}

func (s *Session) appendWordToLine(text string, run renderprep.Run, addedWidth float64) {
	extraInset := 0.0
	bodyLike := s.block.role == renderprep.Body || s.block.role == renderprep.Paragraph
	if s.block.pendingIndent && len(s.line.words) == 0 && bodyLike && !s.block.inList {
		extraInset = s.cfg.FirstLineIndentPx
		s.block.pendingIndent = false
	}

	lh := lineHeightForSize(run.FontSizePx, run.LineHeight, s.cfg.MinLineHeightPx, s.cfg.MaxLineHeightPx)
	if lh > s.line.lineHeightPx {
		s.line.lineHeightPx = lh
	}
	s.line.widthPx += addedWidth
	s.line.words = append(s.line.words, laidWord{
		text: text, sizePx: run.FontSizePx, bold: run.Bold, italic: run.Italic,
		familyStack: run.FamilyStack, fontID: run.FontID, extraLeftInset: extraInset,
	})
}

// flushLine emits the current line's words as text commands and advances
// the cursor, or does nothing if the line is empty. isLastLineOfBlock
// suppresses justification per the flush-time decision.
func (s *Session) flushLine(isLastLineOfBlock bool) {
	if len(s.line.words) == 0 {
		return
	}
	lh := s.line.lineHeightPx
	if lh < s.cfg.MinLineHeightPx {
		lh = s.cfg.MinLineHeightPx
	}
	if lh > s.cfg.MaxLineHeightPx {
		lh = s.cfg.MaxLineHeightPx
	}

	s.ensureSpace(lh + s.cfg.ExtraLineGapPx)
	baselineY := s.cursorY + lh*0.8
	justify := s.decideJustify(isLastLineOfBlock)

	first := s.line.words[0]
	last := s.line.words[len(s.line.words)-1]
	texts := make([]string, len(s.line.words))
	for i, w := range s.line.words {
		texts[i] = w.text
	}
	x := s.cfg.Margins.Left + s.block.leftInsetPx + first.extraLeftInset

	s.currentContent = append(s.currentContent, DrawCommand{
		Kind: DrawText, X: x, BaselineY: baselineY, Text: strings.Join(texts, " "),
		FontID: last.fontID, FontSizePx: last.sizePx, Bold: last.bold, Italic: last.italic,
		FamilyStack: last.familyStack, Justify: justify,
	})

	s.cursorY += lh + s.cfg.ExtraLineGapPx
	s.line = lineBuffer{}
}

func (s *Session) decideJustify(isLastLineOfBlock bool) JustifyMode {
	t := s.cfg.Typography
	if !t.JustificationEnabled || isLastLineOfBlock {
		return JustifyMode{}
	}
	if s.block.role != renderprep.Body && s.block.role != renderprep.Paragraph {
		return JustifyMode{}
	}
	if len(s.line.words) < 2 || len(s.line.words) < t.JustificationMinWords {
		return JustifyMode{}
	}
	avail := s.availableWidth()
	if avail <= 0 {
		return JustifyMode{}
	}
	if s.line.widthPx/avail < t.JustificationMinFillRatio {
		return JustifyMode{}
	}
	extra := avail - s.line.widthPx
	if extra < 0 {
		extra = 0
	}
	return JustifyMode{Mode: JustifyInterWord, ExtraPxTotal: extra}
}

// Finish flushes any pending line and page, applies chrome annotations, and
// stamps chapter-relative page metrics. chapterIndex identifies the chapter
// these pages belong to; book-wide metrics are left for the caller to fill
// in once every chapter's page count is known.
func (s *Session) Finish(chapterIndex int) []RenderPage {
	s.flushLine(true)
	s.closeCurrentPage()
	s.annotateChrome()

	total := len(s.pages)
	for i := range s.pages {
		s.pages[i].Metrics = PageMetrics{
			ChapterIndex:     chapterIndex,
			ChapterPageIndex: i,
			ChapterPageCount: total,
			ChapterProgress:  float64(i+1) / float64(total),
		}
	}
	return s.pages
}
