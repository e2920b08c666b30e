// Package layout consumes a render-prep styled event stream and emits
// paginated RenderPages: ordered draw-command streams ready for a
// presentation-layer backend to draw, with no backend dependency of its own.
package layout

// SoftHyphenPolicy controls whether a U+00AD soft hyphen may become a
// visible line break.
type SoftHyphenPolicy int

const (
	Ignore SoftHyphenPolicy = iota
	Discretionary
)

// Justify identifies how a line's inter-word space is distributed.
type Justify int

const (
	JustifyNone Justify = iota
	JustifyInterWord
)

// JustifyMode carries the justification decision for one text command.
type JustifyMode struct {
	Mode           Justify
	ExtraPxTotal   float64
}

// Margins bounds the printable content area within the display.
type Margins struct {
	Left, Right, Top, Bottom float64
}

// ChromeConfig controls the header/footer/progress annotations applied
// after a chapter finishes pagination.
type ChromeConfig struct {
	HeaderEnabled   bool
	FooterEnabled   bool
	ProgressEnabled bool
	HeaderYPx       float64
	FooterYPx       float64
	TextSizePx      float64
}

// TypographyPolicy controls optional text-shaping refinements.
type TypographyPolicy struct {
	HyphenationEnabled       bool
	WidowOrphanEnabled       bool
	WidowOrphanMinLines      int
	JustificationEnabled     bool
	JustificationMinWords    int
	JustificationMinFillRatio float64
	HangingPunctuation       bool
}

// ObjectLayoutPolicy controls how non-text content is laid out.
type ObjectLayoutPolicy struct {
	MaxInlineImageHeightRatio float64
	FloatSupport              bool
	SVGMode                   string
	AltTextFallback           bool
}

// RenderIntent describes presentation-layer rendering hints the layout
// engine passes through without interpreting.
type RenderIntent struct {
	GrayscaleMode        bool
	DitherMode           string
	ContrastBoostPercent int
}

// Config is the full layout configuration. Its serialized form is the input
// to the pagination profile id.
type Config struct {
	DisplayWidthPx, DisplayHeightPx float64
	Margins                         Margins
	ExtraLineGapPx                  float64
	ParagraphGapPx                  float64
	HeadingGapPx                    float64
	ListIndentPx                    float64
	FirstLineIndentPx               float64
	SuppressIndentAfterHeading      bool
	LetterSpacingPx                 float64
	MinLineHeightPx, MaxLineHeightPx float64
	SoftHyphenPolicy                SoftHyphenPolicy
	Chrome                          ChromeConfig
	Typography                      TypographyPolicy
	ObjectLayout                    ObjectLayoutPolicy
	Intent                          RenderIntent
}

// DefaultConfig targets a typical embedded e-reader display.
func DefaultConfig() Config {
	return Config{
		DisplayWidthPx: 480, DisplayHeightPx: 800,
		Margins:            Margins{Left: 16, Right: 16, Top: 16, Bottom: 24},
		ExtraLineGapPx:     0,
		ParagraphGapPx:     8,
		HeadingGapPx:       12,
		ListIndentPx:       20,
		FirstLineIndentPx:  0,
		LetterSpacingPx:    0,
		MinLineHeightPx:    10,
		MaxLineHeightPx:    96,
		SoftHyphenPolicy:   Discretionary,
		Chrome:             ChromeConfig{TextSizePx: 12, FooterYPx: 788},
		Typography: TypographyPolicy{
			JustificationEnabled: true, JustificationMinWords: 4, JustificationMinFillRatio: 0.75,
		},
		ObjectLayout: ObjectLayoutPolicy{MaxInlineImageHeightRatio: 0.8},
	}
}

// DrawKind identifies the origin/shape of a draw command.
type DrawKind int

const (
	DrawText DrawKind = iota
	DrawChromeHeader
	DrawChromeFooter
	DrawChromeProgress
)

// DrawCommand is a single positioned draw instruction. Chrome-only fields
// (Current, Total) are zero for content-origin commands.
type DrawCommand struct {
	Kind         DrawKind
	X, BaselineY float64
	Text         string
	FontID       int
	FontSizePx   float64
	Bold, Italic bool
	FamilyStack  []string
	Justify      JustifyMode
	Current, Total int
}

// OverlaySlot anchors an overlay item within the page viewport.
type OverlaySlot int

const (
	TopLeft OverlaySlot = iota
	TopCenter
	TopRight
	BottomLeft
	BottomCenter
	BottomRight
	Custom
)

// Rect is a caller-defined rectangle used only when Slot == Custom.
type Rect struct {
	X, Y, Width, Height float64
}

// OverlayContentKind distinguishes a plain text overlay item from a raw
// draw command supplied by the composer.
type OverlayContentKind int

const (
	OverlayText OverlayContentKind = iota
	OverlayDrawCommand
)

// OverlayItem is one item a composer hook contributes to a page's overlay
// stream.
type OverlayItem struct {
	Slot        OverlaySlot
	Rect        Rect // only meaningful when Slot == Custom
	ZOrder      int
	ContentKind OverlayContentKind
	Text        string
	Draw        DrawCommand
}

// Composer produces overlay items for a page given the logical viewport.
type Composer interface {
	Compose(page *RenderPage, viewportWidth, viewportHeight float64) []OverlayItem
}

// Annotation is a structured, non-drawable note attached to a page (e.g.
// list markers, widow/orphan adjustments) for callers that want more than
// the draw-command streams.
type Annotation struct {
	Kind string
	Text string
}

// PageMetrics locates a page within its chapter and, optionally, the book.
type PageMetrics struct {
	ChapterIndex     int
	ChapterPageIndex int
	ChapterPageCount int
	GlobalPageIndex  *int
	GlobalPageCount  *int
	ChapterProgress  float64
	BookProgress     float64
}

// RenderPage is one paginated screen's worth of draw commands.
type RenderPage struct {
	PageNumber  int
	Metrics     PageMetrics
	Content     []DrawCommand
	Chrome      []DrawCommand
	Overlay     []DrawCommand
	Merged      []DrawCommand
	Annotations []Annotation
}

// SyncCommands rebuilds Merged from Content ∥ Chrome ∥ Overlay. Idempotent:
// calling it repeatedly with no intervening mutation leaves Merged
// unchanged.
func (p *RenderPage) SyncCommands() {
	merged := make([]DrawCommand, 0, len(p.Content)+len(p.Chrome)+len(p.Overlay))
	merged = append(merged, p.Content...)
	merged = append(merged, p.Chrome...)
	merged = append(merged, p.Overlay...)
	p.Merged = merged
}
