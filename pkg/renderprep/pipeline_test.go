package renderprep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muepub/muepub/pkg/cssstyle"
)

func runsOf(t *testing.T, events []Event) []Run {
	t.Helper()
	var runs []Run
	for _, e := range events {
		if e.Kind == RunEvent {
			runs = append(runs, e.Run)
		}
	}
	return runs
}

func TestPrepareParagraphAndHeadingStructure(t *testing.T) {
	events, err := Prepare([]byte(`<h1>Title</h1><p>Body text</p>`), nil, nil, DefaultConfig())
	require.NoError(t, err)

	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []EventKind{HeadingStart, RunEvent, HeadingEnd, ParagraphStart, RunEvent, ParagraphEnd}, kinds)

	runs := runsOf(t, events)
	require.Len(t, runs, 2)
	assert.Equal(t, Heading, runs[0].Role)
	assert.Equal(t, 1, runs[0].HeadingLevel)
	assert.Equal(t, Paragraph, runs[1].Role)
}

func TestPrepareHeading1And2GetLargerDefaultSize(t *testing.T) {
	events, err := Prepare([]byte(`<h1>A</h1><h3>B</h3><p>C</p>`), nil, nil, DefaultConfig())
	require.NoError(t, err)
	runs := runsOf(t, events)
	require.Len(t, runs, 3)
	assert.Equal(t, 20.0, runs[0].FontSizePx) // 16 * 1.25
	assert.Equal(t, 16.0, runs[1].FontSizePx) // h3 falls back to base
	assert.Equal(t, 16.0, runs[2].FontSizePx)
}

func TestPrepareStrongAndEmphasisForceWeightAndStyle(t *testing.T) {
	events, err := Prepare([]byte(`<p>plain <strong>bold</strong> <em>italic</em></p>`), nil, nil, DefaultConfig())
	require.NoError(t, err)
	runs := runsOf(t, events)
	require.Len(t, runs, 3)
	assert.False(t, runs[0].Bold)
	assert.False(t, runs[0].Italic)
	assert.True(t, runs[1].Bold)
	assert.True(t, runs[2].Italic)
}

func TestPrepareCascadeFromStylesheetAndInlineOverride(t *testing.T) {
	sheet, err := cssstyle.ParseSheet(`p { font-size: 20px; } .callout { font-size: 30px; }`, cssstyle.DefaultLimits())
	require.NoError(t, err)

	events, err := Prepare(
		[]byte(`<p>default</p><p class="callout">big</p><p style="font-size: 40px">inline wins</p>`),
		[]*cssstyle.Sheet{sheet}, nil, DefaultConfig(),
	)
	require.NoError(t, err)
	runs := runsOf(t, events)
	require.Len(t, runs, 3)
	assert.Equal(t, 20.0, runs[0].FontSizePx)
	assert.Equal(t, 30.0, runs[1].FontSizePx)
	assert.Equal(t, 40.0, runs[2].FontSizePx)
}

func TestPrepareListItemRole(t *testing.T) {
	events, err := Prepare([]byte(`<ul><li>one</li><li>two</li></ul>`), nil, nil, DefaultConfig())
	require.NoError(t, err)
	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []EventKind{ListItemStart, RunEvent, ListItemEnd, ListItemStart, RunEvent, ListItemEnd}, kinds)
	runs := runsOf(t, events)
	for _, r := range runs {
		assert.Equal(t, ListItem, r.Role)
	}
}

func TestPrepareLineBreakEvent(t *testing.T) {
	events, err := Prepare([]byte(`<p>one<br/>two</p>`), nil, nil, DefaultConfig())
	require.NoError(t, err)
	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, LineBreakEvent)
}

func TestPrepareLineHeightNormalizedToMultiplier(t *testing.T) {
	sheet, err := cssstyle.ParseSheet(`p { font-size: 20px; line-height: 30px; }`, cssstyle.DefaultLimits())
	require.NoError(t, err)
	events, err := Prepare([]byte(`<p>text</p>`), []*cssstyle.Sheet{sheet}, nil, DefaultConfig())
	require.NoError(t, err)
	runs := runsOf(t, events)
	require.Len(t, runs, 1)
	assert.InDelta(t, 1.5, runs[0].LineHeight, 0.0001) // 30px / 20px
}

func TestPrepareFontFamilyDefaultsToSerif(t *testing.T) {
	events, err := Prepare([]byte(`<p>text</p>`), nil, nil, DefaultConfig())
	require.NoError(t, err)
	runs := runsOf(t, events)
	require.Len(t, runs, 1)
	assert.Equal(t, []string{"serif"}, runs[0].FamilyStack)
}

func TestPrepareRejectsUnclosedElement(t *testing.T) {
	_, err := Prepare([]byte(`<p>unterminated`), nil, nil, DefaultConfig())
	require.Error(t, err)
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, MalformedMarkup, rerr.Kind)
}

func TestPrepareWithFontLibraryResolvesFontID(t *testing.T) {
	lib := NewFontLibrary(DefaultConfig().FontLimits)
	_, err := lib.RegisterFace(FaceDescriptor{Family: "serif", Weight: 400, Href: "fonts/body.ttf"}, func(string) ([]byte, error) {
		return []byte("not-a-real-font-but-unvalidated-is-fine"), nil
	})
	require.NoError(t, err)

	events, err := Prepare([]byte(`<p>text</p>`), nil, lib, DefaultConfig())
	require.NoError(t, err)
	runs := runsOf(t, events)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].FontID)
	assert.False(t, runs[0].MissingGlyphRisk)
}

func TestPrepareWalksFamilyStackPastUnmatchedFirstEntry(t *testing.T) {
	lib := NewFontLibrary(DefaultConfig().FontLimits)
	idSerif, err := lib.RegisterFace(FaceDescriptor{Family: "serif", Weight: 400, Href: "fonts/body.ttf"}, stubLoader([]byte("stub")))
	require.NoError(t, err)

	sheet, err := cssstyle.ParseSheet(`p { font-family: "Exotic Display", serif; }`, cssstyle.DefaultLimits())
	require.NoError(t, err)

	events, err := Prepare([]byte(`<p>text</p>`), []*cssstyle.Sheet{sheet}, lib, DefaultConfig())
	require.NoError(t, err)
	runs := runsOf(t, events)
	require.Len(t, runs, 1)
	assert.Equal(t, idSerif, runs[0].FontID)
	assert.Equal(t, "serif", runs[0].ResolvedFamily)
	assert.False(t, runs[0].MissingGlyphRisk, "a later family stack entry matched, so no glyph risk")
}

func TestPrepareMissingGlyphRiskOnNonASCIIFallback(t *testing.T) {
	lib := NewFontLibrary(DefaultConfig().FontLimits)
	_, err := lib.RegisterFace(FaceDescriptor{Family: "serif", Weight: 400, Href: "fonts/body.ttf"}, func(string) ([]byte, error) {
		return []byte("stub"), nil
	})
	require.NoError(t, err)

	sheet, err := cssstyle.ParseSheet(`p { font-family: "Exotic Display"; }`, cssstyle.DefaultLimits())
	require.NoError(t, err)

	events, err := Prepare([]byte(`<p>café</p>`), []*cssstyle.Sheet{sheet}, lib, DefaultConfig())
	require.NoError(t, err)
	runs := runsOf(t, events)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].MissingGlyphRisk)
}
