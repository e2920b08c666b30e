package cssstyle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSheetSelectorsAndDeclarations(t *testing.T) {
	css := `
	/* a comment */
	p { font-size: 1.2em; line-height: 1.4; }
	.note { font-weight: bold; font-style: italic; }
	h1.title { font-family: "Georgia", serif; text-align: center; margin: 10px; }
	malformed { no-colon-here }
	`
	sheet, err := ParseSheet(css, DefaultLimits())
	require.NoError(t, err)
	require.Len(t, sheet.Rules, 4)

	assert.Equal(t, "p", sheet.Rules[0].Selector.Tag)
	require.NotNil(t, sheet.Rules[0].Decl.FontSizeEm)
	assert.Equal(t, 1.2, *sheet.Rules[0].Decl.FontSizeEm)
	require.NotNil(t, sheet.Rules[0].Decl.LineHeightMultiplier)
	assert.Equal(t, 1.4, *sheet.Rules[0].Decl.LineHeightMultiplier)

	assert.Equal(t, "note", sheet.Rules[1].Selector.Class)
	require.NotNil(t, sheet.Rules[1].Decl.FontWeightBold)
	assert.True(t, *sheet.Rules[1].Decl.FontWeightBold)
	require.NotNil(t, sheet.Rules[1].Decl.FontStyleItalic)
	assert.True(t, *sheet.Rules[1].Decl.FontStyleItalic)

	assert.Equal(t, "h1", sheet.Rules[2].Selector.Tag)
	assert.Equal(t, "title", sheet.Rules[2].Selector.Class)
	assert.Equal(t, []string{"Georgia", "serif"}, sheet.Rules[2].Decl.FontFamily)
	require.NotNil(t, sheet.Rules[2].Decl.MarginTopPx)
	assert.Equal(t, 10.0, *sheet.Rules[2].Decl.MarginTopPx)
	assert.Equal(t, *sheet.Rules[2].Decl.MarginTopPx, *sheet.Rules[2].Decl.MarginBottomPx)

	assert.Equal(t, "malformed", sheet.Rules[3].Selector.Tag)
	assert.Nil(t, sheet.Rules[3].Decl.FontSizePx)
}

func TestCascadeDocumentOrderAndInlineLast(t *testing.T) {
	sheet1, _ := ParseSheet(`p { font-size: 10px; }`, DefaultLimits())
	sheet2, _ := ParseSheet(`p { font-size: 20px; } .big { font-size: 30px; }`, DefaultLimits())
	inline := ParseInlineStyle("font-size: 40px")

	result := Resolve([]*Sheet{sheet1, sheet2}, "p", []string{"big"}, &inline)
	require.NotNil(t, result.FontSizePx)
	assert.Equal(t, 40.0, *result.FontSizePx)

	noInline := Resolve([]*Sheet{sheet1, sheet2}, "p", []string{"big"}, nil)
	require.NotNil(t, noInline.FontSizePx)
	assert.Equal(t, 30.0, *noInline.FontSizePx)
}

func TestSelectorMatching(t *testing.T) {
	sel := Selector{Tag: "p", Class: "note"}
	assert.True(t, sel.Matches("p", []string{"note", "other"}))
	assert.False(t, sel.Matches("p", []string{"other"}))
	assert.False(t, sel.Matches("div", []string{"note"}))

	anyTag := Selector{Class: "note"}
	assert.True(t, anyTag.Matches("span", []string{"note"}))
}

func TestLineHeightNormalUnsets(t *testing.T) {
	sheet, _ := ParseSheet(`p { line-height: 1.5; }`, DefaultLimits())
	d := sheet.Rules[0].Decl
	require.NotNil(t, d.LineHeightMultiplier)

	var merged Declaration
	merged.Merge(d)
	merged.Merge(Declaration{LineHeightNormal: true})
	assert.True(t, merged.LineHeightNormal)
	assert.Nil(t, merged.LineHeightMultiplier)
}
