package layout

import (
	"math"
	"strings"
)

const softHyphen = '\u00AD'

// charWidthFactor approximates a backend-agnostic per-character width as a
// fraction of the font size: bold glyphs run widest, upright regular next,
// italic narrowest.
func charWidthFactor(bold, italic bool) float64 {
	switch {
	case bold:
		return 0.62
	case italic:
		return 0.55
	default:
		return 0.58
	}
}

// measureWidth approximates the rendered width of text at sizePx.
func measureWidth(text string, sizePx float64, bold, italic bool, letterSpacingPx float64) float64 {
	chars := utf8RuneCount(text)
	if chars == 0 {
		return 0
	}
	w := float64(chars) * sizePx * charWidthFactor(bold, italic)
	if chars > 1 {
		w += float64(chars-1) * letterSpacingPx
	}
	return w
}

func utf8RuneCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// lineHeightForSize rounds size_px * multiplier and clamps to [min, max].
func lineHeightForSize(sizePx, multiplier, minLH, maxLH float64) float64 {
	lh := math.Round(sizePx * multiplier)
	if lh < minLH {
		lh = minLH
	}
	if lh > maxLH {
		lh = maxLH
	}
	return lh
}

func stripSoftHyphens(s string) string {
	return strings.ReplaceAll(s, string(softHyphen), "")
}

// trySoftHyphenSplit tries each soft-hyphen position in word, longest prefix
// first, returning the first (prefix, remainder) pair whose "prefix-" fits
// within budget px. The visible hyphen is not included in either return
// value; callers append it to the prefix themselves.
func trySoftHyphenSplit(word string, sizePx float64, bold, italic bool, letterSpacingPx, budget float64) (prefix, remainder string, ok bool) {
	runes := []rune(word)
	var positions []int
	for i, r := range runes {
		if r == softHyphen {
			positions = append(positions, i)
		}
	}
	if len(positions) == 0 {
		return "", "", false
	}
	for i := len(positions) - 1; i >= 0; i-- {
		pos := positions[i]
		candidatePrefix := stripSoftHyphens(string(runes[:pos]))
		withHyphen := candidatePrefix + "-"
		if measureWidth(withHyphen, sizePx, bold, italic, letterSpacingPx) <= budget {
			return candidatePrefix, stripSoftHyphens(string(runes[pos+1:])), true
		}
	}
	return "", "", false
}
