package layout

import "sort"

// ApplyOverlay asks composer for this page's overlay items given the
// logical viewport, appends them to the page's overlay stream in z-order,
// and re-synchronizes the merged stream. A nil composer is a no-op.
func ApplyOverlay(page *RenderPage, composer Composer, viewportWidthPx, viewportHeightPx float64) {
	if composer == nil {
		return
	}
	items := composer.Compose(page, viewportWidthPx, viewportHeightPx)
	if len(items) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ZOrder < items[j].ZOrder })

	for _, it := range items {
		switch it.ContentKind {
		case OverlayText:
			pos := overlayAnchor(it.Slot, it.Rect, viewportWidthPx, viewportHeightPx)
			page.Overlay = append(page.Overlay, DrawCommand{Kind: DrawText, X: pos.X, BaselineY: pos.Y, Text: it.Text})
		case OverlayDrawCommand:
			page.Overlay = append(page.Overlay, it.Draw)
		}
	}
	page.SyncCommands()
}

func overlayAnchor(slot OverlaySlot, rect Rect, w, h float64) Rect {
	switch slot {
	case TopLeft:
		return Rect{X: 0, Y: 0}
	case TopCenter:
		return Rect{X: w / 2, Y: 0}
	case TopRight:
		return Rect{X: w, Y: 0}
	case BottomLeft:
		return Rect{X: 0, Y: h}
	case BottomCenter:
		return Rect{X: w / 2, Y: h}
	case BottomRight:
		return Rect{X: w, Y: h}
	case Custom:
		return rect
	default:
		return Rect{}
	}
}
