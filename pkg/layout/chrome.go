package layout

import "fmt"

// annotateChrome pushes header/footer/progress commands onto every emitted
// page and rebuilds each page's merged stream.
func (s *Session) annotateChrome() {
	total := len(s.pages)
	for i := range s.pages {
		p := &s.pages[i]
		var chrome []DrawCommand
		label := fmt.Sprintf("Page %d", p.PageNumber)

		if s.cfg.Chrome.HeaderEnabled {
			chrome = append(chrome, DrawCommand{
				Kind: DrawChromeHeader, Text: label, X: s.cfg.Margins.Left,
				BaselineY: s.cfg.Chrome.HeaderYPx, FontSizePx: s.cfg.Chrome.TextSizePx,
			})
		}
		if s.cfg.Chrome.FooterEnabled {
			chrome = append(chrome, DrawCommand{
				Kind: DrawChromeFooter, Text: label, X: s.cfg.Margins.Left,
				BaselineY: s.cfg.Chrome.FooterYPx, FontSizePx: s.cfg.Chrome.TextSizePx,
			})
		}
		if s.cfg.Chrome.ProgressEnabled {
			chrome = append(chrome, DrawCommand{
				Kind: DrawChromeProgress, X: s.cfg.Margins.Left,
				BaselineY: s.cfg.Chrome.FooterYPx, FontSizePx: s.cfg.Chrome.TextSizePx,
				Current: p.PageNumber, Total: total,
			})
		}

		p.Chrome = chrome
		p.SyncCommands()
	}
}
