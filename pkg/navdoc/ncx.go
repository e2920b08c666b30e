package navdoc

import (
	"strings"

	"github.com/muepub/muepub/pkg/xmlreader"
)

// ParseNCX parses an EPUB2 NCX document, returning its navMap as TOC and
// its pageList as PageList.
func ParseNCX(data []byte) (*Document, error) {
	r := xmlreader.NewReader(data)
	doc := &Document{}

	var (
		section string // "", "navmap", "pagelist"
		stack   []*ncxBuilder
		// label/content state for the innermost navlabel/text or content element
		inLabelText bool
		labelText   strings.Builder
	)

	flushFrame := func() {
		if len(stack) == 0 {
			return
		}
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		np := NavPoint{Label: strings.TrimSpace(b.label), Href: b.href, Children: b.children}
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, np)
		} else {
			switch section {
			case "navmap":
				doc.TOC = append(doc.TOC, np)
			case "pagelist":
				doc.PageList = append(doc.PageList, np)
			}
		}
	}

	for {
		ev, err := r.Next()
		if err != nil {
			return nil, err
		}
		if ev.Kind == xmlreader.EventEOF {
			break
		}

		pointTag := pointElementFor(section)

		switch ev.Kind {
		case xmlreader.EventStartElement, xmlreader.EventSelfClosing:
			switch {
			case ev.Name == "navmap":
				section = "navmap"
			case ev.Name == "pagelist":
				section = "pagelist"
			case pointTag != "" && ev.Name == pointTag:
				stack = append(stack, &ncxBuilder{})
				if ev.Kind == xmlreader.EventSelfClosing {
					flushFrame()
				}
			case ev.Name == "text" && len(stack) > 0:
				inLabelText = true
				labelText.Reset()
			case ev.Name == "content" && len(stack) > 0:
				if src, ok := ev.Attr("src"); ok {
					stack[len(stack)-1].href = src
				}
			}
		case xmlreader.EventText:
			if inLabelText {
				labelText.WriteString(ev.Text)
			}
		case xmlreader.EventEndElement:
			switch {
			case ev.Name == "text":
				if inLabelText && len(stack) > 0 {
					stack[len(stack)-1].label = labelText.String()
				}
				inLabelText = false
			case pointTag != "" && ev.Name == pointTag:
				flushFrame()
			case ev.Name == "navmap" || ev.Name == "pagelist":
				section = ""
			}
		}
	}

	return doc, nil
}

type ncxBuilder struct {
	label    string
	href     string
	children []NavPoint
}

func pointElementFor(section string) string {
	switch section {
	case "navmap":
		return "navpoint"
	case "pagelist":
		return "pagetarget"
	default:
		return ""
	}
}
