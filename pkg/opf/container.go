package opf

import "github.com/muepub/muepub/pkg/xmlreader"

// ParseContainer extracts the full-path of the first <rootfile> element from
// META-INF/container.xml bytes, failing with InvalidEpub if none is present.
func ParseContainer(raw []byte) (string, error) {
	r := xmlreader.NewReader(raw)
	for {
		ev, err := r.Next()
		if err != nil {
			return "", newErr(MalformedXML, "container.xml", err)
		}
		if ev.Kind == xmlreader.EventEOF {
			break
		}
		if ev.Kind != xmlreader.EventStartElement && ev.Kind != xmlreader.EventSelfClosing {
			continue
		}
		if ev.Name != "rootfile" {
			continue
		}
		if path, ok := ev.Attr("full-path"); ok && path != "" {
			return path, nil
		}
	}
	return "", newErr(InvalidEpub, "container.xml declares no usable rootfile", nil)
}
