package validate

import "github.com/muepub/muepub/pkg/xmlreader"

// cipherReferences scans an encryption.xml or rights.xml sidecar for every
// CipherReference URI attribute, failing on malformed XML.
func cipherReferences(data []byte) ([]string, error) {
	r := xmlreader.NewReader(data)
	var refs []string
	for {
		ev, err := r.Next()
		if err != nil {
			return nil, err
		}
		if ev.Kind == xmlreader.EventEOF {
			break
		}
		if ev.Kind != xmlreader.EventStartElement && ev.Kind != xmlreader.EventSelfClosing {
			continue
		}
		if ev.Name != "cipherreference" {
			continue
		}
		if uri, ok := ev.Attr("uri"); ok && uri != "" {
			refs = append(refs, uri)
		}
	}
	return refs, nil
}
