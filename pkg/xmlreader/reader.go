package xmlreader

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Reader is a pull-style event reader over a single XML document. It is not
// safe for concurrent use.
type Reader struct {
	dec     *xml.Decoder
	pending *Event
	done    bool
}

// NewReader prepares a Reader over raw document bytes. Non-UTF-8 input is
// transcoded or lossily repaired before parsing begins; XML declarations,
// DOCTYPEs, comments, and processing instructions are tolerated and simply
// produce no events.
func NewReader(raw []byte) *Reader {
	dec := xml.NewDecoder(bytes.NewReader(toUTF8(raw)))
	dec.Entity = xml.HTMLEntity
	dec.Strict = true
	// toUTF8 has already produced UTF-8, so a declared encoding such as
	// ISO-8859-1 or UTF-16 needs no further conversion.
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
	return &Reader{dec: dec}
}

// Next returns the next event in document order, or EventEOF once the
// document is exhausted. A <tag/> self-closed element is reported as a
// single EventSelfClosing rather than an adjacent start/end pair.
func (r *Reader) Next() (Event, error) {
	if r.pending != nil {
		e := *r.pending
		r.pending = nil
		if e.Kind != EventStartElement {
			return e, nil
		}
		next, eof, err := r.nextSignificant()
		if err != nil {
			return Event{}, err
		}
		if eof {
			r.done = true
			return e, nil
		}
		if end, ok := next.(xml.EndElement); ok && localName(end.Name) == e.Name {
			e.Kind = EventSelfClosing
			return e, nil
		}
		r.pending = tokenEvent(next)
		return e, nil
	}
	if r.done {
		return Event{Kind: EventEOF}, nil
	}

	tok, eof, err := r.nextSignificant()
	if err != nil {
		return Event{}, err
	}
	if eof {
		r.done = true
		return Event{Kind: EventEOF}, nil
	}

	switch t := tok.(type) {
	case xml.StartElement:
		ev := startEvent(t)
		next, eof, err := r.nextSignificant()
		if err != nil {
			return Event{}, err
		}
		if eof {
			r.done = true
			return ev, nil
		}
		if end, ok := next.(xml.EndElement); ok && localName(end.Name) == ev.Name {
			ev.Kind = EventSelfClosing
			return ev, nil
		}
		r.pending = tokenEvent(next)
		return ev, nil
	case xml.EndElement:
		return Event{Kind: EventEndElement, Name: localName(t.Name)}, nil
	case xml.CharData:
		return Event{Kind: EventText, Text: string(t)}, nil
	default:
		return Event{Kind: EventEOF}, nil
	}
}

// nextSignificant reads tokens from the underlying decoder, discarding
// comments, processing instructions, and directives, until a token that
// carries document content is found or the stream ends.
func (r *Reader) nextSignificant() (xml.Token, bool, error) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, true, nil
			}
			return nil, false, errors.WithStack(err)
		}
		switch tok.(type) {
		case xml.Comment, xml.ProcInst, xml.Directive:
			continue
		default:
			return tok, false, nil
		}
	}
}

// tokenEvent converts a raw xml.Token already known to be significant
// (never Comment/ProcInst/Directive, see nextSignificant) into an Event.
func tokenEvent(tok xml.Token) *Event {
	switch t := tok.(type) {
	case xml.StartElement:
		ev := startEvent(t)
		return &ev
	case xml.EndElement:
		return &Event{Kind: EventEndElement, Name: localName(t.Name)}
	case xml.CharData:
		return &Event{Kind: EventText, Text: string(t)}
	default:
		return nil
	}
}

func startEvent(t xml.StartElement) Event {
	attrs := make([]Attr, 0, len(t.Attr))
	for _, a := range t.Attr {
		attrs = append(attrs, Attr{Name: localName(a.Name), Value: a.Value})
	}
	return Event{Kind: EventStartElement, Name: localName(t.Name), Attrs: attrs}
}

// localName ASCII-lowercases the element or attribute name and strips any
// namespace prefix, per the shared reader contract used by every parser
// built on this package.
func localName(n xml.Name) string {
	local := n.Local
	if i := strings.LastIndexByte(local, ':'); i >= 0 {
		local = local[i+1:]
	}
	return strings.ToLower(local)
}
