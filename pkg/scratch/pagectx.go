package scratch

// PageContext is position bookkeeping for resuming pagination from the
// middle of a chapter without replaying everything before it. Neither
// pkg/renderprep nor pkg/layout uses it; no package in this module passes
// one between them.
type PageContext struct {
	ByteOffset   int64
	EventIndex   int
	ElementStack []string
	PageNumber   int

	textAccum    []byte
	maxTextAccum int
}

// NewPageContext builds a PageContext whose text accumulator is capped at
// maxTextAccum bytes.
func NewPageContext(maxTextAccum int) *PageContext {
	return &PageContext{maxTextAccum: maxTextAccum}
}

// PushElement records descent into a named element.
func (p *PageContext) PushElement(name string) {
	p.ElementStack = append(p.ElementStack, name)
}

// PopElement records ascent out of the innermost element, if any.
func (p *PageContext) PopElement() {
	if n := len(p.ElementStack); n > 0 {
		p.ElementStack = p.ElementStack[:n-1]
	}
}

// AppendText appends p to the bounded text accumulator, truncating silently
// once maxTextAccum is reached — callers needing to know about truncation
// should check Truncated after the call.
func (p *PageContext) AppendText(s []byte) {
	room := p.maxTextAccum - len(p.textAccum)
	if room <= 0 {
		return
	}
	if len(s) > room {
		s = s[:room]
	}
	p.textAccum = append(p.textAccum, s...)
}

// Truncated reports whether the accumulator has reached its cap.
func (p *PageContext) Truncated() bool {
	return len(p.textAccum) >= p.maxTextAccum
}

// Text returns the accumulated text.
func (p *PageContext) Text() []byte {
	return p.textAccum
}

// ResetText clears the accumulator without releasing its capacity.
func (p *PageContext) ResetText() {
	p.textAccum = p.textAccum[:0]
}
