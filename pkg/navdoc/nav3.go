package navdoc

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseNav parses an EPUB3 XHTML navigation document, collecting the
// toc, page-list, and landmarks nav elements by epub:type. When more than
// one <nav> shares the same epub:type, the later one in document order
// wins.
func ParseNav(data []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "navdoc: parse nav document")
	}

	doc := &Document{}
	walkNavElements(root, func(n *html.Node) {
		types := strings.Fields(attrVal(n, "epub:type"))
		ol := firstDescendant(n, atom.Ol)
		if ol == nil {
			return
		}
		points := parseList(ol)
		for _, t := range types {
			switch t {
			case "toc":
				doc.TOC = points
			case "page-list":
				doc.PageList = points
			case "landmarks":
				doc.Landmarks = points
			}
		}
	})
	return doc, nil
}

func walkNavElements(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Nav {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNavElements(c, visit)
	}
}

func parseList(ol *html.Node) []NavPoint {
	var points []NavPoint
	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		if p, ok := parseListItem(li); ok {
			points = append(points, p)
		}
	}
	return points
}

func parseListItem(li *html.Node) (NavPoint, bool) {
	var p NavPoint
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.A:
			if p.Href == "" {
				p.Href = attrVal(c, "href")
				p.Label = joinedText(c)
			}
		case atom.Span:
			if p.Label == "" {
				p.Label = joinedText(c)
			}
		case atom.Ol:
			p.Children = parseList(c)
		}
	}
	if p.Href == "" && p.Label == "" {
		return NavPoint{}, false
	}
	return p, true
}

// joinedText concatenates the descendant text nodes of n, joining separate
// runs with a single space so inline wrappers (<em>, <span>, ...) inside an
// anchor label don't run words together.
func joinedText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstDescendant(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := firstDescendant(c, a); found != nil {
			return found
		}
	}
	return nil
}
