// Package dom implements the Document port on top of golang.org/x/net/html,
// with CSS selector matching from cascadia and an in-memory click listener
// registry.
package dom

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.Document       = (*Document)(nil)
	_ driven.Element        = (*Element)(nil)
	_ driven.DocumentParser = Parser{}
)

// Document is a parsed HTML document. It is not safe for concurrent use.
type Document struct {
	root      *html.Node
	listeners map[*html.Node][]func()
}

// Parse parses a full HTML document. Missing html/head/body elements are
// synthesized as browsers do.
func Parse(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{
		root:      root,
		listeners: make(map[*html.Node][]func()),
	}, nil
}

// Parser adapts Parse to the driven.DocumentParser port.
type Parser struct{}

// Parse implements driven.DocumentParser.
func (Parser) Parse(markup string) (driven.Document, error) {
	doc, err := Parse(markup)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ElementByID returns the first element whose id attribute equals id.
func (d *Document) ElementByID(id string) driven.Element {
	if id == "" {
		return nil
	}
	n := findFirst(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return ok && v == id
	})
	if n == nil {
		return nil
	}
	return d.wrap(n)
}

// QueryAll returns every element matching selector in document order.
func (d *Document) QueryAll(selector string) []driven.Element {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil
	}
	var out []driven.Element
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && sel.Match(n) {
			out = append(out, d.wrap(n))
		}
		return true
	})
	return out
}

// HTML renders the document.
func (d *Document) HTML() (string, error) {
	var b strings.Builder
	if err := html.Render(&b, d.root); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return b.String(), nil
}

// ListenerCount returns the number of click listeners currently attached
// anywhere in the document.
func (d *Document) ListenerCount() int {
	total := 0
	for _, fns := range d.listeners {
		total += len(fns)
	}
	return total
}

func (d *Document) wrap(n *html.Node) *Element {
	return &Element{doc: d, node: n}
}

// forget drops the listeners of n and all of its descendants.
func (d *Document) forget(n *html.Node) {
	walk(n, func(c *html.Node) bool {
		delete(d.listeners, c)
		return true
	})
}

// walk visits n and its descendants depth first until visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
