package dom

import (
	"fmt"
	"slices"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// Element is a handle to an element node of a Document. Handles are cheap;
// two handles to the same node share listeners and attributes.
type Element struct {
	doc  *Document
	node *html.Node
}

// ID returns the element's id attribute.
func (e *Element) ID() string {
	v, _ := attr(e.node, "id")
	return v
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	return attr(e.node, name)
}

// InnerHTML renders the element's children.
func (e *Element) InnerHTML() (string, error) {
	var b strings.Builder
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("render children of <%s>: %w", e.node.Data, err)
		}
	}
	return b.String(), nil
}

// ReplaceContent replaces all children with markup parsed in the element's
// context. The element is left untouched if markup cannot be parsed.
func (e *Element) ReplaceContent(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return fmt.Errorf("parse fragment for <%s>: %w", e.node.Data, err)
	}

	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.doc.forget(c)
		e.node.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

// Query returns the first descendant matching selector, or nil.
func (e *Element) Query(selector string) driven.Element {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil
	}
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if n := findFirst(c, sel.Match); n != nil {
			return e.doc.wrap(n)
		}
	}
	return nil
}

// AddClass adds name to the class attribute if absent.
func (e *Element) AddClass(name string) {
	classes := e.classes()
	if slices.Contains(classes, name) {
		return
	}
	e.setClasses(append(classes, name))
}

// RemoveClass removes every occurrence of name from the class attribute.
func (e *Element) RemoveClass(name string) {
	classes := e.classes()
	if !slices.Contains(classes, name) {
		return
	}
	e.setClasses(slices.DeleteFunc(classes, func(c string) bool { return c == name }))
}

// ToggleClass flips name and reports whether it is now present.
func (e *Element) ToggleClass(name string) bool {
	if e.HasClass(name) {
		e.RemoveClass(name)
		return false
	}
	e.AddClass(name)
	return true
}

// HasClass reports whether name is present in the class attribute.
func (e *Element) HasClass(name string) bool {
	return slices.Contains(e.classes(), name)
}

// OnClick registers fn to run when the element, or one of its descendants, is
// clicked.
func (e *Element) OnClick(fn func()) {
	e.doc.listeners[e.node] = append(e.doc.listeners[e.node], fn)
}

// Click runs the listeners of the element and then of each ancestor.
func (e *Element) Click() {
	for n := e.node; n != nil; n = n.Parent {
		// Copy so listeners registered during dispatch don't run this time.
		for _, fn := range slices.Clone(e.doc.listeners[n]) {
			fn()
		}
	}
}

func (e *Element) classes() []string {
	v, _ := attr(e.node, "class")
	return strings.Fields(v)
}

func (e *Element) setClasses(classes []string) {
	val := strings.Join(classes, " ")
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == "class" {
			e.node.Attr[i].Val = val
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: "class", Val: val})
}
