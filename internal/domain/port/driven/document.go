package driven

// Document defines the driven port for the HTML document fragments are
// injected into. Implementations are not required to be safe for concurrent
// use; callers serialize access.
type Document interface {
	// ElementByID returns the element with the given id, or nil.
	ElementByID(id string) Element
	// QueryAll returns every element matching the CSS selector, in document
	// order. An invalid selector matches nothing.
	QueryAll(selector string) []Element
	// HTML renders the whole document.
	HTML() (string, error)
}

// Element is a single element of a Document.
type Element interface {
	ID() string
	Attr(name string) (string, bool)
	InnerHTML() (string, error)

	// ReplaceContent parses markup in the context of the element and replaces
	// all of its children. Listeners registered on removed nodes are dropped.
	ReplaceContent(markup string) error

	// Query returns the first descendant matching the CSS selector, or nil.
	// The element itself is never matched.
	Query(selector string) Element

	AddClass(name string)
	RemoveClass(name string)
	// ToggleClass flips the class and reports whether it is now present.
	ToggleClass(name string) bool
	HasClass(name string) bool

	// OnClick registers a click listener on the element.
	OnClick(fn func())
	// Click dispatches a click to the element, bubbling to its ancestors.
	Click()
}

// DocumentParser builds a Document from markup.
type DocumentParser interface {
	Parse(markup string) (Document, error)
}
