// Package minify implements the Minifier port with tdewolff/minify.
package minify

import (
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// Media types accepted by Minify.
const (
	MediaCSS  = "text/css"
	MediaHTML = "text/html"
	MediaJS   = "application/javascript"
)

// Compile-time interface satisfaction check.
var _ driven.Minifier = (*Minifier)(nil)

// Minifier minifies CSS, HTML and JavaScript. It is safe for concurrent use.
type Minifier struct {
	m *minify.M
}

// New returns a Minifier with CSS, HTML and JS minifiers registered.
func New() *Minifier {
	m := minify.New()
	m.AddFunc(MediaCSS, css.Minify)
	m.AddFunc(MediaJS, js.Minify)
	m.Add(MediaHTML, &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return &Minifier{m: m}
}

// Minify returns data minified according to mediaType.
func (mf *Minifier) Minify(mediaType string, data []byte) ([]byte, error) {
	out, err := mf.m.Bytes(mediaType, data)
	if err != nil {
		return nil, fmt.Errorf("minify %s: %w", mediaType, err)
	}
	return out, nil
}
