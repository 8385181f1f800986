package minify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinify_CSS(t *testing.T) {
	src := []byte(".nav__menu {\n    display : none ;\n}\n\n.nav__menu--active {\n    display: block;\n}\n")

	out, err := New().Minify(MediaCSS, src)

	require.NoError(t, err)
	assert.Contains(t, string(out), ".nav__menu{display:none}")
	assert.NotContains(t, string(out), "\n")
	assert.Less(t, len(out), len(src))
}

func TestMinify_HTMLKeepsStructure(t *testing.T) {
	src := []byte("<!DOCTYPE html>\n<html>\n  <body>\n    <div id=\"header-container\"   class=\"slot\">  </div>\n  </body>\n</html>\n")

	out, err := New().Minify(MediaHTML, src)

	require.NoError(t, err)
	assert.Contains(t, string(out), `id="header-container"`)
	assert.Contains(t, string(out), "<body>")
	assert.Less(t, len(out), len(src))
}

func TestMinify_UnknownMediaType(t *testing.T) {
	_, err := New().Minify("image/x-unknown", []byte("data"))
	require.Error(t, err)
}
