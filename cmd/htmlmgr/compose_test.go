package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/fetch"
	"github.com/ericfisherdev/htmlmgr/internal/application"
)

const composePage = `<html><body>
<div id="header-container" data-fragment="fragments/header.html"></div>
<div id="sidebar-container" data-fragment="fragments/missing.html"><p>fallback</p></div>
</body></html>`

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte(composePage), 0o644))
	return path
}

func TestComposeFile_FromFS(t *testing.T) {
	retriever := fetch.NewFSRetriever(fstest.MapFS{
		"fragments/header.html": {Data: []byte(`<ul class="nav__menu"><li>Home</li></ul>`)},
	})
	var out bytes.Buffer

	err := composeFile(context.Background(), writePage(t), retriever, &out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), `<div id="header-container" data-fragment="fragments/header.html"><ul class="nav__menu"><li>Home</li></ul></div>`)
	assert.Contains(t, out.String(), `<p>fallback</p>`)
}

func TestComposeFile_FromHTTPWithSanitizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fragments/header.html" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<p>menu</p><script>alert(1)</script>`))
	}))
	defer srv.Close()

	retriever, err := fetch.NewHTTPRetriever(srv.URL + "/")
	require.NoError(t, err)
	var out bytes.Buffer

	err = composeFile(context.Background(), writePage(t), retriever, &out,
		application.WithSanitizer(bluemonday.UGCPolicy()))

	require.NoError(t, err)
	assert.Contains(t, out.String(), "<p>menu</p>")
	assert.NotContains(t, out.String(), "<script>")
}

func TestComposeFile_MissingPage(t *testing.T) {
	err := composeFile(context.Background(), filepath.Join(t.TempDir(), "nope.html"),
		fetch.NewFSRetriever(fstest.MapFS{}), &bytes.Buffer{})

	require.ErrorIs(t, err, os.ErrNotExist)
}

type failingCloser struct {
	bytes.Buffer
}

func (*failingCloser) Close() error { return errors.New("disk full") }

func TestComposeToFile_WritesOutput(t *testing.T) {
	retriever := fetch.NewFSRetriever(fstest.MapFS{
		"fragments/header.html": {Data: []byte(`<ul class="nav__menu"><li>Home</li></ul>`)},
	})
	name := filepath.Join(t.TempDir(), "out.html")

	err := composeToFile(context.Background(), writePage(t), name, retriever)

	require.NoError(t, err)
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<li>Home</li>`)
}

func TestComposeToFile_ReportsCloseError(t *testing.T) {
	out := &failingCloser{}
	orig := createOutput
	createOutput = func(string) (io.WriteCloser, error) { return out, nil }
	t.Cleanup(func() { createOutput = orig })

	err := composeToFile(context.Background(), writePage(t), "ignored.html", fetch.NewFSRetriever(fstest.MapFS{}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "close output: disk full")
	assert.Contains(t, out.String(), `<p>fallback</p>`)
}
