package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/fetch"
)

// newTestRetriever creates an HTTPRetriever backed by the given httptest handler.
func newTestRetriever(t *testing.T, handler http.Handler) *fetch.HTTPRetriever {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	r, err := fetch.NewHTTPRetrieverWithClient(server.Client(), server.URL+"/")
	require.NoError(t, err)
	return r
}

func TestHTTPRetriever_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /fragments/header.html", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<nav class="nav"></nav>`))
	})
	r := newTestRetriever(t, mux)

	res, err := r.Retrieve(context.Background(), "fragments/header.html")

	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, `<nav class="nav"></nav>`, res.Body)
}

func TestHTTPRetriever_NotFoundIsNotAnError(t *testing.T) {
	r := newTestRetriever(t, http.NotFoundHandler())

	res, err := r.Retrieve(context.Background(), "missing.html")

	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestHTTPRetriever_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	r, err := fetch.NewHTTPRetrieverWithClient(http.DefaultClient, url)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "fragments/header.html")
	require.Error(t, err)
}

func TestHTTPRetriever_CanceledContext(t *testing.T) {
	r := newTestRetriever(t, http.NotFoundHandler())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Retrieve(ctx, "fragments/header.html")
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewHTTPRetriever_RevalidatesWithETag(t *testing.T) {
	var full, notModified atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		full.Add(1)
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte("<aside></aside>"))
	}))
	t.Cleanup(server.Close)

	r, err := fetch.NewHTTPRetriever(server.URL)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := r.Retrieve(context.Background(), "/fragments/sidebar.html")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Equal(t, "<aside></aside>", res.Body)
	}

	assert.Equal(t, int32(1), full.Load())
	assert.Equal(t, int32(1), notModified.Load())
}
