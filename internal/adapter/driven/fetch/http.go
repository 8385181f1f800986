// Package fetch implements the Retriever port over HTTP and over an fs.FS.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// maxFragmentBytes caps how much of a response body is read.
const maxFragmentBytes = 4 << 20

// Compile-time interface satisfaction check.
var _ driven.Retriever = (*HTTPRetriever)(nil)

// HTTPRetriever fetches fragments with GET requests. Relative locators are
// resolved against the base URL.
type HTTPRetriever struct {
	client *http.Client
	base   *url.URL
}

// NewHTTPRetriever creates a retriever whose transport is an httpcache
// memory cache, so unchanged fragments are revalidated with ETag /
// Last-Modified conditional requests.
func NewHTTPRetriever(baseURL string) (*HTTPRetriever, error) {
	return NewHTTPRetrieverWithClient(httpcache.NewMemoryCacheTransport().Client(), baseURL)
}

// NewHTTPRetrieverWithClient creates a retriever with a custom http.Client.
// baseURL may be empty, in which case locators must be absolute URLs.
func NewHTTPRetrieverWithClient(client *http.Client, baseURL string) (*HTTPRetriever, error) {
	r := &HTTPRetriever{client: client}
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing base URL: %w", err)
		}
		r.base = u
	}
	return r, nil
}

// Retrieve fetches locator. Any HTTP response, successful or not, is returned
// as a model.Retrieval; errors are reserved for requests that got no response.
func (r *HTTPRetriever) Retrieve(ctx context.Context, locator string) (model.Retrieval, error) {
	target, err := url.Parse(locator)
	if err != nil {
		return model.Retrieval{}, fmt.Errorf("parsing locator %q: %w", locator, err)
	}
	if r.base != nil {
		target = r.base.ResolveReference(target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return model.Retrieval{}, fmt.Errorf("building request for %q: %w", locator, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := r.client.Do(req)
	if err != nil {
		return model.Retrieval{}, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentBytes))
	if err != nil {
		return model.Retrieval{}, fmt.Errorf("reading %s: %w", target, err)
	}

	slog.Debug("fragment fetched",
		"url", target.String(),
		"status", resp.StatusCode,
		"from_cache", resp.Header.Get(httpcache.XFromCache) != "",
	)

	return model.Retrieval{Status: resp.StatusCode, Body: string(body)}, nil
}
