// Package memory provides in-process implementations of driven ports.
package memory

import (
	"context"
	"sync"

	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FragmentCache = (*FragmentCache)(nil)

// FragmentCache holds retrieved fragment markup for the lifetime of the
// process. It can safely be used by multiple goroutines.
type FragmentCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewFragmentCache returns an empty FragmentCache.
func NewFragmentCache() *FragmentCache {
	return &FragmentCache{entries: map[string]string{}}
}

// Get returns the markup cached for locator.
func (c *FragmentCache) Get(_ context.Context, locator string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	markup, ok := c.entries[locator]
	return markup, ok
}

// Set caches markup for locator, replacing any previous entry.
func (c *FragmentCache) Set(_ context.Context, locator, markup string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[locator] = markup
}

// Len returns the number of cached fragments.
func (c *FragmentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
