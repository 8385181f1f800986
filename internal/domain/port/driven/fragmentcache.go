package driven

import "context"

// FragmentCache defines the driven port for retrieved fragment markup keyed by
// locator. Entries are never evicted.
type FragmentCache interface {
	Get(ctx context.Context, locator string) (string, bool)
	Set(ctx context.Context, locator, markup string)
}
