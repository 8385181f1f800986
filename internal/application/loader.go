package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// FragmentAttr is the attribute through which a mount point declares the
// fragment Compose should inject into it.
const FragmentAttr = "data-fragment"

// FragmentLoader retrieves fragment markup, injects it into mount points of a
// document and wires mount-point-specific behaviour into the injected
// subtree.
//
// A locator retrieved successfully is served from the cache from then on;
// concurrent loads of the same uncached locator share a single retrieval.
// Document access is serialized, so concurrent loads into the same mount
// point resolve as last-completed-wins. FragmentLoader is safe for concurrent
// use, but click dispatch on the document must not race with Load.
type FragmentLoader struct {
	doc       driven.Document
	retriever driven.Retriever
	cache     driven.FragmentCache
	sanitizer *bluemonday.Policy
	logger    *slog.Logger

	inflight singleflight.Group
	docMu    sync.Mutex
}

// LoaderOption configures optional FragmentLoader behaviour.
type LoaderOption func(*FragmentLoader)

// WithSanitizer sanitizes retrieved markup with policy before it is cached.
func WithSanitizer(policy *bluemonday.Policy) LoaderOption {
	return func(l *FragmentLoader) { l.sanitizer = policy }
}

// WithLogger sets the logger used by LoadAndLog and Compose.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *FragmentLoader) { l.logger = logger }
}

// NewFragmentLoader creates a FragmentLoader for doc. The cache may be shared
// between loaders of different documents.
func NewFragmentLoader(doc driven.Document, retriever driven.Retriever, cache driven.FragmentCache, opts ...LoaderOption) *FragmentLoader {
	l := &FragmentLoader{
		doc:       doc,
		retriever: retriever,
		cache:     cache,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load injects the fragment identified by locator into the mount point with
// id mountPointID, replacing its content, then runs the mount point's wiring.
//
// It returns an error wrapping model.ErrMountPointNotFound when the mount
// point does not exist (nothing is retrieved or mutated), and a
// *model.RetrievalError when the markup could not be retrieved (nothing is
// mutated or cached).
func (l *FragmentLoader) Load(ctx context.Context, locator, mountPointID string) error {
	if !l.hasMountPoint(mountPointID) {
		return fmt.Errorf("%w: %q", model.ErrMountPointNotFound, mountPointID)
	}

	markup, err := l.markup(ctx, locator)
	if err != nil {
		return err
	}

	l.docMu.Lock()
	defer l.docMu.Unlock()

	// Re-resolve: another load may have replaced the subtree holding the
	// mount point while the retrieval was in flight.
	mount := l.doc.ElementByID(mountPointID)
	if mount == nil {
		return fmt.Errorf("%w: %q", model.ErrMountPointNotFound, mountPointID)
	}

	if err := mount.ReplaceContent(markup); err != nil {
		return fmt.Errorf("inject %q into %q: %w", locator, mountPointID, err)
	}

	wire(model.WiringKindFor(mountPointID), mount)
	return nil
}

// LoadAndLog is Load for callers that cannot act on failure: errors are
// logged and swallowed.
func (l *FragmentLoader) LoadAndLog(ctx context.Context, locator, mountPointID string) {
	if err := l.Load(ctx, locator, mountPointID); err != nil {
		l.logger.Error("error loading component",
			"locator", locator,
			"mount_point", mountPointID,
			"error", err,
		)
	}
}

// Targets lists the mount points that declare a fragment via FragmentAttr.
// Elements without an id cannot be mounted into and are skipped.
func (l *FragmentLoader) Targets() []model.MountTarget {
	l.docMu.Lock()
	defer l.docMu.Unlock()

	var targets []model.MountTarget
	for _, el := range l.doc.QueryAll("[" + FragmentAttr + "]") {
		locator, _ := el.Attr(FragmentAttr)
		if el.ID() == "" || locator == "" {
			l.logger.Warn("skipping fragment mount point without id or locator",
				"id", el.ID(),
				"locator", locator,
			)
			continue
		}
		targets = append(targets, model.MountTarget{MountPointID: el.ID(), Locator: locator})
	}
	return targets
}

// Compose loads every declared fragment into its mount point. It attempts
// all targets and returns the combined errors.
func (l *FragmentLoader) Compose(ctx context.Context) error {
	var errs error
	for _, target := range l.Targets() {
		if err := l.Load(ctx, target.Locator, target.MountPointID); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (l *FragmentLoader) hasMountPoint(id string) bool {
	l.docMu.Lock()
	defer l.docMu.Unlock()
	return l.doc.ElementByID(id) != nil
}

// markup returns the cached markup for locator, retrieving and caching it on
// a miss. Failed retrievals are never cached.
func (l *FragmentLoader) markup(ctx context.Context, locator string) (string, error) {
	if markup, ok := l.cache.Get(ctx, locator); ok {
		return markup, nil
	}

	ch := l.inflight.DoChan(locator, func() (any, error) {
		// A flight for the same locator may have completed since the check above.
		if markup, ok := l.cache.Get(ctx, locator); ok {
			return markup, nil
		}

		res, err := l.retriever.Retrieve(ctx, locator)
		if err != nil {
			return nil, &model.RetrievalError{Locator: locator, Err: err}
		}
		if !res.OK() {
			return nil, &model.RetrievalError{Locator: locator, Status: res.Status}
		}

		markup := res.Body
		if l.sanitizer != nil {
			markup = l.sanitizer.Sanitize(markup)
		}
		l.cache.Set(ctx, locator, markup)
		return markup, nil
	})

	// Callers sharing a flight stop waiting when their own context ends; the
	// flight itself runs under the context of the caller that started it.
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &model.RetrievalError{Locator: locator, Err: ctx.Err()}
	}
}
