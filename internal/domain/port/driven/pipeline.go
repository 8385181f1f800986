package driven

import (
	"context"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
)

// StyleCompiler compiles a single stylesheet source file to CSS.
type StyleCompiler interface {
	Compile(ctx context.Context, path string) ([]byte, error)
}

// Minifier minifies content of the given media type (e.g. "text/css").
type Minifier interface {
	Minify(mediaType string, data []byte) ([]byte, error)
}

// PageRenderer renders page templates. pages are paths relative to the pages
// directory; templates and data sources are (re)loaded on every call.
type PageRenderer interface {
	Pages() ([]string, error)
	Render(ctx context.Context, pages []string) ([]model.RenderedPage, error)
}

// Reloader is notified after watch-triggered rebuilds so connected previews
// can refresh.
type Reloader interface {
	Reload(changed []string)
	BuildFailed(err error)
}

// FileWatcher emits paths of changed files below the watched root.
type FileWatcher interface {
	Events() <-chan string
	Errors() <-chan error
	Close() error
}
