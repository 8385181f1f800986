package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Retriever = (*FSRetriever)(nil)

// FSRetriever reads fragments from a filesystem, typically the dist
// directory. Missing files are reported with status 404.
type FSRetriever struct {
	fsys fs.FS
}

// NewFSRetriever creates a retriever rooted at fsys.
func NewFSRetriever(fsys fs.FS) *FSRetriever {
	return &FSRetriever{fsys: fsys}
}

// Retrieve reads locator as a slash separated path below the root. Leading
// slashes, query strings and fragments are ignored.
func (r *FSRetriever) Retrieve(ctx context.Context, locator string) (model.Retrieval, error) {
	if err := ctx.Err(); err != nil {
		return model.Retrieval{}, err
	}

	name := locator
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" || !fs.ValidPath(name) {
		return model.Retrieval{Status: http.StatusBadRequest}, nil
	}

	data, err := fs.ReadFile(r.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Retrieval{Status: http.StatusNotFound}, nil
	}
	if err != nil {
		return model.Retrieval{}, fmt.Errorf("reading fragment %q: %w", name, err)
	}

	return model.Retrieval{Status: http.StatusOK, Body: string(data)}, nil
}
