package driven

import (
	"context"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
)

// BuildStore defines the driven port for persisting build runs.
// Record is an upsert keyed by run ID.
type BuildStore interface {
	Record(ctx context.Context, run model.BuildRun) error
	Latest(ctx context.Context) (*model.BuildRun, error)
	ListRecent(ctx context.Context, limit int) ([]model.BuildRun, error)
}
