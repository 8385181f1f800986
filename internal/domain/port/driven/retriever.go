package driven

import (
	"context"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
)

// Retriever defines the driven port for fetching fragment markup. A non-2xx
// status is reported through model.Retrieval, not as an error; the error
// return is reserved for failures that produced no response at all.
type Retriever interface {
	Retrieve(ctx context.Context, locator string) (model.Retrieval, error)
}
