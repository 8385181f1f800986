package model

import (
	"errors"
	"fmt"
)

// ErrMountPointNotFound is returned when the requested mount point id does not
// exist in the document.
var ErrMountPointNotFound = errors.New("mount point not found")

// RetrievalError reports a failed fragment retrieval. Status is zero when the
// retrieval failed before a response was received, in which case Err holds
// the cause.
type RetrievalError struct {
	Locator string
	Status  int
	Err     error
}

func (e *RetrievalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retrieve fragment %q: %v", e.Locator, e.Err)
	}
	return fmt.Sprintf("retrieve fragment %q: status %d", e.Locator, e.Status)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
