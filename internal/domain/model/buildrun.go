package model

import "time"

// BuildRun is one execution of a series of pipeline tasks.
type BuildRun struct {
	ID          string
	Tasks       []BuildTask
	Status      BuildStatus
	Outputs     []string // Paths written, relative to the dist directory. Not persisted.
	OutputCount int
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Failed reports whether the run finished with an error.
func (r BuildRun) Failed() bool {
	return r.Status == BuildStatusFailed
}

// Duration returns how long the run took, or zero while it is still running.
func (r BuildRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RenderedPage is the output of rendering one page template.
type RenderedPage struct {
	Path    string // Output path relative to the dist directory, slash separated.
	Content []byte
}
