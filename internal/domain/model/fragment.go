package model

// Retrieval is the outcome of fetching fragment markup. Status follows HTTP
// semantics regardless of the underlying transport.
type Retrieval struct {
	Status int
	Body   string
}

// OK reports whether the retrieval succeeded (2xx status).
func (r Retrieval) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// MountTarget pairs a mount point with the fragment locator it declares
// through its data-fragment attribute.
type MountTarget struct {
	MountPointID string
	Locator      string
}
