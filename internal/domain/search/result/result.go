package result

import "github.com/kailas-cloud/docuquery/internal/domain/chunk"

// Result is a single nearest-neighbour hit.
type Result struct {
	id       uint64
	text     string
	metadata chunk.Metadata
	distance float64
}

// New creates a search result.
func New(id uint64, text string, metadata chunk.Metadata, distance float64) Result {
	return Result{id: id, text: text, metadata: metadata, distance: distance}
}

// ID returns the vector record identifier.
func (r *Result) ID() uint64 { return r.id }

// Text returns the chunk text.
func (r *Result) Text() string { return r.text }

// Metadata returns the chunk metadata.
func (r *Result) Metadata() chunk.Metadata { return r.metadata }

// Distance returns the squared L2 distance to the query. Lower is closer.
func (r *Result) Distance() float64 { return r.distance }
