package ingest

import (
	"context"

	"github.com/kailas-cloud/docuquery/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
)

// Chunker splits text into metadata-stamped chunks.
type Chunker interface {
	Chunk(text string, base chunk.Metadata) []chunk.Chunk
}

// VectorStore embeds chunks into the index and persists it.
type VectorStore interface {
	AddDocuments(ctx context.Context, chunks []chunk.Chunk) (int, error)
	Save(ctx context.Context) error
}

// Registry records ingested documents.
type Registry interface {
	Create(ctx context.Context, doc *domdoc.Document) error
}
