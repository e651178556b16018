package query

import (
	"context"

	"github.com/kailas-cloud/docuquery/internal/domain"
	"github.com/kailas-cloud/docuquery/internal/domain/search/result"
)

// Searcher embeds a question and returns its nearest chunks.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]result.Result, error)
}

// Generator answers a question from retrieved chunks.
type Generator interface {
	Generate(ctx context.Context, question string, chunks []domain.ContextChunk) (string, error)
}
