package health

import "context"

// Pinger checks a backing store (Redis, registry file).
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexSizer reports how many vectors the index holds.
type IndexSizer interface {
	Size() int
}

// DocumentCounter reports how many documents the registry holds.
type DocumentCounter interface {
	Count(ctx context.Context) (int, error)
}
