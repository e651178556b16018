package chi

import (
	"context"

	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
	"github.com/kailas-cloud/docuquery/internal/domain/usage"
	documentuc "github.com/kailas-cloud/docuquery/internal/usecase/document"
	healthuc "github.com/kailas-cloud/docuquery/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docuquery/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/docuquery/internal/usecase/query"
)

// Ingester indexes uploaded documents.
type Ingester interface {
	Ingest(ctx context.Context, in ingestuc.Input) (ingestuc.Result, error)
}

// Querier answers questions.
type Querier interface {
	Query(ctx context.Context, q string, topK int, userID string) (queryuc.Response, error)
}

// Documents reads and deletes registry records.
type Documents interface {
	List(ctx context.Context) ([]domdoc.Document, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Delete(ctx context.Context, id string) (documentuc.DeleteResult, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports embedding token usage.
type UsageReporter interface {
	Report(period usage.Period) usage.Report
}
