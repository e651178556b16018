package document

import (
	"context"
	"time"

	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
)

// Repository defines the registry contract.
type Repository interface {
	Get(ctx context.Context, id string) (domdoc.Document, error)
	List(ctx context.Context) ([]domdoc.Document, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	UpdateStatus(ctx context.Context, id string, status domdoc.Status, at time.Time) error
}
