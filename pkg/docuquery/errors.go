package docuquery

import "github.com/kailas-cloud/docuquery/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyInput             = domain.ErrEmptyInput
	ErrInvalidInput           = domain.ErrInvalidInput
	ErrDimensionMismatch      = domain.ErrDimensionMismatch
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrEmbeddingUnavailable   = domain.ErrEmbeddingUnavailable
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrLLMUnavailable         = domain.ErrLLMUnavailable
	ErrPersistence            = domain.ErrPersistence
)
