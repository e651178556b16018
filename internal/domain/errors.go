package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput signals blank text handed to ingestion. It means "nothing to index".
	ErrEmptyInput = errors.New("empty input")
	// ErrDimensionMismatch signals an embedding whose length disagrees with the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingUnavailable signals a failed or timed out embedding call. Retryable.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrPersistence signals a snapshot write or read failure.
	ErrPersistence = errors.New("persistence error")
	// ErrLLMUnavailable signals a failed or timed out answer generation call. Retryable.
	ErrLLMUnavailable = errors.New("llm unavailable")
	// ErrDocumentNotFound signals a missing document registry record.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmbeddingQuotaExceeded signals an exhausted daily or monthly token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrInvalidInput signals a malformed request (empty query, bad top_k, unsupported file).
	ErrInvalidInput = errors.New("invalid input")
)

// DimensionMismatchError carries both dimensions of a rejected insert.
type DimensionMismatchError struct {
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: got %d, want %d", ErrDimensionMismatch.Error(), e.Got, e.Want)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(got, want int) error {
	return &DimensionMismatchError{Got: got, Want: want}
}
