// Package document manages registry records of ingested documents.
package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docuquery/internal/domain"
	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
)

// VectorsPersistNote accompanies every deletion: the index has no removal.
const VectorsPersistNote = "Vector embeddings persist in the index"

// DeleteResult reports a metadata-only deletion.
type DeleteResult struct {
	DocumentID string
	Note       string
}

// Service coordinates registry operations.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// New creates a document service.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	if id == "" {
		return domdoc.Document{}, fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns all documents, newest upload first.
func (s *Service) List(ctx context.Context) ([]domdoc.Document, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Count returns the number of registered documents.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Delete removes the registry record and the stored upload. Vectors stay in
// the index; the result carries a note saying so.
func (s *Service) Delete(ctx context.Context, id string) (DeleteResult, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return DeleteResult{}, fmt.Errorf("delete document: %w", err)
	}

	if p := doc.FilePath(); p != "" {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("stored upload not removed",
				zap.String("document_id", id), zap.String("path", p), zap.Error(err))
		}
	}

	s.logger.Info("document deleted", zap.String("document_id", id), zap.Int("chunks", doc.ChunkCount()))
	return DeleteResult{DocumentID: id, Note: VectorsPersistNote}, nil
}

// UpdateStatus moves a document to a new processing status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domdoc.Status) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status, s.now()); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}
