// Package ingest turns extracted document text into indexed chunks and a
// registry record.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docuquery/internal/domain"
	"github.com/kailas-cloud/docuquery/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
	"github.com/kailas-cloud/docuquery/internal/metrics"
)

// Input is one extracted document.
type Input struct {
	Text     string
	Filename string
	UserID   string
	FilePath string
}

// Result describes a successfully ingested document.
type Result struct {
	DocumentID string
	Filename   string
	ChunkCount int
	Status     domdoc.Status
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the upload timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides document ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithEmbedTimeout bounds the embedding and insert step.
func WithEmbedTimeout(d time.Duration) Option {
	return func(s *Service) { s.embedTimeout = d }
}

// Service runs the ingestion pipeline: chunk, embed and insert, save, register.
type Service struct {
	chunker      Chunker
	store        VectorStore
	registry     Registry
	logger       *zap.Logger
	now          func() time.Time
	newID        func() string
	embedTimeout time.Duration
}

// New creates an ingestion service.
func New(chunker Chunker, store VectorStore, registry Registry, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		chunker:  chunker,
		store:    store,
		registry: registry,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ingest indexes one document. Blank text yields domain.ErrEmptyInput.
//
// The index is saved before the registry write. If the registry write fails
// the vectors stay searchable without a record; that is logged, not undone.
func (s *Service) Ingest(ctx context.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.Text) == "" {
		return Result{}, fmt.Errorf("%s: %w", in.Filename, domain.ErrEmptyInput)
	}

	id := s.newID()
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		userID = domdoc.AnonymousUser
	}

	// Placeholder count; validated here so a bad filename fails before embedding.
	doc, err := domdoc.New(id, in.Filename, 0, in.FilePath, userID, s.now())
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	base := chunk.Metadata{Filename: doc.Filename()}.
		With(chunk.KeyDocumentID, id).
		With(chunk.KeyUserID, userID)
	chunks := s.chunker.Chunk(in.Text, base)
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("%s: no chunks: %w", doc.Filename(), domain.ErrEmptyInput)
	}

	n, err := s.addDocuments(ctx, chunks)
	if err != nil {
		metrics.IngestedDocumentsTotal.WithLabelValues(string(domdoc.StatusFailed)).Inc()
		return Result{}, fmt.Errorf("index %s: %w", doc.Filename(), err)
	}
	metrics.IngestedChunksTotal.Add(float64(n))

	if err := s.store.Save(ctx); err != nil {
		// The chunks stay in memory and reach disk with the next save.
		s.logOrphans(id, doc.Filename(), n, "index save failed", err)
		metrics.IngestedDocumentsTotal.WithLabelValues(string(domdoc.StatusFailed)).Inc()
		return Result{}, fmt.Errorf("save index after %s: %w", doc.Filename(), err)
	}

	doc = domdoc.Reconstruct(doc.ID(), doc.Filename(), n, doc.FilePath(), doc.UserID(),
		doc.UploadedAt(), time.Time{}, domdoc.StatusProcessed)
	if err := s.registry.Create(ctx, &doc); err != nil {
		s.logOrphans(id, doc.Filename(), n, "registry write failed", err)
		metrics.IngestedDocumentsTotal.WithLabelValues(string(domdoc.StatusFailed)).Inc()
		return Result{}, fmt.Errorf("register %s: %w", doc.Filename(), err)
	}

	metrics.IngestedDocumentsTotal.WithLabelValues(string(domdoc.StatusProcessed)).Inc()
	s.logger.Info("document ingested",
		zap.String("document_id", id),
		zap.String("filename", doc.Filename()),
		zap.String("user_id", userID),
		zap.Int("chunks", n),
	)

	return Result{
		DocumentID: id,
		Filename:   doc.Filename(),
		ChunkCount: n,
		Status:     domdoc.StatusProcessed,
	}, nil
}

func (s *Service) addDocuments(ctx context.Context, chunks []chunk.Chunk) (int, error) {
	if s.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.embedTimeout)
		defer cancel()
	}
	n, err := s.store.AddDocuments(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("add documents: %w", err)
	}
	return n, nil
}

func (s *Service) logOrphans(id, filename string, chunks int, reason string, err error) {
	s.logger.Warn("orphaned vectors: indexed chunks have no registry record",
		zap.String("document_id", id),
		zap.String("filename", filename),
		zap.Int("chunks", chunks),
		zap.String("reason", reason),
		zap.Error(err),
	)
}
