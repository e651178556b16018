// Package chi exposes docuquery over HTTP using the chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docuquery/internal/domain"
	"github.com/kailas-cloud/docuquery/internal/domain/usage"
	logpkg "github.com/kailas-cloud/docuquery/internal/logger"
	"github.com/kailas-cloud/docuquery/internal/metrics"
	healthuc "github.com/kailas-cloud/docuquery/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docuquery/internal/usecase/ingest"
	"github.com/kailas-cloud/docuquery/internal/version"
)

// errorHandler maps a sentinel error to an HTTP response.
type errorHandler struct {
	target  error
	status  int
	code    string
	message string // empty means err.Error()
}

var sentinelHandlers = []errorHandler{
	{domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound, "document not found"},
	{domain.ErrEmptyInput, http.StatusBadRequest, codeEmptyDocument, "no text could be extracted from the document"},
	{domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed, ""},
	{domain.ErrDimensionMismatch, http.StatusConflict, codeDimensionMismatch, ""},
	{domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeQuotaExceeded, "embedding token budget exceeded"},
	// Provider errors wrap the context error on timeout; the deadline wins.
	{context.DeadlineExceeded, http.StatusGatewayTimeout, codeTimeout, "request timed out"},
	{domain.ErrEmbeddingUnavailable, http.StatusBadGateway, codeEmbeddingError, "embedding provider unavailable"},
	{domain.ErrLLMUnavailable, http.StatusBadGateway, codeLLMError, "answer generation unavailable"},
	{domain.ErrPersistence, http.StatusInternalServerError, codePersistenceError, "failed to persist index"},
}

// Options configures upload handling.
type Options struct {
	UploadDir         string
	MaxUploadBytes    int64
	IsAllowedFilename func(name string) bool
}

// Server implements the docuquery HTTP API.
type Server struct {
	ingest Ingester
	query  Querier
	docs   Documents
	health HealthChecker
	usage  UsageReporter
	opts   Options
	logger *zap.Logger
}

// NewServer creates a Server.
func NewServer(
	ingest Ingester,
	query Querier,
	docs Documents,
	health HealthChecker,
	usage UsageReporter,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.IsAllowedFilename == nil {
		opts.IsAllowedFilename = func(string) bool { return true }
	}
	return &Server{
		ingest: ingest,
		query:  query,
		docs:   docs,
		health: health,
		usage:  usage,
		opts:   opts,
		logger: logger,
	}
}

// Mount registers API routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.Health)
		r.Post("/upload", s.Upload)
		r.Post("/query", s.Query)
		r.Get("/documents", s.ListDocuments)
		r.Get("/documents/{id}", s.GetDocument)
		r.Delete("/documents/{id}", s.DeleteDocument)
		r.Get("/usage", s.GetUsage)
	})
}

// --- Health ---

// Health reports component status. Degraded returns 503.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	rep := s.health.Check(r.Context())

	checks := make(map[string]string, len(rep.Checks))
	for k, v := range rep.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if rep.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{
		Status:          string(rep.Status),
		VectorStoreSize: rep.VectorStoreSize,
		DocumentCount:   rep.DocumentCount,
		Checks:          checks,
		Version:         version.Version,
	})
}

// --- Upload ---

// Upload accepts a multipart file, stores it and indexes its text.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	var body *limitedBody
	if limit := s.opts.MaxUploadBytes; limit > 0 {
		if r.ContentLength > limit {
			writeError(w, http.StatusRequestEntityTooLarge, codeFileTooLarge, "File too large")
			return
		}
		body = &limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, limit)}
		r.Body = body
	}
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		// mime/multipart drops the error chain for failures inside part headers.
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || (body != nil && body.tripped) {
			writeError(w, http.StatusRequestEntityTooLarge, codeFileTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "expected multipart form with a file field")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadFormFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "No file provided")
		return
	}
	defer func() { _ = file.Close() }()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, codeBadRequest, "No file selected")
		return
	}
	if !s.opts.IsAllowedFilename(filename) {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "File type not allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "failed to read uploaded file")
		return
	}
	if !utf8.Valid(data) {
		writeError(w, http.StatusBadRequest, codeEmptyDocument, "no text could be extracted from the document")
		return
	}

	path, err := s.storeUpload(filename, data)
	if err != nil {
		logpkg.From(r.Context(), s.logger).Error("store upload failed", zap.String("filename", filename), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "failed to store uploaded file")
		return
	}

	res, err := s.ingest.Ingest(r.Context(), ingestuc.Input{
		Text:     string(data),
		Filename: filename,
		UserID:   r.FormValue(uploadFormUserID),
		FilePath: path,
	})
	if err != nil {
		if path != "" {
			_ = os.Remove(path)
		}
		s.handleDomainError(w, r, err)
		return
	}

	metrics.UploadBytes.Observe(float64(len(data)))
	writeJSON(w, http.StatusCreated, UploadResponse{
		DocumentID: res.DocumentID,
		Filename:   res.Filename,
		ChunkCount: res.ChunkCount,
		Status:     string(res.Status),
		Message:    uploadSuccessMessage,
	})
}

// storeUpload keeps the raw file next to the index. Disabled when UploadDir is empty.
func (s *Server) storeUpload(filename string, data []byte) (string, error) {
	if s.opts.UploadDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(s.opts.UploadDir, defaultUploadDirPerm); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.opts.UploadDir, uuid.NewString()+"_"+filename)
	if err := os.WriteFile(path, data, defaultUploadedFilePerm); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// --- Query ---

// Query answers a question from indexed documents.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "No query provided")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "No query provided")
		return
	}
	topK := 0
	if req.TopK != nil {
		if *req.TopK <= 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "top_k must be positive")
			return
		}
		topK = *req.TopK
	}

	resp, err := s.query.Query(r.Context(), req.Query, topK, req.UserID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Query:           resp.Query,
		Answer:          resp.Answer,
		Sources:         resp.Sources,
		Confidence:      resp.Confidence,
		ChunksRetrieved: resp.ChunksRetrieved,
	})
}

// --- Documents ---

// ListDocuments returns every registered document, newest first.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.docs.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		items = append(items, documentToResponse(&docs[i]))
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Count: len(items)})
}

// GetDocument returns one document record.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	d, err := s.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(&d))
}

// DeleteDocument removes the registry record. Vectors stay in the index.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	res, err := s.docs.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{
		Message:    deleteSuccessMessage,
		DocumentID: res.DocumentID,
		Note:       res.Note,
	})
}

// --- Usage ---

// GetUsage reports embedding tokens for ?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := usage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	rep := s.usage.Report(period)
	writeJSON(w, http.StatusOK, usageToResponse(&rep))
}

// --- Helpers ---

// limitedBody remembers whether the size limit was hit.
type limitedBody struct {
	io.ReadCloser
	tripped bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if err != nil && errors.As(err, &tooLarge) {
		b.tripped = true
	}
	return n, err
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.From(r.Context(), s.logger)
	for _, h := range sentinelHandlers {
		if !errors.Is(err, h.target) {
			continue
		}
		msg := h.message
		if msg == "" {
			msg = err.Error()
		}
		if h.status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("path", r.URL.Path), zap.Int("status", h.status), zap.Error(err))
		}
		writeError(w, h.status, h.code, msg)
		return
	}

	log.Error("unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Error: message})
}
