package chi

import (
	"time"

	"github.com/kailas-cloud/docuquery/internal/domain/answer"
	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
	"github.com/kailas-cloud/docuquery/internal/domain/usage"
)

// Error codes returned in ErrorResponse.Code.
const (
	codeBadRequest          = "bad_request"
	codeValidationFailed    = "validation_failed"
	codeEmptyDocument       = "empty_document"
	codeUnauthorized        = "unauthorized"
	codeNotFound            = "not_found"
	codeDocumentNotFound    = "document_not_found"
	codeFileTooLarge        = "file_too_large"
	codeDimensionMismatch   = "vector_dim_mismatch"
	codeQuotaExceeded       = "embedding_quota_exceeded"
	codeEmbeddingError      = "embedding_provider_error"
	codeLLMError            = "llm_provider_error"
	codePersistenceError    = "persistence_error"
	codeTimeout             = "timeout"
	codeInternalError       = "internal_error"
	codeMethodNotAllowed    = "method_not_allowed"
	uploadSuccessMessage    = "Document uploaded and processed successfully"
	deleteSuccessMessage    = "Document deleted successfully"
	multipartMemoryBytes    = 1 << 20
	uploadFormFile          = "file"
	uploadFormUserID        = "user_id"
	defaultUploadDirPerm    = 0o750
	defaultUploadedFilePerm = 0o600
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query  string `json:"query"`
	TopK   *int   `json:"top_k,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// QueryResponse is returned by POST /api/query.
type QueryResponse struct {
	Query           string          `json:"query"`
	Answer          string          `json:"answer"`
	Sources         []answer.Source `json:"sources"`
	Confidence      float64         `json:"confidence"`
	ChunksRetrieved int             `json:"chunks_retrieved"`
}

// DocumentResponse is one registry record.
type DocumentResponse struct {
	DocumentID string     `json:"document_id"`
	Filename   string     `json:"filename"`
	ChunkCount int        `json:"chunk_count"`
	FilePath   string     `json:"file_path,omitempty"`
	UserID     string     `json:"user_id"`
	UploadTime time.Time  `json:"upload_time"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	Status     string     `json:"status"`
}

// DocumentListResponse is returned by GET /api/documents.
type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Count     int                `json:"count"`
}

// DeleteResponse is returned by DELETE /api/documents/{id}.
type DeleteResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
	Note       string `json:"note"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status          string            `json:"status"`
	VectorStoreSize int               `json:"vector_store_size"`
	DocumentCount   int               `json:"document_count"`
	Checks          map[string]string `json:"checks"`
	Version         string            `json:"version"`
}

// UsageResponse is returned by GET /api/usage. Limit fields are null when unlimited.
type UsageResponse struct {
	Period          string    `json:"period"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	TokensUsed      int64     `json:"tokens_used"`
	TokensLimit     *int64    `json:"tokens_limit"`
	TokensRemaining *int64    `json:"tokens_remaining"`
	IsExhausted     bool      `json:"is_exhausted"`
}

func usageToResponse(r *usage.Report) UsageResponse {
	resp := UsageResponse{
		Period:      string(r.Period()),
		PeriodStart: r.PeriodStart(),
		PeriodEnd:   r.PeriodEnd(),
		TokensUsed:  r.TokensUsed(),
		IsExhausted: r.IsExhausted(),
	}
	if r.Limited() {
		limit, remaining := r.TokensLimit(), r.TokensRemaining()
		resp.TokensLimit, resp.TokensRemaining = &limit, &remaining
	}
	return resp
}

func documentToResponse(d *domdoc.Document) DocumentResponse {
	resp := DocumentResponse{
		DocumentID: d.ID(),
		Filename:   d.Filename(),
		ChunkCount: d.ChunkCount(),
		FilePath:   d.FilePath(),
		UserID:     d.UserID(),
		UploadTime: d.UploadedAt(),
		Status:     string(d.Status()),
	}
	if u := d.UpdatedAt(); !u.IsZero() {
		resp.UpdatedAt = &u
	}
	return resp
}
