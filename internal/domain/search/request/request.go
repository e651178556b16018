package request

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Query parameter limits.
const (
	// MaxQueryLength is the maximum allowed question length in characters.
	MaxQueryLength = 4096
	MaxTopK        = 100
)

// Request is a validated retrieval question.
type Request struct {
	query  string
	topK   int
	userID string
}

// New validates and normalizes query parameters.
// The query is trimmed; topK <= 0 falls back to defaultTopK. A non-empty userID
// restricts results to chunks ingested by that user.
func New(query string, topK, defaultTopK int, userID string) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("query cannot be empty")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if topK < 0 {
		return Request{}, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	if topK == 0 {
		topK = defaultTopK
	}
	if topK <= 0 {
		return Request{}, fmt.Errorf("top_k must be positive")
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	return Request{query: query, topK: topK, userID: strings.TrimSpace(userID)}, nil
}

// Query returns the trimmed question text.
func (r *Request) Query() string { return r.query }

// TopK returns the number of chunks to retrieve.
func (r *Request) TopK() int { return r.topK }

// UserID returns the owner filter; empty means no filter.
func (r *Request) UserID() string { return r.userID }
