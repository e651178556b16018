// Package query answers natural-language questions from the indexed documents.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docuquery/internal/domain"
	"github.com/kailas-cloud/docuquery/internal/domain/answer"
	"github.com/kailas-cloud/docuquery/internal/domain/chunk"
	"github.com/kailas-cloud/docuquery/internal/domain/search/request"
	"github.com/kailas-cloud/docuquery/internal/domain/search/result"
	"github.com/kailas-cloud/docuquery/internal/metrics"
)

// userFilterOverfetch widens the search when results are post-filtered by owner.
const userFilterOverfetch = 4

// Response is a grounded answer.
type Response struct {
	Query           string
	Answer          string
	Sources         []answer.Source
	Confidence      float64
	ChunksRetrieved int
}

// Service retrieves context and asks the language model.
type Service struct {
	searcher    Searcher
	generator   Generator
	defaultTopK int
	llmTimeout  time.Duration
	logger      *zap.Logger
}

// New creates a query service. llmTimeout <= 0 disables the generation deadline.
func New(s Searcher, g Generator, defaultTopK int, llmTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{searcher: s, generator: g, defaultTopK: defaultTopK, llmTimeout: llmTimeout, logger: logger}
}

// Query validates the question, retrieves the top-k chunks and generates an
// answer. topK <= 0 uses the configured default. A non-empty userID keeps
// only chunks ingested by that user.
func (s *Service) Query(ctx context.Context, q string, topK int, userID string) (Response, error) {
	req, err := request.New(q, topK, s.defaultTopK, userID)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	results, err := s.retrieve(ctx, &req)
	if err != nil {
		return Response{}, err
	}

	resp := Response{Query: req.Query(), ChunksRetrieved: len(results)}
	if len(results) == 0 {
		resp.Answer = answer.NoDocumentsAnswer
		resp.Sources = []answer.Source{}
		return resp, nil
	}

	text, err := s.generate(ctx, req.Query(), answer.ContextChunks(results))
	if err != nil {
		return Response{}, err
	}

	resp.Answer = text
	resp.Sources = answer.Sources(results)
	resp.Confidence = answer.Confidence(results)
	metrics.AnswerConfidence.Observe(resp.Confidence)

	s.logger.Debug("query answered",
		zap.Int("top_k", req.TopK()),
		zap.Int("chunks", len(results)),
		zap.Float64("avg_distance", answer.AverageDistance(results)),
		zap.Float64("confidence", resp.Confidence),
	)
	return resp, nil
}

func (s *Service) retrieve(ctx context.Context, req *request.Request) ([]result.Result, error) {
	k := req.TopK()
	if req.UserID() != "" {
		k *= userFilterOverfetch
	}

	results, err := s.searcher.Search(ctx, req.Query(), k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if req.UserID() != "" {
		results = filterByUser(results, req.UserID())
	}
	if len(results) > req.TopK() {
		results = results[:req.TopK()]
	}
	return results, nil
}

func (s *Service) generate(ctx context.Context, q string, chunks []domain.ContextChunk) (string, error) {
	if s.llmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.llmTimeout)
		defer cancel()
	}

	text, err := s.generator.Generate(ctx, q, chunks)
	if err != nil {
		if errors.Is(err, domain.ErrLLMUnavailable) {
			return "", fmt.Errorf("generate answer: %w", err)
		}
		return "", fmt.Errorf("generate answer: %w: %w", domain.ErrLLMUnavailable, err)
	}
	if text == "" {
		return "", fmt.Errorf("generate answer: empty response: %w", domain.ErrLLMUnavailable)
	}
	return text, nil
}

// filterByUser keeps results whose chunk metadata names userID. Order is kept.
func filterByUser(results []result.Result, userID string) []result.Result {
	out := results[:0]
	for i := range results {
		md := results[i].Metadata()
		if v, ok := md.Get(chunk.KeyUserID); ok && v == userID {
			out = append(out, results[i])
		}
	}
	return out
}
