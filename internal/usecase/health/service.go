package health

import (
	"context"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "healthy"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status          Status
	VectorStoreSize int
	DocumentCount   int
	Checks          map[string]CheckResult
}

// Option configures optional checks.
type Option func(*Service)

// WithPinger adds a named store check.
func WithPinger(name string, p Pinger) Option {
	return func(s *Service) { s.pingers[name] = p }
}

// WithEmbedding adds the embedding provider check.
func WithEmbedding(c EmbeddingChecker) Option {
	return func(s *Service) { s.embedding = c }
}

// Service coordinates health checks.
type Service struct {
	index     IndexSizer
	docs      DocumentCounter
	embedding EmbeddingChecker
	pingers   map[string]Pinger
}

// New creates a Service.
func New(index IndexSizer, docs DocumentCounter, opts ...Option) *Service {
	s := &Service{index: index, docs: docs, pingers: make(map[string]Pinger)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	r := Report{VectorStoreSize: s.index.Size()}

	if n, err := s.docs.Count(ctx); err != nil {
		checks["registry"] = CheckError
	} else {
		r.DocumentCount = n
		checks["registry"] = CheckOK
	}

	names := make([]string, 0, len(s.pingers))
	for name := range s.pingers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		checks[name] = result(s.pingers[name].Ping(ctx))
	}

	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}

	r.Status = Healthy
	for _, v := range checks {
		if v == CheckError {
			r.Status = Degraded
			break
		}
	}
	r.Checks = checks
	return r
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
