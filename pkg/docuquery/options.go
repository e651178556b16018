package docuquery

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docuquery/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	cfg    config.Config
	logger *zap.Logger
}

// WithOpenAI sets the provider credentials used for both embeddings and answers.
// An empty baseURL means api.openai.com.
func WithOpenAI(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.APIKey = apiKey
		c.cfg.Embedding.BaseURL = baseURL
	})
}

// WithModels overrides the embedding and chat models. Empty keeps the default.
func WithModels(embedding, llm string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Model = embedding
		c.cfg.LLM.Model = llm
	})
}

// WithStorageDir keeps the index snapshot and the registry under dir.
// Defaults to ./data.
func WithStorageDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Storage.Dir = filepath.Join(dir, "vector_store")
		c.cfg.Registry.Path = filepath.Join(dir, "registry.db")
	})
}

// WithRedis enables the embedding cache and persistent budget counters.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Redis.Addrs = []string{addr}
		c.cfg.Redis.Password = password
		c.cfg.Embedding.Cache.Enabled = true
	})
}

// WithChunking sets chunk size and overlap in characters.
// Defaults: 1000 and 200.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Chunking.Size = size
		c.cfg.Chunking.Overlap = overlap
	})
}

// WithTopK sets how many chunks ground each answer. Default: 3.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Retrieval.TopK = k
	})
}

// WithTokenBudget caps embedding tokens per day and month. Zero disables a period.
// With reject set, calls past the cap fail with ErrEmbeddingQuotaExceeded.
func WithTokenBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Budget.DailyTokenLimit = daily
		c.cfg.Embedding.Budget.MonthlyTokenLimit = monthly
		c.cfg.Embedding.Budget.Action = "warn"
		if reject {
			c.cfg.Embedding.Budget.Action = "reject"
		}
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
