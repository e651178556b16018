// Package app is the composition root shared by the docuquery server and the
// docuqueryctl CLI. It wires config into stores, the embedder chain and services.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docuquery/internal/chunker"
	"github.com/kailas-cloud/docuquery/internal/config"
	dbRedis "github.com/kailas-cloud/docuquery/internal/db/redis"
	"github.com/kailas-cloud/docuquery/internal/domain"
	"github.com/kailas-cloud/docuquery/internal/metrics"
	budgetrepo "github.com/kailas-cloud/docuquery/internal/repository/budget"
	documentrepo "github.com/kailas-cloud/docuquery/internal/repository/document"
	"github.com/kailas-cloud/docuquery/internal/repository/embcache"
	"github.com/kailas-cloud/docuquery/internal/repository/vectorstore"
	openaiTransport "github.com/kailas-cloud/docuquery/internal/transport/openai"
	documentuc "github.com/kailas-cloud/docuquery/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/docuquery/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docuquery/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docuquery/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/docuquery/internal/usecase/query"
	usageuc "github.com/kailas-cloud/docuquery/internal/usecase/usage"
)

// registry is what the services need from a document registry backend.
type registry interface {
	ingestuc.Registry
	documentuc.Repository
	Ping(ctx context.Context) error
}

// App holds the wired services. Close persists the index and releases stores.
type App struct {
	Config      config.Config
	Logger      *zap.Logger
	VectorStore *vectorstore.Manager
	Budget      *embeddinguc.BudgetTracker
	Ingest      *ingestuc.Service
	Query       *queryuc.Service
	Documents   *documentuc.Service
	Health      *healthuc.Service
	Usage       *usageuc.Service

	redis    *dbRedis.Store
	registry registry
	closeReg func() error
}

// Options tunes wiring for a particular binary.
type Options struct {
	// SkipEmbeddingHealth leaves the provider out of health checks.
	SkipEmbeddingHealth bool
}

// New wires every component from cfg and restores the index snapshot.
// A corrupt snapshot is logged and the index starts empty.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*App, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRAGMetrics()

	a := &App{Config: cfg, Logger: logger, closeReg: func() error { return nil }}

	if len(cfg.Redis.Addrs) > 0 {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		a.redis = store
		if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
			a.closeStores()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))
	}

	if err := a.openRegistry(); err != nil {
		a.closeStores()
		return nil, err
	}

	a.Budget = a.buildBudget(ctx)
	embedder := a.buildEmbedder()

	a.VectorStore = vectorstore.New(embedder, vectorstore.Config{
		Dir:          cfg.Storage.Dir,
		SnapshotName: cfg.Storage.SnapshotName,
	}, logger)
	if _, err := a.VectorStore.Load(ctx); err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			a.closeStores()
			return nil, fmt.Errorf("load index: %w", err)
		}
		logger.Warn("Index snapshot unreadable, starting with an empty index", zap.Error(err))
	}

	splitter, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		a.closeStores()
		return nil, fmt.Errorf("create chunker: %w", err)
	}

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		Config: openaiTransport.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			Provider: cfg.LLM.Provider,
			Timeout:  cfg.LLMTimeout(),
			Logger:   logger,
		},
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})

	a.Ingest = ingestuc.New(splitter, a.VectorStore, a.registry, logger,
		ingestuc.WithEmbedTimeout(cfg.EmbeddingTimeout()))
	a.Query = queryuc.New(a.VectorStore, generator, cfg.Retrieval.TopK, cfg.LLMTimeout(), logger)
	a.Documents = documentuc.New(a.registry, logger)

	healthOpts := []healthuc.Option{}
	if a.redis != nil {
		healthOpts = append(healthOpts, healthuc.WithPinger("redis", a.redis))
	}
	if !opts.SkipEmbeddingHealth {
		healthOpts = append(healthOpts, healthuc.WithEmbedding(newEmbeddingHealthChecker(embedder)))
	}
	a.Health = healthuc.New(a.VectorStore, a.registry, healthOpts...)

	var budgetReader usageuc.BudgetReader
	if a.Budget != nil {
		budgetReader = a.Budget
	}
	a.Usage = usageuc.New(budgetReader)

	logger.Info("Components ready",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("registry", cfg.Registry.Driver),
		zap.Int("index_size", a.VectorStore.Size()),
	)
	return a, nil
}

// Close saves the index and releases the registry and Redis.
func (a *App) Close(ctx context.Context) error {
	saveErr := a.VectorStore.Save(ctx)
	if saveErr != nil {
		a.Logger.Error("Failed to save index on shutdown", zap.Error(saveErr))
	}
	a.closeStores()
	return saveErr
}

func (a *App) closeStores() {
	if err := a.closeReg(); err != nil {
		a.Logger.Warn("Failed to close registry", zap.Error(err))
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

func (a *App) openRegistry() error {
	switch a.Config.Registry.Driver {
	case config.RegistryRedis:
		if a.redis == nil {
			return fmt.Errorf("redis registry requires redis.addrs")
		}
		a.registry = documentrepo.NewRedis(a.redis)
	default:
		path := a.Config.Registry.Path
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("create registry dir: %w", err)
		}
		repo, err := documentrepo.OpenBolt(path)
		if err != nil {
			return fmt.Errorf("open registry: %w", err)
		}
		a.registry = repo
		a.closeReg = repo.Close
	}
	return nil
}

// buildBudget returns nil when no limit is configured. Counters persist in
// Redis when available and live in memory otherwise.
func (a *App) buildBudget(ctx context.Context) *embeddinguc.BudgetTracker {
	b := a.Config.Embedding.Budget
	if b.DailyTokenLimit <= 0 && b.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := embeddinguc.BudgetActionWarn
	if b.Action == string(embeddinguc.BudgetActionReject) {
		action = embeddinguc.BudgetActionReject
	}
	tracker := embeddinguc.NewBudgetTracker(
		a.Config.Embedding.Provider, b.DailyTokenLimit, b.MonthlyTokenLimit, action, a.Logger,
	)
	if a.redis != nil {
		tracker.WithStore(ctx, budgetrepo.New(a.redis, 0, 0))
	}
	return tracker
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func (a *App) buildEmbedder() domain.Embedder {
	cfg := a.Config.Embedding

	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Timeout:    a.Config.EmbeddingTimeout(),
		Logger:     a.Logger,
	})

	if cfg.Cache.Enabled && a.redis != nil {
		embedder = embcache.New(embedder, a.redis, metrics.EmbeddingCacheTotal, a.Logger,
			embcache.WithTTL(time.Duration(cfg.Cache.TTLSec)*time.Second),
			embcache.WithNamespace(cacheNamespace(cfg)),
		)
	}

	// Pass a nil interface, not a typed nil pointer, when no budget is set.
	var budget embeddinguc.BudgetChecker
	if a.Budget != nil {
		budget = a.Budget
	}
	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, budget, a.Logger,
		embeddinguc.WithBatchSize(cfg.BatchSize))
}

// cacheNamespace separates cached vectors by model and requested dimensions,
// so changing either never serves vectors of the wrong length.
func cacheNamespace(cfg config.EmbeddingConfig) string {
	if cfg.Dimensions <= 0 {
		return cfg.Model
	}
	return fmt.Sprintf("%s:%d", cfg.Model, cfg.Dimensions)
}

// embeddingHealthChecker adapts domain.Embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
