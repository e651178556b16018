// Package embcache decorates an embedder with a Redis-backed vector cache.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docuquery/internal/db"
	"github.com/kailas-cloud/docuquery/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetMulti(ctx context.Context, entries []db.Entry, ttl time.Duration) error
}

// CachedEmbedder serves repeated texts from Redis. The cache is best effort:
// its failures are logged and the call falls through to the inner embedder.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	namespace  string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Option configures a CachedEmbedder.
type Option func(*CachedEmbedder)

// WithTTL expires cached vectors after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *CachedEmbedder) { c.ttl = ttl }
}

// WithNamespace keeps vectors of different models apart in one Redis.
func WithNamespace(ns string) Option {
	return func(c *CachedEmbedder) { c.namespace = ns }
}

// New creates a caching decorator. cacheTotal takes the label "result"
// ("hit"/"miss") and may be nil.
func New(
	inner domain.Embedder,
	s store,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
	opts ...Option,
) *CachedEmbedder {
	c := &CachedEmbedder{
		inner:      inner,
		store:      s,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed returns the cached vector for text or asks the inner embedder.
// Hits report zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)

	data, err := c.store.Get(ctx, key)
	if err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		c.logger.Warn("Embedding cache read failed", zap.Error(err))
	}
	if vec, ok := c.decode(key, data); ok {
		c.count("hit", 1)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss", 1)

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	if err := c.store.Set(ctx, key, encodeVector(res.Embedding), c.ttl); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.Error(err))
	}
	return res, nil
}

// BatchEmbed looks every text up with one MGET, embeds the distinct misses in
// a single inner batch and writes them back in one pipeline. Output order
// matches texts, and a text repeated within the batch is embedded once.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}
	cached, err := c.store.MGet(ctx, keys)
	if err != nil {
		c.logger.Warn("Embedding cache read failed", zap.Int("keys", len(keys)), zap.Error(err))
		cached = nil
	}

	out := make([][]float32, len(texts))
	missAt := make(map[string][]int) // key -> positions in texts
	var missTexts, missKeys []string
	for i, key := range keys {
		var data []byte
		if i < len(cached) {
			data = cached[i]
		}
		if vec, ok := c.decode(key, data); ok {
			out[i] = vec
			continue
		}
		if _, seen := missAt[key]; !seen {
			missTexts = append(missTexts, texts[i])
			missKeys = append(missKeys, key)
		}
		missAt[key] = append(missAt[key], i)
	}
	c.count("hit", len(texts)-countPositions(missAt))
	c.count("miss", countPositions(missAt))

	if len(missTexts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	res, err := domain.EmbedAll(ctx, c.inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(missTexts), err)
	}
	if len(res.Embeddings) != len(missTexts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"inner embedder returned %d vectors for %d texts: %w",
			len(res.Embeddings), len(missTexts), domain.ErrEmbeddingUnavailable)
	}

	entries := make([]db.Entry, len(missKeys))
	for j, key := range missKeys {
		for _, pos := range missAt[key] {
			out[pos] = res.Embeddings[j]
		}
		entries[j] = db.Entry{Key: key, Value: encodeVector(res.Embeddings[j])}
	}
	if err := c.store.SetMulti(ctx, entries, c.ttl); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.Int("keys", len(entries)), zap.Error(err))
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck forwards to the inner embedder when it supports checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (c *CachedEmbedder) count(result string, n int) {
	if c.cacheTotal != nil && n > 0 {
		c.cacheTotal.WithLabelValues(result).Add(float64(n))
	}
}

// key is prefix[:namespace]:sha256(text).
func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	if c.namespace == "" {
		return cacheKeyPrefix + hex.EncodeToString(sum[:])
	}
	return cacheKeyPrefix + c.namespace + ":" + hex.EncodeToString(sum[:])
}

// decode treats empty and malformed entries as misses.
func (c *CachedEmbedder) decode(key string, data []byte) ([]float32, bool) {
	if len(data) == 0 {
		return nil, false
	}
	vec, err := decodeVector(data)
	if err != nil {
		c.logger.Warn("Discarding malformed cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func countPositions(m map[string][]int) int {
	n := 0
	for _, p := range m {
		n += len(p)
	}
	return n
}

// encodeVector packs float32s little-endian, four bytes each.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("cached embedding is %d bytes, not a multiple of 4", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}
