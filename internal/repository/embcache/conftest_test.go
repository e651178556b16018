package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docuquery/internal/db"
	"github.com/kailas-cloud/docuquery/internal/domain"
)

// stubEmbedder returns vec for every text and records what it was asked.
type stubEmbedder struct {
	vec        []float32
	tokens     int // per text
	err        error
	short      bool // return one vector fewer than asked
	batches    [][]string
	singleCall int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	s.singleCall++
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: s.vec, PromptTokens: s.tokens, TotalTokens: s.tokens}, nil
}

func (s *stubEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	s.batches = append(s.batches, texts)
	if s.err != nil {
		return domain.BatchEmbeddingResult{}, s.err
	}
	n := len(texts)
	if s.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = s.vec
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: s.tokens * len(texts),
		TotalTokens:  s.tokens * len(texts),
	}, nil
}

// singleOnly implements Embed but not BatchEmbed.
type singleOnly struct {
	vec   []float32
	calls int
}

func (p *singleOnly) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	p.calls++
	return domain.EmbeddingResult{Embedding: p.vec, TotalTokens: 1}, nil
}

// memKV is an in-memory store. readErr/writeErr fail every read or write.
type memKV struct {
	data     map[string][]byte
	ttls     map[string]time.Duration
	readErr  error
	writeErr error
	mgets    int
	setMulti int
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) MGet(_ context.Context, keys []string) ([][]byte, error) {
	m.mgets++
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) SetMulti(ctx context.Context, entries []db.Entry, ttl time.Duration) error {
	m.setMulti++
	for _, e := range entries {
		if err := m.Set(ctx, e.Key, e.Value, ttl); err != nil {
			return err
		}
	}
	return nil
}

func newCache(t *testing.T, inner domain.Embedder, opts ...Option) (*CachedEmbedder, *memKV) {
	t.Helper()
	kv := newMemKV()
	return New(inner, kv, nil, zap.NewNop(), opts...), kv
}
