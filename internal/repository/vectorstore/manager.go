// Package vectorstore owns the chunk index: it embeds chunks on the way in,
// answers similarity queries and persists the index as a snapshot file.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docuquery/internal/domain"
	"github.com/kailas-cloud/docuquery/internal/domain/chunk"
	"github.com/kailas-cloud/docuquery/internal/domain/search/result"
	"github.com/kailas-cloud/docuquery/internal/index"
	"github.com/kailas-cloud/docuquery/internal/metrics"
)

// DefaultSnapshotName is the snapshot file name inside the storage directory.
const DefaultSnapshotName = "index.dqix"

// Config locates the snapshot on disk.
type Config struct {
	Dir          string
	SnapshotName string
}

// Manager is safe for concurrent use. Inserts and searches go through the
// index's own lock; Load swaps the whole index under mu.
type Manager struct {
	mu       sync.RWMutex
	idx      *index.Flat
	saveMu   sync.Mutex
	embedder domain.Embedder
	path     string
	logger   *zap.Logger
}

// New creates a manager with an empty index. Call Load to restore a snapshot.
func New(embedder domain.Embedder, cfg Config, logger *zap.Logger) *Manager {
	name := cfg.SnapshotName
	if name == "" {
		name = DefaultSnapshotName
	}
	return &Manager{
		idx:      index.NewFlat(),
		embedder: embedder,
		path:     filepath.Join(cfg.Dir, name),
		logger:   logger,
	}
}

// Path returns the snapshot file location.
func (m *Manager) Path() string { return m.path }

func (m *Manager) current() *index.Flat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idx
}

// Size returns the number of stored chunk vectors.
func (m *Manager) Size() int { return m.current().Size() }

// Dimension returns the index dimension, 0 before the first insert.
func (m *Manager) Dimension() int { return m.current().Dimension() }

// AddDocuments embeds chunks in one batch and inserts them. Either every
// chunk is stored or none is.
func (m *Manager) AddDocuments(ctx context.Context, chunks []chunk.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text()
	}

	res, err := domain.EmbedAll(ctx, m.embedder, texts)
	if err != nil {
		return 0, embeddingError(fmt.Sprintf("embed %d chunks", len(chunks)), err)
	}
	if len(res.Embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks: %w",
			len(res.Embeddings), len(chunks), domain.ErrEmbeddingUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return 0, embeddingError("embed chunks", err)
	}

	records := make([]index.Record, len(chunks))
	for i := range chunks {
		records[i] = index.Record{
			Text:      chunks[i].Text(),
			Metadata:  chunks[i].Metadata(),
			Embedding: res.Embeddings[i],
		}
	}

	// Load swaps m.idx under the write lock; holding the read lock keeps the
	// batch out of an index that is being replaced.
	m.mu.RLock()
	n, err := m.idx.Insert(records)
	size := m.idx.Size()
	m.mu.RUnlock()
	if err != nil {
		return 0, fmt.Errorf("insert chunks: %w", err)
	}
	metrics.IndexRecords.Set(float64(size))

	m.logger.Debug("Chunks indexed",
		zap.Int("chunks", n),
		zap.Int("index_size", size),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return n, nil
}

// Search embeds query and returns up to k nearest chunks. An empty index
// returns no results without calling the embedder.
func (m *Manager) Search(ctx context.Context, query string, k int) ([]result.Result, error) {
	if m.Size() == 0 {
		return []result.Result{}, nil
	}

	res, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, embeddingError("embed query", err)
	}
	return m.SearchVector(res.Embedding, k)
}

// SearchVector returns up to k chunks nearest to vec.
func (m *Manager) SearchVector(vec []float32, k int) ([]result.Result, error) {
	start := time.Now()
	hits, err := m.current().Search(vec, k)
	metrics.IndexSearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return hits, nil
}

// Save writes the index to a temp file next to the snapshot and renames it
// into place, so a crash leaves either the old or the new snapshot.
func (m *Manager) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	start := time.Now()
	idx := m.current()
	size, err := m.writeSnapshot(idx)
	if err != nil {
		metrics.SnapshotOperationsTotal.WithLabelValues("save", "error").Inc()
		m.logger.Error("Snapshot save failed", zap.String("path", m.path), zap.Error(err))
		return fmt.Errorf("save snapshot %s: %w: %w", m.path, domain.ErrPersistence, err)
	}

	metrics.SnapshotOperationsTotal.WithLabelValues("save", "ok").Inc()
	m.logger.Info("Snapshot saved",
		zap.String("path", m.path),
		zap.Int("records", idx.Size()),
		zap.Int64("bytes", size),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (m *Manager) writeSnapshot(idx *index.Flat) (int64, error) {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	size, err := idx.WriteTo(tmp)
	if err != nil {
		return 0, fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		_ = os.Remove(tmp.Name())
		committed = true
		return 0, fmt.Errorf("rename: %w", err)
	}
	committed = true

	syncDir(dir)
	return size, nil
}

// syncDir persists the rename. Not every platform allows fsync on a directory.
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // dir comes from configuration
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// Load replaces the index with the snapshot on disk. It reports false with no
// error when there is no snapshot. On a corrupt or unreadable snapshot the
// current index is kept and an ErrPersistence error is returned.
func (m *Manager) Load(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}

	f, err := os.Open(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			metrics.SnapshotOperationsTotal.WithLabelValues("load", "missing").Inc()
			m.logger.Info("No snapshot found, starting with an empty index", zap.String("path", m.path))
			return false, nil
		}
		metrics.SnapshotOperationsTotal.WithLabelValues("load", "error").Inc()
		return false, fmt.Errorf("open snapshot %s: %w: %w", m.path, domain.ErrPersistence, err)
	}
	defer func() { _ = f.Close() }()

	loaded, err := index.ReadFlat(f)
	if err != nil {
		metrics.SnapshotOperationsTotal.WithLabelValues("load", "error").Inc()
		return false, fmt.Errorf("read snapshot %s: %w: %w", m.path, domain.ErrPersistence, err)
	}

	m.mu.Lock()
	m.idx = loaded
	m.mu.Unlock()

	metrics.SnapshotOperationsTotal.WithLabelValues("load", "ok").Inc()
	metrics.IndexRecords.Set(float64(loaded.Size()))
	m.logger.Info("Snapshot loaded",
		zap.String("path", m.path),
		zap.Int("records", loaded.Size()),
		zap.Int("dimension", loaded.Dimension()),
	)
	return true, nil
}

// embeddingError marks provider failures as ErrEmbeddingUnavailable unless
// they already carry a more specific embedding error.
func embeddingError(op string, err error) error {
	if errors.Is(err, domain.ErrEmbeddingUnavailable) || errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrEmbeddingUnavailable, err)
}
