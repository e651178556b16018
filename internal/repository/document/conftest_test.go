package document

import (
	"context"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/docuquery/internal/db"
	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
)

// memRedis is an in-memory redisStore. Fn hooks override single calls.
type memRedis struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}

	hsetFn     func(ctx context.Context, key string, fields map[string]string) error
	smembersFn func(ctx context.Context, key string) ([]string, error)
	pingErr    error
}

func newMemRedis() *memRedis {
	return &memRedis{
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (m *memRedis) Ping(context.Context) error { return m.pingErr }

func (m *memRedis) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		m.hashes[key] = h
	}
	maps.Copy(h, fields)
	return nil
}

func (m *memRedis) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return maps.Clone(h), nil
}

func (m *memRedis) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		h, err := m.HGetAll(ctx, k)
		if err != nil {
			h = map[string]string{}
		}
		out[i] = h
	}
	return out, nil
}

func (m *memRedis) SAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, v := range members {
		set[v] = struct{}{}
	}
	return nil
}

func (m *memRedis) SRem(_ context.Context, key string, members ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, v := range members {
		if _, ok := m.sets[key][v]; ok {
			delete(m.sets[key], v)
			n++
		}
	}
	return n, nil
}

func (m *memRedis) SMembers(ctx context.Context, key string) ([]string, error) {
	if m.smembersFn != nil {
		return m.smembersFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(maps.Keys(m.sets[key])), nil
}

func (m *memRedis) SIsMember(_ context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sets[key][member]
	return ok, nil
}

func (m *memRedis) SCard(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.sets[key])), nil
}

func (m *memRedis) Del(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.hashes[k]; ok {
			delete(m.hashes, k)
			n++
		}
	}
	return n, nil
}

// registry is the behaviour shared by both drivers.
type registry interface {
	Create(ctx context.Context, doc *domdoc.Document) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	List(ctx context.Context) ([]domdoc.Document, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	UpdateStatus(ctx context.Context, id string, status domdoc.Status, at time.Time) error
}

func newTestBolt(t *testing.T) *BoltRepo {
	t.Helper()
	repo, err := OpenBolt(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// drivers returns a fresh instance of every registry implementation.
func drivers(t *testing.T) map[string]registry {
	t.Helper()
	return map[string]registry{
		"bolt":  newTestBolt(t),
		"redis": NewRedis(newMemRedis()),
	}
}

var baseTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func testDocument(t *testing.T, id string, uploadedAt time.Time) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(id, "report.pdf", 4, "/data/uploads/"+id+"_report.pdf", "u-1", uploadedAt)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return doc
}
