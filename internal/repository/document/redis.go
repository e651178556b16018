package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/docuquery/internal/db"
	"github.com/kailas-cloud/docuquery/internal/domain"
	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
)

var (
	docKeyPrefix = domain.KeyPrefix + "doc:"
	// docIndexKey is a set of every registered document ID. List and Count
	// read it instead of scanning the keyspace.
	docIndexKey = domain.KeyPrefix + "docs"
)

// redisStore is the consumer interface for the Redis registry (ISP).
type redisStore interface {
	Ping(ctx context.Context) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) (int64, error)
}

// RedisRepo keeps one hash per document under docuquery:doc:{id} and the set
// of IDs under docuquery:docs. The set is the source of truth for membership.
type RedisRepo struct {
	store redisStore
}

// NewRedis creates a Redis-backed registry.
func NewRedis(s redisStore) *RedisRepo {
	return &RedisRepo{store: s}
}

func docKey(id string) string { return docKeyPrefix + id }

// Ping checks the Redis connection.
func (r *RedisRepo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("registry ping: %w", err)
	}
	return nil
}

// Create writes the hash first and indexes it second, so a crash in between
// leaves an orphan hash rather than a dangling ID.
func (r *RedisRepo) Create(ctx context.Context, doc *domdoc.Document) error {
	if err := r.store.HSet(ctx, docKey(doc.ID()), toRecord(doc).toHash()); err != nil {
		return fmt.Errorf("store document %s: %w", doc.ID(), err)
	}
	if err := r.store.SAdd(ctx, docIndexKey, doc.ID()); err != nil {
		return fmt.Errorf("index document %s: %w", doc.ID(), err)
	}
	return nil
}

// Get returns one record.
func (r *RedisRepo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	m, err := r.store.HGetAll(ctx, docKey(id))
	if errors.Is(err, db.ErrKeyNotFound) {
		return domdoc.Document{}, fmt.Errorf("get document %s: %w", id, domain.ErrDocumentNotFound)
	}
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("load document %s: %w", id, err)
	}
	rec, err := recordFromHash(id, m)
	if err != nil {
		return domdoc.Document{}, err
	}
	return rec.toDomain(), nil
}

// List returns every indexed record, newest upload first. IDs whose hash is
// gone are skipped.
func (r *RedisRepo) List(ctx context.Context) ([]domdoc.Document, error) {
	ids, err := r.store.SMembers(ctx, docIndexKey)
	if err != nil {
		return nil, fmt.Errorf("list document ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(id)
	}
	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	docs := make([]domdoc.Document, 0, len(ids))
	for i, m := range hashes {
		if len(m) == 0 {
			continue
		}
		rec, err := recordFromHash(ids[i], m)
		if err != nil {
			return nil, err
		}
		docs = append(docs, rec.toDomain())
	}
	sortNewestFirst(docs)
	return docs, nil
}

// Delete unindexes the ID and drops its hash.
func (r *RedisRepo) Delete(ctx context.Context, id string) error {
	removed, err := r.store.SRem(ctx, docIndexKey, id)
	if err != nil {
		return fmt.Errorf("unindex document %s: %w", id, err)
	}
	if removed == 0 {
		return fmt.Errorf("delete document %s: %w", id, domain.ErrDocumentNotFound)
	}
	if _, err := r.store.Del(ctx, docKey(id)); err != nil {
		return fmt.Errorf("drop document %s: %w", id, err)
	}
	return nil
}

// Count returns the size of the ID index.
func (r *RedisRepo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SCard(ctx, docIndexKey)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return int(n), nil
}

// UpdateStatus changes the status of an indexed record.
func (r *RedisRepo) UpdateStatus(ctx context.Context, id string, status domdoc.Status, at time.Time) error {
	ok, err := r.store.SIsMember(ctx, docIndexKey, id)
	if err != nil {
		return fmt.Errorf("lookup document %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("update document %s: %w", id, domain.ErrDocumentNotFound)
	}
	fields := map[string]string{
		fieldStatus:    string(status),
		fieldUpdatedAt: at.UTC().Format(time.RFC3339Nano),
	}
	if err := r.store.HSet(ctx, docKey(id), fields); err != nil {
		return fmt.Errorf("update document %s: %w", id, err)
	}
	return nil
}
