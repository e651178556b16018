package document

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kailas-cloud/docuquery/internal/domain"
	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
)

var bucketDocuments = []byte("documents")

// BoltRepo keeps registry records in a single-file bbolt database.
type BoltRepo struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the registry file at path.
func OpenBolt(path string) (*BoltRepo, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err //nolint:wrapcheck // wrapped below
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltRepo{db: db}, nil
}

// Close releases the file lock.
func (r *BoltRepo) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close registry: %w", err)
	}
	return nil
}

// Ping verifies the database file is still open.
func (r *BoltRepo) Ping(_ context.Context) error {
	if err := r.db.View(func(*bbolt.Tx) error { return nil }); err != nil {
		return fmt.Errorf("registry view: %w", err)
	}
	return nil
}

// Create stores a new record.
func (r *BoltRepo) Create(_ context.Context, doc *domdoc.Document) error {
	data, err := json.Marshal(toRecord(doc))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	err = r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Put([]byte(doc.ID()), data)
	})
	if err != nil {
		return fmt.Errorf("put document %s: %w", doc.ID(), err)
	}
	return nil
}

// Get returns one record.
func (r *BoltRepo) Get(_ context.Context, id string) (domdoc.Document, error) {
	var rec record
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get([]byte(id))
		if data == nil {
			return domain.ErrDocumentNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return rec.toDomain(), nil
}

// List returns every record, newest upload first.
func (r *BoltRepo) List(_ context.Context) ([]domdoc.Document, error) {
	var docs []domdoc.Document
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			docs = append(docs, rec.toDomain())
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	sortNewestFirst(docs)
	return docs, nil
}

// Delete removes a record.
func (r *BoltRepo) Delete(_ context.Context, id string) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		if b.Get([]byte(id)) == nil {
			return domain.ErrDocumentNotFound
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// Count returns the number of records.
func (r *BoltRepo) Count(_ context.Context) (int, error) {
	var n int
	err := r.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketDocuments).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// UpdateStatus changes the status of an existing record.
func (r *BoltRepo) UpdateStatus(_ context.Context, id string, status domdoc.Status, at time.Time) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		data := b.Get([]byte(id))
		if data == nil {
			return domain.ErrDocumentNotFound
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		doc := rec.toDomain()
		updated := doc.WithStatus(status, at)
		out, err := json.Marshal(toRecord(&updated))
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return b.Put([]byte(id), out)
	})
	if err != nil {
		return fmt.Errorf("update document %s: %w", id, err)
	}
	return nil
}
