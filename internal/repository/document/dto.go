// Package document stores document registry records, in a local bbolt file
// or in Redis hashes.
package document

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
)

// record is the persisted shape of a registry entry.
type record struct {
	ID         string    `json:"document_id"`
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	FilePath   string    `json:"file_path,omitempty"`
	UserID     string    `json:"user_id"`
	UploadedAt time.Time `json:"upload_time"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
	Status     string    `json:"status"`
}

func toRecord(doc *domdoc.Document) record {
	return record{
		ID:         doc.ID(),
		Filename:   doc.Filename(),
		ChunkCount: doc.ChunkCount(),
		FilePath:   doc.FilePath(),
		UserID:     doc.UserID(),
		UploadedAt: doc.UploadedAt(),
		UpdatedAt:  doc.UpdatedAt(),
		Status:     string(doc.Status()),
	}
}

func (r record) toDomain() domdoc.Document {
	return domdoc.Reconstruct(r.ID, r.Filename, r.ChunkCount, r.FilePath, r.UserID,
		r.UploadedAt, r.UpdatedAt, domdoc.Status(r.Status))
}

// Hash field names.
const (
	fieldFilename   = "filename"
	fieldChunkCount = "chunk_count"
	fieldFilePath   = "file_path"
	fieldUserID     = "user_id"
	fieldUploadedAt = "upload_time"
	fieldUpdatedAt  = "updated_at"
	fieldStatus     = "status"
)

func (r record) toHash() map[string]string {
	m := map[string]string{
		fieldFilename:   r.Filename,
		fieldChunkCount: strconv.Itoa(r.ChunkCount),
		fieldFilePath:   r.FilePath,
		fieldUserID:     r.UserID,
		fieldUploadedAt: r.UploadedAt.Format(time.RFC3339Nano),
		fieldStatus:     r.Status,
	}
	if !r.UpdatedAt.IsZero() {
		m[fieldUpdatedAt] = r.UpdatedAt.Format(time.RFC3339Nano)
	}
	return m
}

func recordFromHash(id string, m map[string]string) (record, error) {
	r := record{
		ID:       id,
		Filename: m[fieldFilename],
		FilePath: m[fieldFilePath],
		UserID:   m[fieldUserID],
		Status:   m[fieldStatus],
	}
	var err error
	if r.ChunkCount, err = strconv.Atoi(m[fieldChunkCount]); err != nil {
		return record{}, fmt.Errorf("document %s: chunk_count: %w", id, err)
	}
	if r.UploadedAt, err = time.Parse(time.RFC3339Nano, m[fieldUploadedAt]); err != nil {
		return record{}, fmt.Errorf("document %s: upload_time: %w", id, err)
	}
	if v := m[fieldUpdatedAt]; v != "" {
		if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return record{}, fmt.Errorf("document %s: updated_at: %w", id, err)
		}
	}
	return r, nil
}

// sortNewestFirst orders by upload time descending, ties by ID.
func sortNewestFirst(docs []domdoc.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		ti, tj := docs[i].UploadedAt(), docs[j].UploadedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return docs[i].ID() < docs[j].ID()
	})
}
