package document

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Status is the processing state of an uploaded document.
type Status string

const (
	// StatusProcessing marks a document whose chunks are being embedded.
	StatusProcessing Status = "processing"
	// StatusProcessed marks a document whose chunks are in the index.
	StatusProcessed Status = "processed"
	// StatusFailed marks a document whose ingestion failed.
	StatusFailed Status = "failed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusProcessing, StatusProcessed, StatusFailed:
		return true
	}
	return false
}

// AnonymousUser owns uploads that carry no user_id.
const AnonymousUser = "anonymous"

// Document is a registry record for one uploaded source. The vectors derived
// from it live in the index; this record only tracks them.
type Document struct {
	id         string
	filename   string
	chunkCount int
	filePath   string
	userID     string
	uploadedAt time.Time
	updatedAt  time.Time
	status     Status
}

// New validates and creates a processed Document.
func New(id, filename string, chunkCount int, filePath, userID string, uploadedAt time.Time) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return Document{}, fmt.Errorf("filename is required")
	}
	if chunkCount < 0 {
		return Document{}, fmt.Errorf("chunk count must not be negative")
	}
	if userID == "" {
		userID = AnonymousUser
	}

	return Document{
		id:         id,
		filename:   filename,
		chunkCount: chunkCount,
		filePath:   filePath,
		userID:     userID,
		uploadedAt: uploadedAt.UTC(),
		status:     StatusProcessed,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, filename string, chunkCount int, filePath, userID string,
	uploadedAt, updatedAt time.Time, status Status,
) Document {
	return Document{
		id: id, filename: filename, chunkCount: chunkCount, filePath: filePath,
		userID: userID, uploadedAt: uploadedAt, updatedAt: updatedAt, status: status,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Filename returns the sanitized base filename.
func (d *Document) Filename() string { return d.filename }

// ChunkCount returns how many chunks were inserted into the index.
func (d *Document) ChunkCount() int { return d.chunkCount }

// FilePath returns where the uploaded file was stored, if anywhere.
func (d *Document) FilePath() string { return d.filePath }

// UserID returns the owner.
func (d *Document) UserID() string { return d.userID }

// UploadedAt returns the upload time in UTC.
func (d *Document) UploadedAt() time.Time { return d.uploadedAt }

// UpdatedAt returns the last status change time; zero if never changed.
func (d *Document) UpdatedAt() time.Time { return d.updatedAt }

// Status returns the processing status.
func (d *Document) Status() Status { return d.status }

// WithStatus returns a copy with the status changed at the given time.
func (d *Document) WithStatus(s Status, at time.Time) Document {
	c := *d
	c.status = s
	c.updatedAt = at.UTC()
	return c
}
