package docuquery

import "time"

// Document is a registry record for one ingested text.
type Document struct {
	ID         string
	Filename   string
	ChunkCount int
	UserID     string
	UploadedAt time.Time
	Status     string
}

// Source is one chunk that grounded an answer.
type Source struct {
	Filename        string
	ChunkIndex      int
	TextPreview     string
	SimilarityScore float64
}

// Answer is the generated reply with its provenance.
type Answer struct {
	Text            string
	Sources         []Source
	Confidence      float64
	ChunksRetrieved int
}

// Stats summarizes the local index.
type Stats struct {
	VectorStoreSize int
	DocumentCount   int
}
