// Package chunk holds the unit of embedding and retrieval: a bounded span of
// source text plus its positional metadata.
package chunk

// Metadata is the payload attached to every chunk. Filename, ChunkIndex and
// ChunkTotal are reserved; caller keys live in Extra.
type Metadata struct {
	Filename   string            `json:"filename,omitempty"`
	ChunkIndex int               `json:"chunk_index"`
	ChunkTotal int               `json:"chunk_total"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Extra keys stamped at ingestion.
const (
	KeyDocumentID = "document_id"
	KeyUserID     = "user_id"
)

// Get returns a caller-supplied key.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.Extra[key]
	return v, ok
}

// With returns a copy of m carrying key=value in Extra.
func (m Metadata) With(key, value string) Metadata {
	c := m.Clone()
	if c.Extra == nil {
		c.Extra = make(map[string]string, 1)
	}
	c.Extra[key] = value
	return c
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	c := m
	if m.Extra != nil {
		c.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Chunk is an immutable span of source text.
type Chunk struct {
	text     string
	metadata Metadata
}

// New creates a chunk. The metadata is copied.
func New(text string, metadata Metadata) Chunk {
	return Chunk{text: text, metadata: metadata.Clone()}
}

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }

// Metadata returns a copy of the chunk metadata.
func (c Chunk) Metadata() Metadata { return c.metadata.Clone() }
