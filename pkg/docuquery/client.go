package docuquery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docuquery/internal/app"
	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
	ingestuc "github.com/kailas-cloud/docuquery/internal/usecase/ingest"
)

// Client is the embedded docuquery entry point. It is safe for concurrent use.
type Client struct {
	app *app.App
}

// QueryOption narrows a single query.
type QueryOption func(*queryConfig)

type queryConfig struct {
	topK   int
	userID string
}

// TopK overrides the number of retrieved chunks for one query.
func TopK(k int) QueryOption { return func(q *queryConfig) { q.topK = k } }

// ForUser restricts retrieval to documents ingested by userID.
func ForUser(userID string) QueryOption { return func(q *queryConfig) { q.userID = userID } }

// New wires a Client and restores the index snapshot from the storage dir.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	c := &clientConfig{logger: zap.NewNop()}
	for _, o := range opts {
		o.apply(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	cfg := c.cfg
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("docuquery: %w", err)
	}

	a, err := app.New(ctx, cfg, c.logger, app.Options{SkipEmbeddingHealth: true})
	if err != nil {
		return nil, fmt.Errorf("docuquery: %w", err)
	}
	return &Client{app: a}, nil
}

// Close saves the index and releases stores.
func (c *Client) Close(ctx context.Context) error {
	if err := c.app.Close(ctx); err != nil {
		return fmt.Errorf("docuquery: close: %w", err)
	}
	return nil
}

// Ingest chunks, embeds and indexes text under filename.
func (c *Client) Ingest(ctx context.Context, filename, text string) (Document, error) {
	return c.IngestAs(ctx, "", filename, text)
}

// IngestAs is Ingest with an owner recorded on the document.
func (c *Client) IngestAs(ctx context.Context, userID, filename, text string) (Document, error) {
	res, err := c.app.Ingest.Ingest(ctx, ingestuc.Input{Text: text, Filename: filename, UserID: userID})
	if err != nil {
		return Document{}, fmt.Errorf("ingest: %w", err)
	}
	return c.Document(ctx, res.DocumentID)
}

// Query answers question from the indexed documents.
func (c *Client) Query(ctx context.Context, question string, opts ...QueryOption) (Answer, error) {
	q := queryConfig{}
	for _, o := range opts {
		o(&q)
	}

	resp, err := c.app.Query.Query(ctx, question, q.topK, q.userID)
	if err != nil {
		return Answer{}, fmt.Errorf("query: %w", err)
	}

	sources := make([]Source, len(resp.Sources))
	for i, s := range resp.Sources {
		sources[i] = Source(s)
	}
	return Answer{
		Text:            resp.Answer,
		Sources:         sources,
		Confidence:      resp.Confidence,
		ChunksRetrieved: resp.ChunksRetrieved,
	}, nil
}

// Document returns one registry record.
func (c *Client) Document(ctx context.Context, id string) (Document, error) {
	d, err := c.app.Documents.Get(ctx, id)
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return fromInternalDocument(&d), nil
}

// Documents lists registry records, newest first.
func (c *Client) Documents(ctx context.Context) ([]Document, error) {
	docs, err := c.app.Documents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]Document, len(docs))
	for i := range docs {
		out[i] = fromInternalDocument(&docs[i])
	}
	return out, nil
}

// DeleteDocument removes a registry record. Its vectors stay searchable.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if _, err := c.app.Documents.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Stats reports index and registry sizes.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	n, err := c.app.Documents.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	return Stats{VectorStoreSize: c.app.VectorStore.Size(), DocumentCount: n}, nil
}

func fromInternalDocument(d *domdoc.Document) Document {
	return Document{
		ID:         d.ID(),
		Filename:   d.Filename(),
		ChunkCount: d.ChunkCount(),
		UserID:     d.UserID(),
		UploadedAt: d.UploadedAt(),
		Status:     string(d.Status()),
	}
}
