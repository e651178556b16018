package docuquery_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kailas-cloud/docuquery/pkg/docuquery"
)

func providerServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/embeddings":
			var req struct {
				Input []string `json:"input"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			data := make([]map[string]any, len(req.Input))
			for i, in := range req.Input {
				lower := strings.ToLower(in)
				data[i] = map[string]any{
					"object": "embedding",
					"index":  i,
					"embedding": []float32{
						float32(strings.Count(lower, "tea")),
						float32(strings.Count(lower, "coffee")),
						1,
					},
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list", "data": data, "model": "m",
				"usage": map[string]int{"prompt_tokens": 4, "total_tokens": 4},
			})
		case "/chat/completions":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "c1", "object": "chat.completion", "model": "m",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": "Green tea."},
					"finish_reason": "stop",
				}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, opts ...docuquery.Option) *docuquery.Client {
	t.Helper()
	base := []docuquery.Option{
		docuquery.WithOpenAI("test-key", providerServer(t).URL),
		docuquery.WithStorageDir(t.TempDir()),
	}
	c, err := docuquery.New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func TestClient_IngestAndQuery(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	doc, err := c.IngestAs(ctx, "bob", "drinks.md", "Bob drinks green tea every morning.")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if doc.Filename != "drinks.md" || doc.UserID != "bob" || doc.ChunkCount != 1 || doc.Status != "processed" {
		t.Errorf("doc = %+v", doc)
	}

	ans, err := c.Query(ctx, "What tea does Bob drink?", docuquery.TopK(1))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if ans.Text != "Green tea." || len(ans.Sources) != 1 || ans.Sources[0].Filename != "drinks.md" {
		t.Errorf("answer = %+v", ans)
	}

	ans, err = c.Query(ctx, "What tea does Bob drink?", docuquery.ForUser("carol"))
	if err != nil {
		t.Fatalf("Query for other user: %v", err)
	}
	if ans.ChunksRetrieved != 0 || ans.Confidence != 0 {
		t.Errorf("other user should see nothing, got %+v", ans)
	}
}

func TestClient_Documents(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, docuquery.WithChunking(200, 20), docuquery.WithTopK(2))

	doc, err := c.Ingest(ctx, "coffee.txt", "Coffee is brewed at 93 degrees.")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	docs, err := c.Documents(ctx)
	if err != nil || len(docs) != 1 || docs[0].ID != doc.ID {
		t.Fatalf("Documents = %+v, %v", docs, err)
	}

	if err := c.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := c.Document(ctx, doc.ID); !errors.Is(err, docuquery.ErrDocumentNotFound) {
		t.Errorf("Document after delete: %v", err)
	}
	if err := c.DeleteDocument(ctx, doc.ID); !errors.Is(err, docuquery.ErrDocumentNotFound) {
		t.Errorf("second delete: %v", err)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.VectorStoreSize != 1 || stats.DocumentCount != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	if _, err := c.Ingest(ctx, "blank.txt", "   "); !errors.Is(err, docuquery.ErrEmptyInput) {
		t.Errorf("blank ingest: %v", err)
	}
	if _, err := c.Query(ctx, ""); !errors.Is(err, docuquery.ErrInvalidInput) {
		t.Errorf("empty query: %v", err)
	}
}

func TestNew_InvalidChunking(t *testing.T) {
	_, err := docuquery.New(context.Background(),
		docuquery.WithStorageDir(t.TempDir()),
		docuquery.WithChunking(100, 100),
	)
	if err == nil {
		t.Fatal("expected error for overlap >= size")
	}
}

func TestNew_RejectBudget(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, docuquery.WithTokenBudget(4, 0, true))

	if _, err := c.Ingest(ctx, "a.txt", "tea"); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if _, err := c.Ingest(ctx, "b.txt", "coffee"); !errors.Is(err, docuquery.ErrEmbeddingQuotaExceeded) {
		t.Errorf("second ingest: %v", err)
	}
}
