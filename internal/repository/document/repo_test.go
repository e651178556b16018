package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/docuquery/internal/domain"
	domdoc "github.com/kailas-cloud/docuquery/internal/domain/document"
)

func TestCreateGet(t *testing.T) {
	for name, repo := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := testDocument(t, "doc-1", baseTime)

			if err := repo.Create(ctx, &doc); err != nil {
				t.Fatalf("Create: %v", err)
			}
			got, err := repo.Get(ctx, "doc-1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.ID() != "doc-1" || got.Filename() != "report.pdf" || got.ChunkCount() != 4 {
				t.Errorf("got %s/%s/%d", got.ID(), got.Filename(), got.ChunkCount())
			}
			if got.UserID() != "u-1" || got.FilePath() != "/data/uploads/doc-1_report.pdf" {
				t.Errorf("owner/path = %s %s", got.UserID(), got.FilePath())
			}
			if !got.UploadedAt().Equal(baseTime) {
				t.Errorf("uploaded at %v, want %v", got.UploadedAt(), baseTime)
			}
			if got.Status() != domdoc.StatusProcessed {
				t.Errorf("status = %s", got.Status())
			}
			if !got.UpdatedAt().IsZero() {
				t.Errorf("updated at = %v, want zero", got.UpdatedAt())
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	for name, repo := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Get(context.Background(), "missing")
			if !errors.Is(err, domain.ErrDocumentNotFound) {
				t.Fatalf("expected ErrDocumentNotFound, got %v", err)
			}
		})
	}
}

func TestList_NewestFirst(t *testing.T) {
	for name, repo := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, id := range []string{"old", "new", "mid"} {
				offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
				doc := testDocument(t, id, baseTime.Add(offsets[i]))
				if err := repo.Create(ctx, &doc); err != nil {
					t.Fatalf("Create %s: %v", id, err)
				}
			}

			docs, err := repo.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			want := []string{"new", "mid", "old"}
			if len(docs) != len(want) {
				t.Fatalf("listed %d docs, want %d", len(docs), len(want))
			}
			for i := range want {
				if docs[i].ID() != want[i] {
					t.Errorf("docs[%d] = %s, want %s", i, docs[i].ID(), want[i])
				}
			}
		})
	}
}

func TestList_Empty(t *testing.T) {
	for name, repo := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			docs, err := repo.List(context.Background())
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(docs) != 0 {
				t.Errorf("expected empty list, got %d", len(docs))
			}
		})
	}
}

func TestDeleteCount(t *testing.T) {
	for name, repo := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := testDocument(t, "a", baseTime)
			b := testDocument(t, "b", baseTime)
			_ = repo.Create(ctx, &a)
			_ = repo.Create(ctx, &b)

			if n, err := repo.Count(ctx); err != nil || n != 2 {
				t.Fatalf("Count = %d, %v", n, err)
			}
			if err := repo.Delete(ctx, "a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if n, _ := repo.Count(ctx); n != 1 {
				t.Errorf("Count after delete = %d", n)
			}
			if err := repo.Delete(ctx, "a"); !errors.Is(err, domain.ErrDocumentNotFound) {
				t.Errorf("second Delete: expected ErrDocumentNotFound, got %v", err)
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	for name, repo := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := testDocument(t, "doc-1", baseTime)
			_ = repo.Create(ctx, &doc)
			at := baseTime.Add(time.Minute)

			if err := repo.UpdateStatus(ctx, "doc-1", domdoc.StatusFailed, at); err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
			got, err := repo.Get(ctx, "doc-1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Status() != domdoc.StatusFailed || !got.UpdatedAt().Equal(at) {
				t.Errorf("status=%s updated=%v", got.Status(), got.UpdatedAt())
			}
			if got.ChunkCount() != 4 {
				t.Errorf("chunk count changed to %d", got.ChunkCount())
			}

			err = repo.UpdateStatus(ctx, "missing", domdoc.StatusFailed, at)
			if !errors.Is(err, domain.ErrDocumentNotFound) {
				t.Errorf("expected ErrDocumentNotFound, got %v", err)
			}
		})
	}
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	ctx := context.Background()

	repo, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	doc := testDocument(t, "doc-1", baseTime)
	if err := repo.Create(ctx, &doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if n, _ := reopened.Count(ctx); n != 1 {
		t.Errorf("Count after reopen = %d", n)
	}
	if err := reopened.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestBolt_OpenFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := OpenBolt(filepath.Join(blocker, "registry.db")); err == nil {
		t.Fatal("expected error opening registry under a regular file")
	}
}

func TestPing(t *testing.T) {
	for name, repo := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			if err := repo.Ping(context.Background()); err != nil {
				t.Fatalf("Ping: %v", err)
			}
		})
	}

	store := newMemRedis()
	store.pingErr = errors.New("connection refused")
	if err := NewRedis(store).Ping(context.Background()); err == nil {
		t.Error("expected redis ping error")
	}
}

func TestRedis_KeyLayout(t *testing.T) {
	store := newMemRedis()
	repo := NewRedis(store)
	doc := testDocument(t, "doc-1", baseTime)

	if err := repo.Create(context.Background(), &doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	h, ok := store.hashes["docuquery:doc:doc-1"]
	if !ok {
		t.Fatalf("hash not stored under docuquery:doc:doc-1, keys: %v", store.hashes)
	}
	if h["chunk_count"] != "4" || h["status"] != "processed" || h["upload_time"] != "2025-03-14T09:26:53Z" {
		t.Errorf("fields = %v", h)
	}
	if _, ok := h["updated_at"]; ok {
		t.Error("updated_at written for a fresh record")
	}
	if _, ok := store.sets["docuquery:docs"]["doc-1"]; !ok {
		t.Errorf("id not indexed in docuquery:docs: %v", store.sets)
	}
}

func TestRedis_CreateErrorLeavesIndexClean(t *testing.T) {
	store := newMemRedis()
	store.hsetFn = func(context.Context, string, map[string]string) error {
		return errors.New("connection reset")
	}
	repo := NewRedis(store)
	doc := testDocument(t, "doc-1", baseTime)

	if err := repo.Create(context.Background(), &doc); err == nil {
		t.Fatal("expected error")
	}
	if n, _ := repo.Count(context.Background()); n != 0 {
		t.Errorf("failed create left %d indexed ids", n)
	}
}

func TestRedis_IndexError(t *testing.T) {
	store := newMemRedis()
	store.smembersFn = func(context.Context, string) ([]string, error) {
		return nil, errors.New("LOADING")
	}

	if _, err := NewRedis(store).List(context.Background()); err == nil {
		t.Error("List: expected error")
	}
}

func TestRedis_ListSkipsOrphanIDs(t *testing.T) {
	store := newMemRedis()
	repo := NewRedis(store)
	doc := testDocument(t, "doc-1", baseTime)
	_ = repo.Create(context.Background(), &doc)
	_ = store.SAdd(context.Background(), "docuquery:docs", "gone")

	docs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 || docs[0].ID() != "doc-1" {
		t.Errorf("docs = %v", docs)
	}
}

func TestRedis_CorruptHash(t *testing.T) {
	store := newMemRedis()
	store.hashes["docuquery:doc:bad"] = map[string]string{"chunk_count": "many"}

	if _, err := NewRedis(store).Get(context.Background(), "bad"); err == nil {
		t.Fatal("expected decode error")
	}
}
