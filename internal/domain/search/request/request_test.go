package request

import (
	"strings"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New("  what is RAG?  ", 0, 3, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "what is RAG?" {
		t.Errorf("Query() = %q, want trimmed", r.Query())
	}
	if r.TopK() != 3 {
		t.Errorf("TopK() = %d, want default 3", r.TopK())
	}
	if r.UserID() != "" {
		t.Errorf("UserID() = %q", r.UserID())
	}
}

func TestNew_ExplicitValues(t *testing.T) {
	r, err := New("query", 7, 3, " alice ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TopK() != 7 {
		t.Errorf("TopK() = %d", r.TopK())
	}
	if r.UserID() != "alice" {
		t.Errorf("UserID() = %q", r.UserID())
	}
}

func TestNew_ClampsTopK(t *testing.T) {
	r, err := New("q", MaxTopK+50, 3, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TopK() != MaxTopK {
		t.Errorf("TopK() = %d, want %d", r.TopK(), MaxTopK)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		topK        int
		defaultTopK int
	}{
		{"empty", "", 3, 3},
		{"blank", "   \n\t", 3, 3},
		{"too long", strings.Repeat("a", MaxQueryLength+1), 3, 3},
		{"negative top_k", "q", -1, 3},
		{"no default", "q", 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.query, tc.topK, tc.defaultTopK, ""); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
