package vectorstore

import (
	"context"
	"strings"
	"sync"
	"testing"
	"unicode"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docuquery/internal/domain"
	"github.com/kailas-cloud/docuquery/internal/domain/chunk"
)

// vocabEmbedder maps each known word to its own axis and counts occurrences.
// Unknown words are ignored.
type vocabEmbedder struct {
	mu         sync.Mutex
	vocab      map[string]int
	dim        int
	embedCalls int
	batchCalls int
	err        error
	truncate   bool // return one vector fewer than asked
}

func newVocabEmbedder(words ...string) *vocabEmbedder {
	v := &vocabEmbedder{vocab: make(map[string]int, len(words)), dim: len(words)}
	for i, w := range words {
		v.vocab[w] = i
	}
	return v
}

func (v *vocabEmbedder) vector(text string) []float32 {
	vec := make([]float32, v.dim)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if i, ok := v.vocab[w]; ok {
			vec[i]++
		}
	}
	return vec
}

func (v *vocabEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	v.mu.Lock()
	v.embedCalls++
	v.mu.Unlock()
	if v.err != nil {
		return domain.EmbeddingResult{}, v.err
	}
	return domain.EmbeddingResult{Embedding: v.vector(text), TotalTokens: 1}, nil
}

func (v *vocabEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	v.mu.Lock()
	v.batchCalls++
	v.mu.Unlock()
	if v.err != nil {
		return domain.BatchEmbeddingResult{}, v.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, v.vector(t))
	}
	if v.truncate {
		out = out[:len(out)-1]
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder struct{ vec []float32 }

func (f fixedEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: f.vec}, nil
}

func newTestManager(t *testing.T, e domain.Embedder) *Manager {
	t.Helper()
	return New(e, Config{Dir: t.TempDir()}, zap.NewNop())
}

func chunksOf(filename string, texts ...string) []chunk.Chunk {
	out := make([]chunk.Chunk, len(texts))
	for i, text := range texts {
		out[i] = chunk.New(text, chunk.Metadata{Filename: filename, ChunkIndex: i, ChunkTotal: len(texts)})
	}
	return out
}
