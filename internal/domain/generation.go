package domain

import "context"

// ContextChunk is one retrieved chunk handed to the language model as grounding.
type ContextChunk struct {
	Filename   string
	ChunkIndex int
	Text       string
}

// Generator produces a grounded answer for a question from retrieved chunks.
type Generator interface {
	Generate(ctx context.Context, question string, chunks []ContextChunk) (string, error)
}
