// Package answer maps retrieval output to what a caller shows: a confidence
// estimate, a source list and the grounding context for the language model.
//
// Confidence is a coarse heuristic over squared L2 distances, not a calibrated
// probability. It only promises that a lower average distance never yields a
// lower confidence, and that every result contributes to the average.
package answer

import (
	"unicode/utf8"

	"github.com/kailas-cloud/docuquery/internal/domain"
	"github.com/kailas-cloud/docuquery/internal/domain/search/result"
)

// NoDocumentsAnswer is returned instead of calling the language model when
// retrieval produced nothing.
const NoDocumentsAnswer = "I don't have any relevant documents to answer this question."

// UnknownFilename is shown for chunks ingested without a filename.
const UnknownFilename = "Unknown"

// PreviewLength is the number of characters kept in a source preview.
const PreviewLength = 200

// threshold maps every average distance below maxDistance to confidence.
type threshold struct {
	maxDistance float64
	confidence  float64
}

// thresholds must stay sorted by maxDistance with non-increasing confidence.
var thresholds = []threshold{
	{maxDistance: 0.5, confidence: 0.9},
	{maxDistance: 1.0, confidence: 0.7},
	{maxDistance: 1.5, confidence: 0.5},
}

const floorConfidence = 0.3

// Source is one retrieved chunk as displayed to the user.
type Source struct {
	Filename        string  `json:"filename"`
	ChunkIndex      int     `json:"chunk_index"`
	TextPreview     string  `json:"text_preview"`
	SimilarityScore float64 `json:"similarity_score"`
}

// Confidence returns a value in [0, 1] for a result set. Empty sets score 0.
func Confidence(results []result.Result) float64 {
	if len(results) == 0 {
		return 0
	}
	return ConfidenceForDistance(AverageDistance(results))
}

// AverageDistance is the arithmetic mean distance; 0 for an empty set.
func AverageDistance(results []result.Result) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for i := range results {
		sum += results[i].Distance()
	}
	return sum / float64(len(results))
}

// ConfidenceForDistance maps an average squared L2 distance to confidence.
func ConfidenceForDistance(avg float64) float64 {
	for _, t := range thresholds {
		if avg < t.maxDistance {
			return t.confidence
		}
	}
	return floorConfidence
}

// Sources formats results for display, preserving order.
func Sources(results []result.Result) []Source {
	sources := make([]Source, 0, len(results))
	for i := range results {
		r := &results[i]
		md := r.Metadata()
		filename := md.Filename
		if filename == "" {
			filename = UnknownFilename
		}
		sources = append(sources, Source{
			Filename:        filename,
			ChunkIndex:      md.ChunkIndex,
			TextPreview:     Preview(r.Text()),
			SimilarityScore: r.Distance(),
		})
	}
	return sources
}

// Preview cuts text to PreviewLength characters and appends "..." when it cut.
// The cut is character-based, never word-aware.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	n := 0
	for i := range text {
		if n == PreviewLength {
			return text[:i] + "..."
		}
		n++
	}
	return text
}

// ContextChunks converts results into the ordered grounding context for generation.
func ContextChunks(results []result.Result) []domain.ContextChunk {
	out := make([]domain.ContextChunk, 0, len(results))
	for i := range results {
		md := results[i].Metadata()
		filename := md.Filename
		if filename == "" {
			filename = UnknownFilename
		}
		out = append(out, domain.ContextChunk{
			Filename:   filename,
			ChunkIndex: md.ChunkIndex,
			Text:       results[i].Text(),
		})
	}
	return out
}
