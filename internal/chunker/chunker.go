// Package chunker splits document text into overlapping chunks that respect
// paragraph and sentence boundaries where the size limit allows.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/docuquery/internal/domain/chunk"
)

// Defaults used when the configuration leaves sizes unset.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators is the split precedence: paragraph, line, sentence, word,
// then single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Recursive splits text on the first separator present, recursing with the
// remaining separators into pieces still too large, then greedily merges small
// pieces back up to the size limit with a bounded overlap. Lengths are counted
// in characters (runes).
type Recursive struct {
	size       int
	overlap    int
	separators []string
}

// New creates a recursive chunker. overlap must be smaller than size.
func New(size, overlap int) (*Recursive, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", overlap, size)
	}
	return &Recursive{size: size, overlap: overlap, separators: DefaultSeparators}, nil
}

// Size returns the target maximum chunk length.
func (r *Recursive) Size() int { return r.size }

// Overlap returns the maximum characters shared by consecutive chunks.
func (r *Recursive) Overlap() int { return r.overlap }

// Chunk splits text and stamps each piece with base metadata plus its position.
// Blank text yields nil.
func (r *Recursive) Chunk(text string, base chunk.Metadata) []chunk.Chunk {
	pieces := r.Split(text)
	if len(pieces) == 0 {
		return nil
	}

	out := make([]chunk.Chunk, len(pieces))
	for i, p := range pieces {
		md := base.Clone()
		md.ChunkIndex = i
		md.ChunkTotal = len(pieces)
		out[i] = chunk.New(p, md)
	}
	return out
}

// Count returns how many chunks Chunk would produce.
func (r *Recursive) Count(text string) int {
	return len(r.Split(text))
}

// Split returns the chunk texts without metadata.
func (r *Recursive) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if runeLen(text) <= r.size {
		return []string{text}
	}
	return r.split(text, r.separators)
}

func (r *Recursive) split(text string, separators []string) []string {
	separator, rest := pickSeparator(text, separators)
	splits := splitKeepingSeparator(text, separator)

	var chunks, good []string
	for _, s := range splits {
		if runeLen(s) < r.size {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, r.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			if t := strings.TrimSpace(s); t != "" {
				chunks = append(chunks, t)
			}
			continue
		}
		chunks = append(chunks, r.split(s, rest)...)
	}
	if len(good) > 0 {
		chunks = append(chunks, r.merge(good)...)
	}
	return chunks
}

// merge joins splits into chunks no longer than size, carrying at most overlap
// characters of trailing splits into the next chunk.
func (r *Recursive) merge(splits []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, s := range splits {
		n := runeLen(s)
		if total+n > r.size && len(current) > 0 {
			if doc := joinTrimmed(current); doc != "" {
				docs = append(docs, doc)
			}
			for total > r.overlap || (total+n > r.size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, s)
		total += n
	}
	if doc := joinTrimmed(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// pickSeparator returns the first separator present in text and the separators
// after it. The empty separator always matches and ends the recursion.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// splitKeepingSeparator splits text on sep, attaching each separator to the
// start of the piece that follows it. Empty pieces are dropped. An empty sep
// splits into single characters.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, runeLen(text))
		for _, c := range text {
			out = append(out, string(c))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func joinTrimmed(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, ""))
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
