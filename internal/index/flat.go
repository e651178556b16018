// Package index implements an exact nearest-neighbour vector index.
//
// Distances are squared Euclidean (L2) and computed over every record. Lower
// means closer. Equal distances rank by insertion order, earlier first. The
// confidence thresholds in package answer assume this metric.
package index

import (
	"container/heap"
	"fmt"
	"math"
	"sync"

	"github.com/kailas-cloud/docuquery/internal/domain"
	"github.com/kailas-cloud/docuquery/internal/domain/chunk"
	"github.com/kailas-cloud/docuquery/internal/domain/search/result"
)

// Record is one chunk ready for insertion.
type Record struct {
	Text      string
	Metadata  chunk.Metadata
	Embedding []float32
}

type payload struct {
	Text     string         `json:"text"`
	Metadata chunk.Metadata `json:"metadata"`
}

// Flat stores vectors contiguously and scans all of them per query.
// Safe for concurrent use: inserts are serialized and atomic per batch,
// searches run in parallel.
type Flat struct {
	mu       sync.RWMutex
	dim      int // 0 until the first insert
	nextID   uint64
	ids      []uint64
	vectors  []float32 // len(ids) * dim
	payloads []payload
}

// NewFlat creates an empty index. The first insert fixes its dimension.
func NewFlat() *Flat {
	return &Flat{nextID: 1}
}

// Size returns the number of stored records.
func (f *Flat) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Dimension returns the established vector dimension, 0 if none yet.
func (f *Flat) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dim
}

// MaxDimension is the widest vector an index accepts. Snapshots refuse
// anything wider, so Insert does too.
const MaxDimension = 1 << 16

// Insert appends records and returns how many were stored. The batch is
// validated before anything is written: one bad record rejects all of them.
func (f *Flat) Insert(records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dim := f.dim
	if dim == 0 {
		dim = len(records[0].Embedding)
		if dim > MaxDimension {
			return 0, fmt.Errorf("record 0: dimension %d exceeds %d: %w", dim, MaxDimension, domain.ErrInvalidInput)
		}
	}
	for i := range records {
		if err := validateVector(records[i].Embedding, dim); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}

	f.dim = dim
	for i := range records {
		f.ids = append(f.ids, f.nextID)
		f.nextID++
		f.vectors = append(f.vectors, records[i].Embedding...)
		f.payloads = append(f.payloads, payload{
			Text:     records[i].Text,
			Metadata: records[i].Metadata.Clone(),
		})
	}
	return len(records), nil
}

// Search returns up to k records nearest to query, ascending by distance.
// An empty index yields an empty result.
func (f *Flat) Search(query []float32, k int) ([]result.Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	n := len(f.ids)
	if n == 0 {
		return []result.Result{}, nil
	}
	if err := validateVector(query, f.dim); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if k > n {
		k = n
	}

	h := make(maxHeap, 0, k)
	for pos := 0; pos < n; pos++ {
		d := squaredL2(query, f.vectors[pos*f.dim:(pos+1)*f.dim])
		c := candidate{pos: pos, distance: d}
		if len(h) < k {
			heap.Push(&h, c)
			continue
		}
		if c.less(h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	out := make([]result.Result, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		c := heap.Pop(&h).(candidate) //nolint:forcetypeassert // heap holds only candidates
		p := f.payloads[c.pos]
		out[i] = result.New(f.ids[c.pos], p.Text, p.Metadata.Clone(), c.distance)
	}
	return out, nil
}

func validateVector(v []float32, dim int) error {
	if len(v) == 0 {
		return fmt.Errorf("empty embedding: %w", domain.ErrInvalidInput)
	}
	if len(v) != dim {
		return domain.NewDimensionMismatch(len(v), dim)
	}
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("embedding contains non-finite value: %w", domain.ErrInvalidInput)
		}
	}
	return nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

type candidate struct {
	pos      int
	distance float64
}

// less orders by distance, then by insertion position.
func (c candidate) less(o candidate) bool {
	if c.distance != o.distance {
		return c.distance < o.distance
	}
	return c.pos < o.pos
}

// maxHeap keeps the current worst candidate at the root.
type maxHeap []candidate

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[j].less(h[i]) }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *maxHeap) Push(x any) { *h = append(*h, x.(candidate)) } //nolint:forcetypeassert // heap.Interface

func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
