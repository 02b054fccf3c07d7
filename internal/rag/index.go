// Package rag implements retrieval-augmented answering over a document corpus.
package rag

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Chunk is an embedded piece of a corpus document.
type Chunk struct {
	ID        string    `bson:"_id"`
	Source    string    `bson:"source"`
	Text      string    `bson:"text"`
	Embedding []float32 `bson:"embedding"`
}

// Hit is a chunk returned by a search with its similarity score.
type Hit struct {
	Chunk `bson:",inline"`
	Score float64 `bson:"score"`
}

// Index stores chunks and answers nearest-neighbour queries.
type Index interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Len(ctx context.Context) (int, error)
}

// MemoryIndex is a brute-force cosine index held in memory.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks map[string]Chunk
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{chunks: make(map[string]Chunk)}
}

var _ Index = (*MemoryIndex)(nil)

func (m *MemoryIndex) Upsert(_ context.Context, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	hits := make([]Hit, 0, len(m.chunks))
	for _, c := range m.chunks {
		hits = append(hits, Hit{Chunk: c, Score: cosine(vector, c.Embedding)})
	}
	m.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MemoryIndex) Len(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

// cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector is zero.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
