package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Record is one stored vector with its source text and metadata.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// Match is one search hit. Score is similarity, higher is better.
type Match struct {
	Record Record
	Score  float32
}

// VectorStore stores records and retrieves nearest neighbors.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	Add(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, topN int) ([]Match, error)
	Len() int
}

// Similarity scores two equal-length vectors, higher meaning closer.
type Similarity func(a, b []float32) float32

// Cosine is the default similarity. Zero vectors score zero.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// DotProduct scores by the raw inner product. Appropriate when vectors are
// already normalized.
func DotProduct(a, b []float32) float32 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot)
}

// MemoryStore is an in-memory VectorStore.
type MemoryStore struct {
	mu         sync.RWMutex
	records    []Record
	similarity Similarity
	dims       int
}

// NewMemoryStore creates an empty store using cosine similarity.
func NewMemoryStore(optFns ...func(s *MemoryStore)) *MemoryStore {
	s := &MemoryStore{similarity: Cosine}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// WithSimilarity replaces the ranking function.
func WithSimilarity(sim Similarity) func(s *MemoryStore) {
	return func(s *MemoryStore) { s.similarity = sim }
}

// Add implements VectorStore. All vectors must share one dimensionality;
// the first record added fixes it.
func (s *MemoryStore) Add(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if len(r.Vector) == 0 {
			return fmt.Errorf("store: record %q has an empty vector", r.ID)
		}
		if s.dims == 0 {
			s.dims = len(r.Vector)
		} else if len(r.Vector) != s.dims {
			return fmt.Errorf("store: record %q has %d dimensions, store has %d",
				r.ID, len(r.Vector), s.dims)
		}
		s.records = append(s.records, r)
	}
	return nil
}

// Search implements VectorStore. Results are sorted by descending score,
// ties broken by record id for determinism.
func (s *MemoryStore) Search(_ context.Context, vector []float32, topN int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topN < 1 {
		return nil, fmt.Errorf("store: topN must be positive, got %d", topN)
	}
	if s.dims != 0 && len(vector) != s.dims {
		return nil, fmt.Errorf("store: query has %d dimensions, store has %d", len(vector), s.dims)
	}

	matches := make([]Match, 0, len(s.records))
	for _, r := range s.records {
		matches = append(matches, Match{Record: r, Score: s.similarity(vector, r.Vector)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Record.ID < matches[j].Record.ID
	})
	if topN < len(matches) {
		matches = matches[:topN]
	}
	return matches, nil
}

// Len implements VectorStore.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
