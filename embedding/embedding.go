package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Dependency is the logical dependency name for embedding providers,
// used by the circuit breaker registry.
const Dependency = "embedder"

// Embedder converts text to dense vectors. Implementations must be safe for
// concurrent use.
type Embedder interface {
	// Embed returns the vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the vector width.
	Dimensions() int
}

// MockEmbedder produces deterministic vectors derived from a SHA-256 digest
// of the input. Identical texts always embed identically, distinct texts
// almost never collide, and every vector is L2-normalized, which makes
// cosine ranking stable in tests.
type MockEmbedder struct {
	dims int
}

// NewMockEmbedder creates a deterministic embedder with the given vector
// width. Width defaults to 64 when non-positive.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 64
	}
	return &MockEmbedder{dims: dims}
}

// Dimensions implements Embedder.
func (m *MockEmbedder) Dimensions() int { return m.dims }

// Embed implements Embedder.
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, m.dims)
	digest := sha256.Sum256([]byte(text))
	seed := digest[:]
	for i := 0; i < m.dims; i++ {
		if len(seed) < 8 {
			next := sha256.Sum256(seed)
			seed = next[:]
		}
		bits := binary.BigEndian.Uint64(seed[:8])
		seed = seed[8:]
		// Map to [-1, 1).
		vec[i] = float32(int64(bits>>11))/float32(1<<52) - 1
	}
	normalize(vec)
	return vec, nil
}

// EmbedBatch implements Embedder.
func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
