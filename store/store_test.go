package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(0), Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestAddAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Add(ctx, []Record{
		{ID: "x", Vector: []float32{1, 0}, Text: "east"},
		{ID: "y", Vector: []float32{0, 1}, Text: "north"},
		{ID: "d", Vector: []float32{0.7, 0.7}, Text: "northeast"},
	}))
	assert.Equal(t, 3, s.Len())

	matches, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "x", matches[0].Record.ID)
	assert.Equal(t, "d", matches[1].Record.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestSearchTopNLargerThanStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Add(ctx, []Record{{ID: "only", Vector: []float32{1}}}))

	matches, err := s.Search(ctx, []float32{1}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSearchDeterministicTieBreak(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Add(ctx, []Record{
		{ID: "b", Vector: []float32{1, 0}},
		{ID: "a", Vector: []float32{1, 0}},
	}))

	matches, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "a", matches[0].Record.ID)
	assert.Equal(t, "b", matches[1].Record.ID)
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Add(ctx, []Record{{ID: "a", Vector: []float32{1, 2}}}))

	err := s.Add(ctx, []Record{{ID: "b", Vector: []float32{1, 2, 3}}})
	assert.Error(t, err)

	err = s.Add(ctx, []Record{{ID: "c", Vector: nil}})
	assert.Error(t, err)
}

func TestSearchRejectsBadQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Add(ctx, []Record{{ID: "a", Vector: []float32{1, 2}}}))

	_, err := s.Search(ctx, []float32{1}, 1)
	assert.Error(t, err)

	_, err = s.Search(ctx, []float32{1, 2}, 0)
	assert.Error(t, err)
}

func TestWithSimilarity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(WithSimilarity(DotProduct))
	require.NoError(t, s.Add(ctx, []Record{
		{ID: "long", Vector: []float32{10, 0}},
		{ID: "short", Vector: []float32{1, 0}},
	}))

	matches, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	// Dot product favours magnitude; cosine would tie these.
	assert.Equal(t, "long", matches[0].Record.ID)
}
