package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahadazizz/knowledg-rag/rag"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestMemoryVectorStoreQueryNearest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore()

	chunks := []rag.Chunk{
		{ID: "c1", DocumentID: "d1", Text: "exact", Embedding: []float32{1, 0, 0}},
		{ID: "c2", DocumentID: "d1", Text: "close", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "c3", DocumentID: "d1", Text: "orthogonal", Embedding: []float32{0, 0, 1}},
	}
	for _, c := range chunks {
		require.NoError(t, s.UpsertVector(ctx, c))
	}

	t.Run("ranked by similarity", func(t *testing.T) {
		matches, err := s.QueryNearest(ctx, []float32{1, 0, 0}, 10, 0)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "c1", matches[0].Chunk.ID)
		assert.Equal(t, "c2", matches[1].Chunk.ID)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	})

	t.Run("k caps results", func(t *testing.T) {
		matches, err := s.QueryNearest(ctx, []float32{1, 0, 0}, 1, 0)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "c1", matches[0].Chunk.ID)
	})

	t.Run("min score filters", func(t *testing.T) {
		matches, err := s.QueryNearest(ctx, []float32{1, 0, 0}, 10, 0.5)
		require.NoError(t, err)
		require.Len(t, matches, 2)
	})

	t.Run("upsert replaces by id", func(t *testing.T) {
		require.NoError(t, s.UpsertVector(ctx, rag.Chunk{ID: "c1", DocumentID: "d1", Text: "changed", Embedding: []float32{0, 1, 0}}))
		assert.Equal(t, 3, s.Len())

		matches, err := s.QueryNearest(ctx, []float32{0, 1, 0}, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, "c1", matches[0].Chunk.ID)
		assert.Equal(t, "changed", matches[0].Chunk.Text)
	})
}
