package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahadazizz/knowledg-rag/graph"
	"github.com/fahadazizz/knowledg-rag/rag"
	"github.com/fahadazizz/knowledg-rag/rag/store"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (e *stubEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return e.vector, e.err
}

func (e *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, e.err
}

func (e *stubEmbedder) GetDimension() int { return len(e.vector) }

func TestVectorRetriever(t *testing.T) {
	ctx := context.Background()
	vs := store.NewMemoryVectorStore()
	require.NoError(t, vs.UpsertVector(ctx, rag.Chunk{ID: "c1", Text: "relevant", Embedding: []float32{1, 0}}))
	require.NoError(t, vs.UpsertVector(ctx, rag.Chunk{ID: "c2", Text: "unrelated", Embedding: []float32{0, 1}}))

	t.Run("returns chunk evidence ranked by score", func(t *testing.T) {
		r := NewVectorRetriever(&stubEmbedder{vector: []float32{1, 0}}, vs, WithMinScore(0.5))
		evidence, err := r.Retrieve(ctx, "what is relevant?")
		require.NoError(t, err)
		require.Len(t, evidence, 1)
		assert.Equal(t, "c1", evidence[0].ID)
		assert.Equal(t, rag.EvidenceChunk, evidence[0].Kind)
		assert.Equal(t, []rag.Provenance{rag.ProvenanceVector}, evidence[0].Provenance)
	})

	t.Run("embedding failure is a retrieval error", func(t *testing.T) {
		embedder := &stubEmbedder{err: errors.New("rate limited")}
		r := NewVectorRetriever(embedder, vs,
			WithVectorRetry(&graph.RetryConfig{MaxAttempts: 2, InitialDelay: 1, MaxDelay: 1, BackoffFactor: 1}))
		_, err := r.Retrieve(ctx, "query")
		require.Error(t, err)
		assert.ErrorIs(t, err, rag.ErrRetrieval)
		assert.Equal(t, 2, embedder.calls, "embedding is retried")
	})
}

func TestGraphRetriever(t *testing.T) {
	ctx := context.Background()
	gs := store.NewMemoryGraphStore()
	require.NoError(t, gs.UpsertEntity(ctx, rag.Entity{Key: "acme corp", Name: "Acme Corp", Type: "ORGANIZATION"}))
	require.NoError(t, gs.UpsertEntity(ctx, rag.Entity{Key: "widget", Name: "Widget", Type: "COMPONENT"}))
	require.NoError(t, gs.UpsertRelation(ctx, rag.Relation{
		SourceKey: "acme corp", TargetKey: "widget", Type: "PRODUCES", ChunkID: "c1", Confidence: 0.9,
	}))

	t.Run("seeds are canonicalized", func(t *testing.T) {
		r := NewGraphRetriever(gs)
		evidence, err := r.Retrieve(ctx, []string{"  ACME   Corp "})
		require.NoError(t, err)
		require.Len(t, evidence, 1)
		assert.Equal(t, rag.EvidencePath, evidence[0].Kind)
		assert.Equal(t, []rag.Provenance{rag.ProvenanceGraph}, evidence[0].Provenance)
	})

	t.Run("no seeds yields no evidence", func(t *testing.T) {
		r := NewGraphRetriever(gs)
		evidence, err := r.Retrieve(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, evidence)
	})

	t.Run("unknown seeds yield no evidence", func(t *testing.T) {
		r := NewGraphRetriever(gs)
		evidence, err := r.Retrieve(ctx, []string{"nobody"})
		require.NoError(t, err)
		assert.Empty(t, evidence)
	})
}

func TestSeedsFromEvidence(t *testing.T) {
	path := rag.Path{
		Entities: []rag.Entity{
			{Key: "acme corp", Name: "Acme Corp"},
			{Key: "widget", Name: "Widget"},
		},
		Relations: []rag.Relation{{SourceKey: "acme corp", TargetKey: "widget", Type: "PRODUCES", ChunkID: "c1"}},
	}
	evidence := []rag.Evidence{
		rag.PathEvidence(path),
		{ID: "c9", Kind: rag.EvidenceChunk, Chunk: &rag.Chunk{ID: "c9"}},
	}

	seeds := SeedsFromEvidence(evidence)
	assert.ElementsMatch(t, []string{"Acme Corp", "Widget"}, seeds)
}
