// Package retriever turns a query into evidence, either by embedding
// similarity or by walking the knowledge graph.
package retriever

import (
	"context"
	"fmt"

	"github.com/fahadazizz/knowledg-rag/graph"
	"github.com/fahadazizz/knowledg-rag/rag"
)

// DefaultTopK is how many chunks a vector retrieval returns
const DefaultTopK = 5

// VectorRetriever retrieves chunks by embedding similarity
type VectorRetriever struct {
	embedder rag.Embedder
	store    rag.VectorStore
	retry    *graph.RetryConfig
	topK     int
	minScore float64
}

// VectorRetrieverOption configures the VectorRetriever
type VectorRetrieverOption func(*VectorRetriever)

// WithTopK sets how many chunks to return
func WithTopK(k int) VectorRetrieverOption {
	return func(r *VectorRetriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithMinScore sets the similarity floor for returned chunks
func WithMinScore(score float64) VectorRetrieverOption {
	return func(r *VectorRetriever) {
		r.minScore = score
	}
}

// WithVectorRetry sets the retry policy for embedding calls
func WithVectorRetry(retry *graph.RetryConfig) VectorRetrieverOption {
	return func(r *VectorRetriever) {
		r.retry = retry
	}
}

// NewVectorRetriever creates a new VectorRetriever
func NewVectorRetriever(embedder rag.Embedder, store rag.VectorStore, opts ...VectorRetrieverOption) *VectorRetriever {
	r := &VectorRetriever{
		embedder: embedder,
		store:    store,
		retry:    graph.DefaultRetryConfig(),
		topK:     DefaultTopK,
		minScore: 0,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds the query and returns the nearest chunks as evidence
func (r *VectorRetriever) Retrieve(ctx context.Context, query string) ([]rag.Evidence, error) {
	var vector []float32
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		var embErr error
		vector, embErr = r.embedder.EmbedDocument(ctx, query)
		return embErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", rag.ErrRetrieval, err)
	}

	matches, err := r.store.QueryNearest(ctx, vector, r.topK, r.minScore)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rag.ErrRetrieval, err)
	}

	evidence := make([]rag.Evidence, 0, len(matches))
	for _, match := range matches {
		evidence = append(evidence, rag.ChunkEvidence(match))
	}
	return evidence, nil
}
