package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/fahadazizz/knowledg-rag/rag"
)

// MemoryVectorStore is an in-memory rag.VectorStore using cosine
// similarity over a flat scan.
type MemoryVectorStore struct {
	mu     sync.RWMutex
	chunks map[string]rag.Chunk
}

// NewMemoryVectorStore creates an empty in-memory vector store
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{
		chunks: make(map[string]rag.Chunk),
	}
}

var _ rag.VectorStore = (*MemoryVectorStore)(nil)

// UpsertVector stores the chunk, replacing any prior chunk with the same id
func (s *MemoryVectorStore) UpsertVector(ctx context.Context, chunk rag.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[chunk.ID] = chunk
	return nil
}

// QueryNearest returns up to k chunks scored by cosine similarity,
// highest first, dropping those below minScore.
func (s *MemoryVectorStore) QueryNearest(ctx context.Context, vector []float32, k int, minScore float64) ([]rag.ChunkMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]rag.ChunkMatch, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		score := CosineSimilarity(vector, chunk.Embedding)
		if score < minScore {
			continue
		}
		matches = append(matches, rag.ChunkMatch{Chunk: chunk, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Chunk.ID < matches[j].Chunk.ID
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len reports how many chunks the store holds
func (s *MemoryVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// CosineSimilarity computes the cosine of the angle between two
// vectors, 0 when either is empty, mismatched or zero-length.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
