package rag

import (
	"context"
	"strings"
	"time"
)

// Document is an immutable ingested source. Re-ingesting content with the
// same fingerprint is a no-op.
type Document struct {
	ID          string         `json:"id"`
	Content     string         `json:"content"`
	Fingerprint string         `json:"fingerprint"`
	IngestedAt  time.Time      `json:"ingested_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Chunk is a bounded segment of a document, the unit of embedding and citation.
type Chunk struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	Text        string    `json:"text"`
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// Entity is a graph node identified by its canonical key. Surface-form
// variants of the same name merge into one entity with the union of
// supporting chunk ids.
type Entity struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	ChunkIDs []string `json:"chunk_ids"`
}

// Relation is a directed edge between two entities, backed by the chunk it
// was extracted from.
type Relation struct {
	SourceKey  string  `json:"source_key"`
	TargetKey  string  `json:"target_key"`
	Type       string  `json:"type"`
	ChunkID    string  `json:"chunk_id"`
	Confidence float64 `json:"confidence"`
}

// Path is an ordered walk through the graph: len(Entities) == len(Relations)+1.
type Path struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// Turn is one completed question/answer exchange within a thread.
type Turn struct {
	ThreadID    string    `json:"thread_id"`
	Index       int       `json:"index"`
	Query       string    `json:"query"`
	Answer      string    `json:"answer"`
	Citations   []string  `json:"citations"`
	EvidenceIDs []string  `json:"evidence_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// LLM is the text-generation capability. Implementations are assumed
// stateless and may fail transiently; callers apply retry policies.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder produces fixed-dimension vectors for texts.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	GetDimension() int
}

// DefaultTraversalLimit caps how many paths a traversal returns when
// the query does not say.
const DefaultTraversalLimit = 20

// TraversalQuery describes a bounded graph walk from a set of seed entities.
type TraversalQuery struct {
	StartKeys     []string
	MaxHops       int
	RelationTypes []string // empty means all types
	Limit         int
}

// GraphExport is a flat node/edge listing of a bounded subgraph, used by
// callers that render the graph.
type GraphExport struct {
	Entities  []Entity
	Relations []Relation
}

// GraphStore persists entities and relations and answers traversal queries.
// Implementations provide their own concurrency control.
type GraphStore interface {
	UpsertEntity(ctx context.Context, entity Entity) error
	UpsertRelation(ctx context.Context, rel Relation) error
	Traverse(ctx context.Context, query TraversalQuery) ([]Path, error)
	Export(ctx context.Context, limit int) (*GraphExport, error)
}

// ChunkMatch is a vector search hit.
type ChunkMatch struct {
	Chunk Chunk
	Score float64
}

// VectorStore persists chunk embeddings and answers nearest-neighbor queries.
type VectorStore interface {
	UpsertVector(ctx context.Context, chunk Chunk) error
	QueryNearest(ctx context.Context, vector []float32, k int, minScore float64) ([]ChunkMatch, error)
}

// SessionStore holds per-thread ordered turn history. Load of an unknown
// thread returns empty history, never an error.
type SessionStore interface {
	Load(ctx context.Context, threadID string) ([]Turn, error)
	Append(ctx context.Context, threadID string, turn Turn) error
}

// CanonicalKey normalizes an entity surface form to its canonical key:
// case-folded, trimmed, inner whitespace collapsed to single spaces.
func CanonicalKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
