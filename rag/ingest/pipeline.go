// Package ingest runs the document ingestion pipeline: clean, chunk,
// extract graph facts, embed and upsert into the stores.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fahadazizz/knowledg-rag/graph"
	"github.com/fahadazizz/knowledg-rag/log"
	"github.com/fahadazizz/knowledg-rag/rag"
	"github.com/fahadazizz/knowledg-rag/rag/extract"
	"github.com/fahadazizz/knowledg-rag/rag/splitter"
)

// DefaultMinConfidence is the threshold below which extracted
// relations are not written to the graph.
const DefaultMinConfidence = 0.5

// Result summarizes one ingestion run
type Result struct {
	Document          rag.Document
	DocumentID        string
	Fingerprint       string
	ChunksCreated     int
	EntitiesUpserted  int
	RelationsUpserted int
	SkippedChunks     []string // ids of chunks whose graph facts were skipped
	Cached            bool
}

// Pipeline ingests named documents into the graph and vector stores.
// Re-ingesting content with an unchanged fingerprint is a no-op that
// returns the prior result without calling the LLM or embedder.
type Pipeline struct {
	splitter      *splitter.WindowSplitter
	extractor     *extract.Extractor
	embedder      rag.Embedder
	graphStore    rag.GraphStore
	vectorStore   rag.VectorStore
	retry         *graph.RetryConfig
	logger        log.Logger
	minConfidence float64

	mu           sync.Mutex
	fingerprints map[string]*Result
}

// PipelineOption configures the Pipeline
type PipelineOption func(*Pipeline)

// WithSplitter overrides the default window splitter
func WithSplitter(s *splitter.WindowSplitter) PipelineOption {
	return func(p *Pipeline) {
		p.splitter = s
	}
}

// WithMinConfidence sets the relation confidence threshold
func WithMinConfidence(min float64) PipelineOption {
	return func(p *Pipeline) {
		p.minConfidence = min
	}
}

// WithRetry sets the retry policy for embedding calls
func WithRetry(retry *graph.RetryConfig) PipelineOption {
	return func(p *Pipeline) {
		p.retry = retry
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(extractor *extract.Extractor, embedder rag.Embedder, graphStore rag.GraphStore, vectorStore rag.VectorStore, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		splitter:      splitter.NewWindowSplitter(),
		extractor:     extractor,
		embedder:      embedder,
		graphStore:    graphStore,
		vectorStore:   vectorStore,
		retry:         graph.DefaultRetryConfig(),
		logger:        log.Default(),
		minConfidence: DefaultMinConfidence,
		fingerprints:  make(map[string]*Result),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest cleans, chunks, extracts and indexes one document. The name
// labels the document in logs; identity is the content fingerprint.
func (p *Pipeline) Ingest(ctx context.Context, name, content string) (*Result, error) {
	fingerprint := Fingerprint(content)

	p.mu.Lock()
	if prior, ok := p.fingerprints[fingerprint]; ok {
		p.mu.Unlock()
		p.logger.Info("document %q unchanged (fingerprint %s), skipping ingestion", name, fingerprint[:12])
		cached := *prior
		cached.Cached = true
		return &cached, nil
	}
	p.mu.Unlock()

	cleaned := splitter.Clean(content)
	spans := p.splitter.Split(cleaned)
	if len(spans) == 0 {
		return nil, fmt.Errorf("document %q: %w", name, rag.ErrNoChunks)
	}

	docID := uuid.NewString()
	chunks := make([]rag.Chunk, len(spans))
	texts := make([]string, len(spans))
	for i, span := range spans {
		chunks[i] = rag.Chunk{
			ID:          fmt.Sprintf("%s_%04d", docID, i),
			DocumentID:  docID,
			Text:        span.Text,
			StartOffset: span.Start,
			EndOffset:   span.End,
		}
		texts[i] = span.Text
	}

	start := time.Now()
	p.logger.Info("ingesting document %q: %d chunks", name, len(chunks))

	var embeddings [][]float32
	err := p.retry.Do(ctx, func(ctx context.Context) error {
		var embErr error
		embeddings, embErr = p.embedder.EmbedDocuments(ctx, texts)
		return embErr
	})
	if err != nil {
		return nil, fmt.Errorf("embedding document %q: %w", name, err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding document %q: got %d embeddings for %d chunks", name, len(embeddings), len(texts))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	result := &Result{
		Document: rag.Document{
			ID:          docID,
			Content:     content,
			Fingerprint: fingerprint,
			IngestedAt:  start.UTC(),
			Metadata:    map[string]any{"name": name},
		},
		DocumentID:    docID,
		Fingerprint:   fingerprint,
		ChunksCreated: len(chunks),
	}

	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.indexChunk(ctx, &chunks[i], result); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	p.fingerprints[fingerprint] = result
	p.mu.Unlock()

	p.logger.Info("ingested document %q in %v: %d entities, %d relations, %d chunks skipped",
		name, time.Since(start).Round(time.Millisecond),
		result.EntitiesUpserted, result.RelationsUpserted, len(result.SkippedChunks))

	returned := *result
	return &returned, nil
}

// indexChunk writes one chunk's vector and graph facts. Extraction
// failures skip the chunk's graph facts but keep its vector.
func (p *Pipeline) indexChunk(ctx context.Context, chunk *rag.Chunk, result *Result) error {
	if err := p.vectorStore.UpsertVector(ctx, *chunk); err != nil {
		return fmt.Errorf("upserting vector for chunk %s: %w", chunk.ID, err)
	}

	extraction, err := p.extractor.Extract(ctx, chunk.Text)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn("extraction failed for chunk %s, skipping graph facts: %v", chunk.ID, err)
		result.SkippedChunks = append(result.SkippedChunks, chunk.ID)
		return nil
	}

	for _, ent := range extraction.Entities {
		if err := p.graphStore.UpsertEntity(ctx, rag.Entity{
			Key:      rag.CanonicalKey(ent.Name),
			Name:     ent.Name,
			Type:     ent.Type,
			ChunkIDs: []string{chunk.ID},
		}); err != nil {
			return fmt.Errorf("upserting entity %q: %w", ent.Name, err)
		}
		result.EntitiesUpserted++
	}

	for _, rel := range extraction.Relations {
		if rel.Confidence < p.minConfidence {
			p.logger.Debug("dropping relation %s -[%s]-> %s below confidence threshold (%.2f < %.2f)",
				rel.Source, rel.Type, rel.Target, rel.Confidence, p.minConfidence)
			continue
		}
		if err := p.graphStore.UpsertRelation(ctx, rag.Relation{
			SourceKey:  rag.CanonicalKey(rel.Source),
			TargetKey:  rag.CanonicalKey(rel.Target),
			Type:       rel.Type,
			ChunkID:    chunk.ID,
			Confidence: rel.Confidence,
		}); err != nil {
			return fmt.Errorf("upserting relation %s -> %s: %w", rel.Source, rel.Target, err)
		}
		result.RelationsUpserted++
	}

	return nil
}

// Fingerprint returns the hex SHA-256 of the raw document content
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
