package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fahadazizz/knowledg-rag/rag"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PgVectorStore implements rag.VectorStore on Postgres with the
// pgvector extension.
type PgVectorStore struct {
	pool      DBPool
	tableName string
	dimension int
}

// PgVectorOptions configuration for the Postgres connection
type PgVectorOptions struct {
	ConnString string
	TableName  string // Default "chunks"
	Dimension  int    // Default 1536
}

// NewPgVectorStore creates a new pgvector-backed store
func NewPgVectorStore(ctx context.Context, opts PgVectorOptions) (*PgVectorStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return newPgVectorStore(pool, opts), nil
}

// NewPgVectorStoreWithPool creates a store with an existing pool.
// Useful for testing with mocks.
func NewPgVectorStoreWithPool(pool DBPool, opts PgVectorOptions) *PgVectorStore {
	return newPgVectorStore(pool, opts)
}

func newPgVectorStore(pool DBPool, opts PgVectorOptions) *PgVectorStore {
	tableName := opts.TableName
	if tableName == "" {
		tableName = "chunks"
	}
	dimension := opts.Dimension
	if dimension == 0 {
		dimension = 1536
	}
	return &PgVectorStore{
		pool:      pool,
		tableName: tableName,
		dimension: dimension,
	}
}

var _ rag.VectorStore = (*PgVectorStore)(nil)

// InitSchema creates the extension and table if they don't exist
func (s *PgVectorStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content TEXT NOT NULL,
			start_offset INTEGER NOT NULL,
			end_offset INTEGER NOT NULL,
			embedding vector(%d) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_document_id ON %s (document_id);
	`, s.tableName, s.dimension, s.tableName, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// UpsertVector stores the chunk, replacing any prior row with the same id
func (s *PgVectorStore) UpsertVector(ctx context.Context, chunk rag.Chunk) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, content, start_offset, end_offset, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			content = EXCLUDED.content,
			start_offset = EXCLUDED.start_offset,
			end_offset = EXCLUDED.end_offset,
			embedding = EXCLUDED.embedding
	`, s.tableName)

	_, err := s.pool.Exec(ctx, query,
		chunk.ID, chunk.DocumentID, chunk.Text,
		chunk.StartOffset, chunk.EndOffset, VectorLiteral(chunk.Embedding))
	if err != nil {
		return fmt.Errorf("failed to upsert chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// QueryNearest returns up to k chunks by cosine similarity, highest
// first, dropping rows below minScore.
func (s *PgVectorStore) QueryNearest(ctx context.Context, vector []float32, k int, minScore float64) ([]rag.ChunkMatch, error) {
	if k <= 0 {
		k = 10
	}
	query := fmt.Sprintf(`
		SELECT id, document_id, content, start_offset, end_offset,
			1 - (embedding <=> $1) AS score
		FROM %s
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, VectorLiteral(vector), minScore, k)
	if err != nil {
		return nil, fmt.Errorf("nearest query failed: %w", err)
	}
	defer rows.Close()

	var matches []rag.ChunkMatch
	for rows.Next() {
		var m rag.ChunkMatch
		if err := rows.Scan(&m.Chunk.ID, &m.Chunk.DocumentID, &m.Chunk.Text,
			&m.Chunk.StartOffset, &m.Chunk.EndOffset, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return matches, nil
}

// Close closes the connection pool
func (s *PgVectorStore) Close() {
	s.pool.Close()
}

// VectorLiteral renders an embedding in the pgvector text input format
func VectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
