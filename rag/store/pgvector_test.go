package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahadazizz/knowledg-rag/rag"
)

func TestPgVectorStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPgVectorStoreWithPool(mock, PgVectorOptions{TableName: "chunks", Dimension: 3})

	mock.ExpectExec(regexp.QuoteMeta("CREATE EXTENSION IF NOT EXISTS vector")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, store.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgVectorStore_UpsertVector(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPgVectorStoreWithPool(mock, PgVectorOptions{TableName: "chunks", Dimension: 3})

	chunk := rag.Chunk{
		ID:          "c1",
		DocumentID:  "d1",
		Text:        "some text",
		StartOffset: 0,
		EndOffset:   9,
		Embedding:   []float32{0.5, 0.25, 0.125},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chunks")).
		WithArgs(chunk.ID, chunk.DocumentID, chunk.Text, chunk.StartOffset, chunk.EndOffset, "[0.5,0.25,0.125]").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, store.UpsertVector(context.Background(), chunk))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgVectorStore_QueryNearest(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPgVectorStoreWithPool(mock, PgVectorOptions{TableName: "chunks", Dimension: 3})

	rows := pgxmock.NewRows([]string{"id", "document_id", "content", "start_offset", "end_offset", "score"}).
		AddRow("c1", "d1", "closest", 0, 7, 0.97).
		AddRow("c2", "d1", "further", 7, 14, 0.81)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, document_id, content, start_offset, end_offset")).
		WithArgs("[1,0,0]", 0.5, 2).
		WillReturnRows(rows)

	matches, err := store.QueryNearest(context.Background(), []float32{1, 0, 0}, 2, 0.5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "c1", matches[0].Chunk.ID)
	assert.Equal(t, "closest", matches[0].Chunk.Text)
	assert.InDelta(t, 0.97, matches[0].Score, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgVectorStore_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPgVectorStoreWithPool(mock, PgVectorOptions{})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs("[1]", 0.0, 10).
		WillReturnError(errors.New("connection refused"))

	_, err = store.QueryNearest(context.Background(), []float32{1}, 10, 0)
	assert.Error(t, err)
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[1,0.5,-2]", VectorLiteral([]float32{1, 0.5, -2}))
	assert.Equal(t, "[]", VectorLiteral(nil))
}
