package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahadazizz/knowledg-rag/rag"
)

func seedAcmeGraph(t *testing.T, s rag.GraphStore) {
	t.Helper()
	ctx := context.Background()

	entities := []rag.Entity{
		{Key: "acme corp", Name: "Acme Corp", Type: "ORGANIZATION", ChunkIDs: []string{"c1"}},
		{Key: "widget", Name: "Widget", Type: "COMPONENT", ChunkIDs: []string{"c1"}},
		{Key: "globex", Name: "Globex", Type: "ORGANIZATION", ChunkIDs: []string{"c2"}},
	}
	for _, e := range entities {
		require.NoError(t, s.UpsertEntity(ctx, e))
	}

	relations := []rag.Relation{
		{SourceKey: "acme corp", TargetKey: "widget", Type: "PRODUCES", ChunkID: "c1", Confidence: 0.9},
		{SourceKey: "globex", TargetKey: "acme corp", Type: "INTERACTS_WITH", ChunkID: "c2", Confidence: 0.8},
	}
	for _, r := range relations {
		require.NoError(t, s.UpsertRelation(ctx, r))
	}
}

func TestMemoryGraphStoreEntityMerge(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryGraphStore()

	require.NoError(t, s.UpsertEntity(ctx, rag.Entity{Key: "new york", Name: "New York", Type: "LOCATION", ChunkIDs: []string{"c1"}}))
	require.NoError(t, s.UpsertEntity(ctx, rag.Entity{Key: "new york", Name: "new york", Type: "LOCATION", ChunkIDs: []string{"c2", "c1"}}))

	export, err := s.Export(ctx, 0)
	require.NoError(t, err)
	require.Len(t, export.Entities, 1)
	assert.Equal(t, "New York", export.Entities[0].Name, "first display name wins")
	assert.ElementsMatch(t, []string{"c1", "c2"}, export.Entities[0].ChunkIDs)
}

func TestMemoryGraphStoreTraverse(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryGraphStore()
	seedAcmeGraph(t, s)

	t.Run("one hop", func(t *testing.T) {
		paths, err := s.Traverse(ctx, rag.TraversalQuery{StartKeys: []string{"acme corp"}, MaxHops: 1})
		require.NoError(t, err)
		require.Len(t, paths, 2)
		for _, p := range paths {
			assert.Len(t, p.Relations, 1)
			assert.Equal(t, "acme corp", p.Entities[0].Key)
		}
	})

	t.Run("two hops reach globex from widget", func(t *testing.T) {
		paths, err := s.Traverse(ctx, rag.TraversalQuery{StartKeys: []string{"widget"}, MaxHops: 2})
		require.NoError(t, err)

		var reached []string
		for _, p := range paths {
			reached = append(reached, p.Entities[len(p.Entities)-1].Key)
		}
		assert.Contains(t, reached, "acme corp")
		assert.Contains(t, reached, "globex")
	})

	t.Run("relation type filter", func(t *testing.T) {
		paths, err := s.Traverse(ctx, rag.TraversalQuery{
			StartKeys:     []string{"acme corp"},
			MaxHops:       2,
			RelationTypes: []string{"PRODUCES"},
		})
		require.NoError(t, err)
		require.Len(t, paths, 1)
		assert.Equal(t, "widget", paths[0].Entities[1].Key)
	})

	t.Run("unknown start key yields no paths", func(t *testing.T) {
		paths, err := s.Traverse(ctx, rag.TraversalQuery{StartKeys: []string{"nobody"}, MaxHops: 2})
		require.NoError(t, err)
		assert.Empty(t, paths)
	})

	t.Run("limit caps paths", func(t *testing.T) {
		paths, err := s.Traverse(ctx, rag.TraversalQuery{StartKeys: []string{"acme corp"}, MaxHops: 2, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, paths, 1)
	})
}

func TestMemoryGraphStoreRelationDedup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryGraphStore()
	seedAcmeGraph(t, s)

	// Same relation again with higher confidence.
	require.NoError(t, s.UpsertRelation(ctx, rag.Relation{
		SourceKey: "acme corp", TargetKey: "widget", Type: "PRODUCES", ChunkID: "c1", Confidence: 0.95,
	}))

	export, err := s.Export(ctx, 0)
	require.NoError(t, err)
	require.Len(t, export.Relations, 2)
	for _, r := range export.Relations {
		if r.Type == "PRODUCES" {
			assert.InDelta(t, 0.95, r.Confidence, 1e-9)
		}
	}
}

func TestMemoryGraphStoreExportLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryGraphStore()
	seedAcmeGraph(t, s)

	export, err := s.Export(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, export.Relations, 1)
	assert.Len(t, export.Entities, 3, "entities are not capped by the relation limit")
}
