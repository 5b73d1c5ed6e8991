// Package store provides graph and vector storage backends: in-memory
// implementations for tests and small corpora, FalkorDB for the graph
// and Postgres/pgvector for embeddings.
package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/fahadazizz/knowledg-rag/rag"
)

// MemoryGraphStore is an in-memory rag.GraphStore. Entities merge by
// canonical key; the first display name seen for a key wins.
type MemoryGraphStore struct {
	mu        sync.RWMutex
	entities  map[string]*rag.Entity
	relations map[relationKey]*rag.Relation
	adjacency map[string][]relationKey
}

// relations are unique per (source, target, type, chunk)
type relationKey struct {
	source, target, relType, chunkID string
}

// NewMemoryGraphStore creates an empty in-memory graph store
func NewMemoryGraphStore() *MemoryGraphStore {
	return &MemoryGraphStore{
		entities:  make(map[string]*rag.Entity),
		relations: make(map[relationKey]*rag.Relation),
		adjacency: make(map[string][]relationKey),
	}
}

var _ rag.GraphStore = (*MemoryGraphStore)(nil)

// UpsertEntity merges the entity into the graph by canonical key,
// taking the union of supporting chunk ids.
func (s *MemoryGraphStore) UpsertEntity(ctx context.Context, entity rag.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entities[entity.Key]
	if !ok {
		stored := entity
		stored.ChunkIDs = slices.Clone(entity.ChunkIDs)
		s.entities[entity.Key] = &stored
		return nil
	}

	for _, id := range entity.ChunkIDs {
		if !slices.Contains(existing.ChunkIDs, id) {
			existing.ChunkIDs = append(existing.ChunkIDs, id)
		}
	}
	return nil
}

// UpsertRelation records the relation; endpoints need not exist yet.
// Repeats of the same (source, target, type, chunk) keep the higher
// confidence.
func (s *MemoryGraphStore) UpsertRelation(ctx context.Context, rel rag.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := relationKey{rel.SourceKey, rel.TargetKey, rel.Type, rel.ChunkID}
	if existing, ok := s.relations[key]; ok {
		if rel.Confidence > existing.Confidence {
			existing.Confidence = rel.Confidence
		}
		return nil
	}

	stored := rel
	s.relations[key] = &stored
	s.adjacency[rel.SourceKey] = append(s.adjacency[rel.SourceKey], key)
	s.adjacency[rel.TargetKey] = append(s.adjacency[rel.TargetKey], key)
	return nil
}

// Traverse walks outward from the start keys up to MaxHops in either
// edge direction and returns each walk as a Path. Relations are
// followed regardless of direction but reported as stored.
func (s *MemoryGraphStore) Traverse(ctx context.Context, q rag.TraversalQuery) ([]rag.Path, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	maxHops := q.MaxHops
	if maxHops <= 0 {
		maxHops = 2
	}
	limit := q.Limit
	if limit <= 0 {
		limit = rag.DefaultTraversalLimit
	}

	var typeFilter map[string]bool
	if len(q.RelationTypes) > 0 {
		typeFilter = make(map[string]bool, len(q.RelationTypes))
		for _, t := range q.RelationTypes {
			typeFilter[t] = true
		}
	}

	var paths []rag.Path
	for _, start := range q.StartKeys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ent, ok := s.entities[start]
		if !ok {
			continue
		}
		s.walk(walkState{
			path:    rag.Path{Entities: []rag.Entity{*ent}},
			visited: map[string]bool{start: true},
		}, start, maxHops, typeFilter, limit, &paths)
		if len(paths) >= limit {
			break
		}
	}

	sort.SliceStable(paths, func(i, j int) bool {
		return len(paths[i].Relations) < len(paths[j].Relations)
	})
	if len(paths) > limit {
		paths = paths[:limit]
	}
	return paths, nil
}

type walkState struct {
	path    rag.Path
	visited map[string]bool
}

func (s *MemoryGraphStore) walk(state walkState, from string, hopsLeft int, typeFilter map[string]bool, limit int, out *[]rag.Path) {
	if hopsLeft == 0 || len(*out) >= limit {
		return
	}

	for _, key := range s.adjacency[from] {
		rel := s.relations[key]
		if typeFilter != nil && !typeFilter[rel.Type] {
			continue
		}

		next := rel.TargetKey
		if next == from {
			next = rel.SourceKey
		}
		if state.visited[next] {
			continue
		}
		nextEnt, ok := s.entities[next]
		if !ok {
			continue
		}

		extended := walkState{
			path: rag.Path{
				Entities:  append(slices.Clone(state.path.Entities), *nextEnt),
				Relations: append(slices.Clone(state.path.Relations), *rel),
			},
			visited: cloneSet(state.visited),
		}
		extended.visited[next] = true

		*out = append(*out, extended.path)
		if len(*out) >= limit {
			return
		}
		s.walk(extended, next, hopsLeft-1, typeFilter, limit, out)
	}
}

// Export snapshots the graph for visualization, capped at limit
// relations (0 means no cap).
func (s *MemoryGraphStore) Export(ctx context.Context, limit int) (*rag.GraphExport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	export := &rag.GraphExport{}
	for _, ent := range s.entities {
		export.Entities = append(export.Entities, *ent)
	}
	sort.Slice(export.Entities, func(i, j int) bool {
		return export.Entities[i].Key < export.Entities[j].Key
	})

	for _, rel := range s.relations {
		export.Relations = append(export.Relations, *rel)
	}
	sort.Slice(export.Relations, func(i, j int) bool {
		a, b := export.Relations[i], export.Relations[j]
		if a.SourceKey != b.SourceKey {
			return a.SourceKey < b.SourceKey
		}
		if a.TargetKey != b.TargetKey {
			return a.TargetKey < b.TargetKey
		}
		return a.Type < b.Type
	})
	if limit > 0 && len(export.Relations) > limit {
		export.Relations = export.Relations[:limit]
	}
	return export, nil
}

func cloneSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
