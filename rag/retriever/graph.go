package retriever

import (
	"context"
	"fmt"

	"github.com/fahadazizz/knowledg-rag/rag"
)

// GraphRetriever retrieves paths by traversing the knowledge graph
// from seed entities.
type GraphRetriever struct {
	store         rag.GraphStore
	maxHops       int
	limit         int
	relationTypes []string
}

// GraphRetrieverOption configures the GraphRetriever
type GraphRetrieverOption func(*GraphRetriever)

// WithMaxHops bounds the traversal depth
func WithMaxHops(hops int) GraphRetrieverOption {
	return func(r *GraphRetriever) {
		if hops > 0 {
			r.maxHops = hops
		}
	}
}

// WithPathLimit caps how many paths are returned
func WithPathLimit(limit int) GraphRetrieverOption {
	return func(r *GraphRetriever) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

// WithRelationTypes restricts traversal to the given relation types
func WithRelationTypes(types ...string) GraphRetrieverOption {
	return func(r *GraphRetriever) {
		r.relationTypes = types
	}
}

// NewGraphRetriever creates a new GraphRetriever
func NewGraphRetriever(store rag.GraphStore, opts ...GraphRetrieverOption) *GraphRetriever {
	r := &GraphRetriever{
		store:   store,
		maxHops: 2,
		limit:   rag.DefaultTraversalLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve traverses the graph from the seed entity names and returns
// the found paths as evidence. Seed names are canonicalized, so
// callers may pass display names as extracted or as planned.
func (r *GraphRetriever) Retrieve(ctx context.Context, seeds []string) ([]rag.Evidence, error) {
	if len(seeds) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(seeds))
	seen := make(map[string]bool, len(seeds))
	for _, seed := range seeds {
		key := rag.CanonicalKey(seed)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}

	paths, err := r.store.Traverse(ctx, rag.TraversalQuery{
		StartKeys:     keys,
		MaxHops:       r.maxHops,
		RelationTypes: r.relationTypes,
		Limit:         r.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: traversal: %v", rag.ErrRetrieval, err)
	}

	evidence := make([]rag.Evidence, 0, len(paths))
	for i := range paths {
		evidence = append(evidence, rag.PathEvidence(paths[i]))
	}
	return evidence, nil
}

// SeedsFromEvidence collects entity names mentioned by prior evidence
// paths, for follow-up traversals in later iterations.
func SeedsFromEvidence(evidence []rag.Evidence) []string {
	var seeds []string
	seen := make(map[string]bool)
	for _, ev := range evidence {
		if ev.Path == nil {
			continue
		}
		for _, ent := range ev.Path.Entities {
			if seen[ent.Key] {
				continue
			}
			seen[ent.Key] = true
			seeds = append(seeds, ent.Name)
		}
	}
	return seeds
}
