package rag

import (
	"fmt"
	"sort"
	"strings"
)

// EvidenceKind distinguishes vector hits from graph paths.
type EvidenceKind string

const (
	EvidenceChunk EvidenceKind = "chunk"
	EvidencePath  EvidenceKind = "path"
)

// Provenance records which retrieval modality produced an evidence item.
type Provenance string

const (
	ProvenanceVector Provenance = "vector"
	ProvenanceGraph  Provenance = "graph"
)

// Evidence is a transient retrieval result scoped to one planner run: either
// a chunk from vector search or a graph path from traversal.
type Evidence struct {
	ID         string
	Kind       EvidenceKind
	Chunk      *Chunk
	Path       *Path
	Score      float64
	Provenance []Provenance
}

// ChunkEvidence wraps a vector search hit as evidence keyed by chunk id.
func ChunkEvidence(match ChunkMatch) Evidence {
	c := match.Chunk
	return Evidence{
		ID:         c.ID,
		Kind:       EvidenceChunk,
		Chunk:      &c,
		Score:      match.Score,
		Provenance: []Provenance{ProvenanceVector},
	}
}

// PathEvidence wraps a traversal path as evidence. When the path's relations
// share a single supporting chunk, the evidence is keyed by that chunk id so
// it deduplicates against vector hits on the same chunk.
func PathEvidence(path Path) Evidence {
	p := path
	ev := Evidence{
		ID:         pathSignature(p),
		Kind:       EvidencePath,
		Path:       &p,
		Score:      1.0,
		Provenance: []Provenance{ProvenanceGraph},
	}
	if id, ok := singleSupportingChunk(p); ok {
		ev.ID = id
	}
	return ev
}

// MergeEvidence deduplicates evidence by id. An item seen from multiple
// modalities is retained once with the union of provenance tags and the
// maximum score; chunk content wins over a bare path for display purposes,
// but the path is kept alongside it.
func MergeEvidence(items []Evidence) []Evidence {
	byID := make(map[string]*Evidence)
	order := make([]string, 0, len(items))

	for _, item := range items {
		existing, ok := byID[item.ID]
		if !ok {
			copied := item
			copied.Provenance = append([]Provenance(nil), item.Provenance...)
			byID[item.ID] = &copied
			order = append(order, item.ID)
			continue
		}

		for _, p := range item.Provenance {
			if !hasProvenance(existing.Provenance, p) {
				existing.Provenance = append(existing.Provenance, p)
			}
		}
		if item.Score > existing.Score {
			existing.Score = item.Score
		}
		if existing.Chunk == nil && item.Chunk != nil {
			existing.Chunk = item.Chunk
			existing.Kind = EvidenceChunk
		}
		if existing.Path == nil && item.Path != nil {
			existing.Path = item.Path
		}
	}

	merged := make([]Evidence, 0, len(order))
	for _, id := range order {
		merged = append(merged, *byID[id])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

// Text renders the evidence content for prompt construction.
func (e Evidence) Text() string {
	if e.Chunk != nil {
		return e.Chunk.Text
	}
	if e.Path != nil {
		return e.Path.String()
	}
	return ""
}

func hasProvenance(tags []Provenance, p Provenance) bool {
	for _, t := range tags {
		if t == p {
			return true
		}
	}
	return false
}

func singleSupportingChunk(p Path) (string, bool) {
	var id string
	for _, rel := range p.Relations {
		if rel.ChunkID == "" {
			return "", false
		}
		if id == "" {
			id = rel.ChunkID
		} else if id != rel.ChunkID {
			return "", false
		}
	}
	return id, id != ""
}

func pathSignature(p Path) string {
	parts := make([]string, 0, len(p.Entities)+len(p.Relations))
	for i, e := range p.Entities {
		parts = append(parts, e.Key)
		if i < len(p.Relations) {
			parts = append(parts, p.Relations[i].Type)
		}
	}
	return "path:" + strings.Join(parts, "->")
}

// String renders a path as entity(TYPE) -> REL -> entity(TYPE).
func (p Path) String() string {
	var b strings.Builder
	for i, e := range p.Entities {
		if i > 0 {
			rel := p.Relations[i-1]
			fmt.Fprintf(&b, " -[%s]-> ", rel.Type)
		}
		fmt.Fprintf(&b, "%s (%s)", e.Name, e.Type)
	}
	return b.String()
}
