// Package extract asks an LLM for the entities and relations a chunk
// of text mentions, as strict JSON against closed vocabularies. The
// default vocabularies can be replaced per extractor.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fahadazizz/knowledg-rag/graph"
	"github.com/fahadazizz/knowledg-rag/log"
	"github.com/fahadazizz/knowledg-rag/rag"
)

// EntityTypes is the closed vocabulary for extracted entities
var EntityTypes = []string{
	"DOCUMENT",
	"SECTION",
	"PERSON",
	"ORGANIZATION",
	"CONCEPT",
	"TECHNOLOGY",
	"COMPONENT",
	"PROCESS",
	"ATTRIBUTE",
	"EVENT",
	"LOCATION",
	"OUTCOME",
}

// RelationTypes is the closed vocabulary for extracted relations
var RelationTypes = []string{
	"HAS_SECTION",
	"MENTIONS",
	"AUTHORED_BY",
	"WORKS_FOR",
	"USES",
	"IMPLEMENTS",
	"HAS_ATTRIBUTE",
	"PRODUCES",
	"INTERACTS_WITH",
	"LOCATED_AT",
	"PART_OF",
	"DEFINES",
}

const extractionPrompt = `
Extract entities and relationships from the following text.

Entity types (use ONLY these): %s
Relationship types (use ONLY these): %s

Return a JSON response with this structure and nothing else:
{
  "entities": [
    {
      "name": "entity_name",
      "type": "ENTITY_TYPE"
    }
  ],
  "relationships": [
    {
      "source": "entity1_name",
      "target": "entity2_name",
      "type": "RELATIONSHIP_TYPE",
      "confidence": 0.9
    }
  ]
}

Every relationship source and target must be the name of an entity in
the entities list. Confidence is between 0 and 1.

Text: %s
`

// ExtractedEntity is one entity mention as the model reports it
type ExtractedEntity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ExtractedRelation is one relation as the model reports it
type ExtractedRelation struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Extraction is the validated result of one extraction call
type Extraction struct {
	Entities  []ExtractedEntity
	Relations []ExtractedRelation
}

type extractionResponse struct {
	Entities      []ExtractedEntity   `json:"entities"`
	Relationships []ExtractedRelation `json:"relationships"`
}

// Extractor turns chunk text into graph facts via one LLM call per chunk
type Extractor struct {
	llm    rag.LLM
	retry  *graph.RetryConfig
	logger log.Logger

	entityVocab   []string
	relationVocab []string
	entityTypes   map[string]bool
	relationTypes map[string]bool
}

// ExtractorOption configures the Extractor
type ExtractorOption func(*Extractor)

// WithRetry sets the retry policy for LLM calls
func WithRetry(retry *graph.RetryConfig) ExtractorOption {
	return func(e *Extractor) {
		e.retry = retry
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithEntityTypes replaces the entity vocabulary. Types are matched
// uppercase.
func WithEntityTypes(types []string) ExtractorOption {
	return func(e *Extractor) {
		e.entityVocab = append([]string(nil), types...)
		e.entityTypes = toSet(e.entityVocab)
	}
}

// WithRelationTypes replaces the relation vocabulary. Types are
// matched uppercase.
func WithRelationTypes(types []string) ExtractorOption {
	return func(e *Extractor) {
		e.relationVocab = append([]string(nil), types...)
		e.relationTypes = toSet(e.relationVocab)
	}
}

// NewExtractor creates a new Extractor
func NewExtractor(llm rag.LLM, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		llm:           llm,
		retry:         graph.DefaultRetryConfig(),
		logger:        log.Default(),
		entityVocab:   EntityTypes,
		relationVocab: RelationTypes,
		entityTypes:   toSet(EntityTypes),
		relationTypes: toSet(RelationTypes),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs one extraction call for the chunk text and validates
// the response against the vocabularies. Entities with unknown types
// and relations whose endpoints are not in the entity list are dropped.
func (e *Extractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	prompt := fmt.Sprintf(extractionPrompt,
		strings.Join(e.entityVocab, ", "),
		strings.Join(e.relationVocab, ", "),
		text)

	var response string
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		response, genErr = e.llm.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rag.ErrExtraction, err)
	}

	var parsed extractionResponse
	if err := json.Unmarshal([]byte(StripFences(response)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", rag.ErrExtraction, err)
	}

	return e.validate(&parsed), nil
}

func (e *Extractor) validate(parsed *extractionResponse) *Extraction {
	result := &Extraction{}
	seen := make(map[string]bool)

	for _, ent := range parsed.Entities {
		ent.Name = strings.TrimSpace(ent.Name)
		ent.Type = strings.ToUpper(strings.TrimSpace(ent.Type))
		if ent.Name == "" {
			continue
		}
		if !e.entityTypes[ent.Type] {
			e.logger.Debug("dropping entity %q with unknown type %q", ent.Name, ent.Type)
			continue
		}
		key := rag.CanonicalKey(ent.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		result.Entities = append(result.Entities, ent)
	}

	for _, rel := range parsed.Relationships {
		rel.Source = strings.TrimSpace(rel.Source)
		rel.Target = strings.TrimSpace(rel.Target)
		rel.Type = strings.ToUpper(strings.TrimSpace(rel.Type))
		if rel.Source == "" || rel.Target == "" {
			continue
		}
		if !e.relationTypes[rel.Type] {
			e.logger.Debug("dropping relation %q with unknown type %q", rel.Source+"->"+rel.Target, rel.Type)
			continue
		}
		if !seen[rag.CanonicalKey(rel.Source)] || !seen[rag.CanonicalKey(rel.Target)] {
			e.logger.Debug("dropping relation with unlisted endpoint: %s -> %s", rel.Source, rel.Target)
			continue
		}
		if rel.Confidence == 0 {
			rel.Confidence = 1.0
		}
		result.Relations = append(result.Relations, rel)
	}

	return result
}

// StripFences removes a markdown code fence wrapper from an LLM
// response, tolerating a language tag after the opening fence.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// drop the language tag line (e.g. "json")
		first := strings.TrimSpace(s[:idx])
		if first == "" || !strings.ContainsAny(first, "{}[]") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
