package store

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/fahadazizz/knowledg-rag/rag"
)

// FalkorDBGraphStore implements rag.GraphStore against a FalkorDB
// server over the Redis protocol.
type FalkorDBGraphStore struct {
	client    redis.UniversalClient
	graphName string
}

// NewFalkorDBGraphStore connects using a connection string of the form
// falkordb://host:port/graph_name.
func NewFalkorDBGraphStore(connectionString string) (*FalkorDBGraphStore, error) {
	addr, graphName, err := parseFalkorDBURL(connectionString)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	return &FalkorDBGraphStore{
		client:    client,
		graphName: graphName,
	}, nil
}

// NewFalkorDBGraphStoreWithClient wraps an existing client, useful for tests
func NewFalkorDBGraphStoreWithClient(client redis.UniversalClient, graphName string) *FalkorDBGraphStore {
	if graphName == "" {
		graphName = "knowledge"
	}
	return &FalkorDBGraphStore{client: client, graphName: graphName}
}

var _ rag.GraphStore = (*FalkorDBGraphStore)(nil)

func parseFalkorDBURL(connectionString string) (addr, graphName string, err error) {
	u, err := url.Parse(connectionString)
	if err != nil {
		return "", "", fmt.Errorf("invalid connection string: %w", err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("invalid connection string: missing host")
	}
	graphName = strings.TrimPrefix(u.Path, "/")
	if graphName == "" {
		graphName = "knowledge"
	}
	return u.Host, graphName, nil
}

// UpsertEntity merges the entity node by canonical key. Supporting
// chunk ids accumulate on the node; duplicates are possible and
// readers dedupe.
func (f *FalkorDBGraphStore) UpsertEntity(ctx context.Context, entity rag.Entity) error {
	label := sanitizeLabel(entity.Type)
	query := fmt.Sprintf(
		"MERGE (n:%s {key: %s}) ON CREATE SET n.name = %s, n.chunk_ids = [] SET n.chunk_ids = n.chunk_ids + %s",
		label,
		quoteString(entity.Key),
		quoteString(entity.Name),
		quoteStringList(entity.ChunkIDs),
	)
	_, err := f.query(ctx, query)
	return err
}

// UpsertRelation merges the relation edge between two existing entity
// nodes, keyed by type and supporting chunk.
func (f *FalkorDBGraphStore) UpsertRelation(ctx context.Context, rel rag.Relation) error {
	relType := sanitizeLabel(rel.Type)
	query := fmt.Sprintf(
		"MATCH (a {key: %s}), (b {key: %s}) MERGE (a)-[r:%s {chunk_id: %s}]->(b) SET r.confidence = %f",
		quoteString(rel.SourceKey),
		quoteString(rel.TargetKey),
		relType,
		quoteString(rel.ChunkID),
		rel.Confidence,
	)
	_, err := f.query(ctx, query)
	return err
}

// Traverse expands outward from the start keys one hop at a time,
// assembling paths client-side. Edges are followed in both directions.
func (f *FalkorDBGraphStore) Traverse(ctx context.Context, q rag.TraversalQuery) ([]rag.Path, error) {
	maxHops := q.MaxHops
	if maxHops <= 0 {
		maxHops = 2
	}
	limit := q.Limit
	if limit <= 0 {
		limit = rag.DefaultTraversalLimit
	}

	// Fetch the bounded neighborhood, then reuse the in-memory walk
	// so FalkorDB and the memory store agree on path shapes.
	snapshot := NewMemoryGraphStore()
	frontier := q.StartKeys
	seen := make(map[string]bool)

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, key := range frontier {
			if seen[key] {
				continue
			}
			seen[key] = true

			neighbors, err := f.expand(ctx, key, q.RelationTypes, snapshot)
			if err != nil {
				return nil, err
			}
			next = append(next, neighbors...)
		}
		frontier = next
	}

	return snapshot.Traverse(ctx, rag.TraversalQuery{
		StartKeys:     q.StartKeys,
		MaxHops:       maxHops,
		RelationTypes: q.RelationTypes,
		Limit:         limit,
	})
}

// expand loads all edges touching key into the snapshot and returns
// the neighbor keys.
func (f *FalkorDBGraphStore) expand(ctx context.Context, key string, relationTypes []string, snapshot *MemoryGraphStore) ([]string, error) {
	cypher := fmt.Sprintf(
		"MATCH (n {key: %s})-[r]-(m) RETURN n.key, n.name, labels(n)[0], type(r), r.chunk_id, r.confidence, m.key, m.name, labels(m)[0], startNode(r) = n",
		quoteString(key),
	)
	if len(relationTypes) > 0 {
		clauses := make([]string, 0, len(relationTypes))
		for _, t := range relationTypes {
			clauses = append(clauses, fmt.Sprintf("type(r) = %s", quoteString(sanitizeLabel(t))))
		}
		cypher = fmt.Sprintf(
			"MATCH (n {key: %s})-[r]-(m) WHERE %s RETURN n.key, n.name, labels(n)[0], type(r), r.chunk_id, r.confidence, m.key, m.name, labels(m)[0], startNode(r) = n",
			quoteString(key),
			strings.Join(clauses, " OR "),
		)
	}

	qr, err := f.query(ctx, cypher)
	if err != nil {
		return nil, err
	}

	var neighbors []string
	for _, row := range qr.rows {
		if len(row) < 10 {
			continue
		}
		nKey, nName, nType := asString(row[0]), asString(row[1]), asString(row[2])
		relType, chunkID := asString(row[3]), asString(row[4])
		confidence := asFloat(row[5])
		mKey, mName, mType := asString(row[6]), asString(row[7]), asString(row[8])
		outgoing := asBool(row[9])

		_ = snapshot.UpsertEntity(ctx, rag.Entity{Key: nKey, Name: nName, Type: nType})
		_ = snapshot.UpsertEntity(ctx, rag.Entity{Key: mKey, Name: mName, Type: mType})

		rel := rag.Relation{SourceKey: nKey, TargetKey: mKey, Type: relType, ChunkID: chunkID, Confidence: confidence}
		if !outgoing {
			rel.SourceKey, rel.TargetKey = mKey, nKey
		}
		_ = snapshot.UpsertRelation(ctx, rel)

		neighbors = append(neighbors, mKey)
	}
	return neighbors, nil
}

// Export returns a flat listing of the stored graph
func (f *FalkorDBGraphStore) Export(ctx context.Context, limit int) (*rag.GraphExport, error) {
	cypher := "MATCH (n)-[r]->(m) RETURN n.key, n.name, labels(n)[0], type(r), r.chunk_id, r.confidence, m.key, m.name, labels(m)[0]"
	if limit > 0 {
		cypher += fmt.Sprintf(" LIMIT %d", limit)
	}

	qr, err := f.query(ctx, cypher)
	if err != nil {
		return nil, err
	}

	export := &rag.GraphExport{}
	seen := make(map[string]bool)
	addEntity := func(key, name, typ string) {
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		export.Entities = append(export.Entities, rag.Entity{Key: key, Name: name, Type: typ})
	}

	for _, row := range qr.rows {
		if len(row) < 9 {
			continue
		}
		addEntity(asString(row[0]), asString(row[1]), asString(row[2]))
		addEntity(asString(row[6]), asString(row[7]), asString(row[8]))
		export.Relations = append(export.Relations, rag.Relation{
			SourceKey:  asString(row[0]),
			TargetKey:  asString(row[6]),
			Type:       asString(row[3]),
			ChunkID:    asString(row[4]),
			Confidence: asFloat(row[5]),
		})
	}
	return export, nil
}

// Close closes the underlying client
func (f *FalkorDBGraphStore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

type queryResult struct {
	header []string
	rows   [][]any
	stats  []string
}

func (f *FalkorDBGraphStore) query(ctx context.Context, q string) (*queryResult, error) {
	res, err := f.client.Do(ctx, "GRAPH.QUERY", f.graphName, q).Result()
	if err != nil {
		return nil, fmt.Errorf("graph query failed: %w", err)
	}

	r, ok := res.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", res)
	}

	qr := &queryResult{}
	var headerPart, rowsPart, statsPart any
	switch len(r) {
	case 3:
		headerPart, rowsPart, statsPart = r[0], r[1], r[2]
	case 2:
		rowsPart, statsPart = r[0], r[1]
	default:
		return nil, fmt.Errorf("unexpected response length: %d", len(r))
	}

	if header, ok := headerPart.([]any); ok {
		qr.header = make([]string, len(header))
		for i, h := range header {
			qr.header[i] = fmt.Sprint(h)
		}
	}
	if rows, ok := rowsPart.([]any); ok {
		qr.rows = make([][]any, 0, len(rows))
		for _, row := range rows {
			if vals, ok := row.([]any); ok {
				qr.rows = append(qr.rows, vals)
			}
		}
	}
	if stats, ok := statsPart.([]any); ok {
		qr.stats = make([]string, len(stats))
		for i, s := range stats {
			qr.stats[i] = fmt.Sprint(s)
		}
	}
	return qr, nil
}

var labelRegex = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func sanitizeLabel(l string) string {
	clean := labelRegex.ReplaceAllString(l, "_")
	if clean == "" {
		return "Entity"
	}
	return clean
}

func quoteString(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}

func quoteStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = quoteString(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case string:
		var f float64
		fmt.Sscanf(t, "%f", &f)
		return f
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}
