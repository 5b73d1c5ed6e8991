// Package loader turns files and markup into plain-text sources ready
// for ingestion.
package loader

import "context"

// Source is a named piece of plain text to ingest
type Source struct {
	Name     string
	Content  string
	Metadata map[string]any
}

// Loader produces sources from some backing input
type Loader interface {
	Load(ctx context.Context) ([]Source, error)
}

// StaticLoader returns a fixed list of sources, useful in tests and
// for callers that already hold the text in memory.
type StaticLoader struct {
	Sources []Source
}

// NewStaticLoader creates a loader over a static list of sources
func NewStaticLoader(sources []Source) *StaticLoader {
	return &StaticLoader{Sources: sources}
}

// Load returns the static list of sources
func (l *StaticLoader) Load(ctx context.Context) ([]Source, error) {
	return l.Sources, nil
}
