package loader

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
)

// TextLoader loads a source from a plain text file
type TextLoader struct {
	filePath string
	name     string
	metadata map[string]any
}

// TextLoaderOption configures the TextLoader
type TextLoaderOption func(*TextLoader)

// WithName overrides the source name derived from the file path
func WithName(name string) TextLoaderOption {
	return func(l *TextLoader) {
		l.name = name
	}
}

// WithMetadata sets additional metadata for loaded sources
func WithMetadata(metadata map[string]any) TextLoaderOption {
	return func(l *TextLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// NewTextLoader creates a new TextLoader
func NewTextLoader(filePath string, opts ...TextLoaderOption) *TextLoader {
	l := &TextLoader{
		filePath: filePath,
		name:     filepath.Base(filePath),
		metadata: make(map[string]any),
	}

	l.metadata["source"] = filePath
	l.metadata["type"] = "text"

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load reads the file and returns a single source
func (l *TextLoader) Load(ctx context.Context) ([]Source, error) {
	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", l.filePath, err)
	}

	metadata := make(map[string]any)
	maps.Copy(metadata, l.metadata)

	return []Source{{
		Name:     l.name,
		Content:  string(content),
		Metadata: metadata,
	}}, nil
}
