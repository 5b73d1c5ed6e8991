package loader

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownLoader loads a source from a markdown file. The markdown is
// rendered and then reduced to visible text, so formatting syntax does
// not leak into chunks.
type MarkdownLoader struct {
	filePath string
	name     string
	metadata map[string]any
}

// MarkdownLoaderOption configures the MarkdownLoader
type MarkdownLoaderOption func(*MarkdownLoader)

// WithMarkdownName overrides the source name derived from the file path
func WithMarkdownName(name string) MarkdownLoaderOption {
	return func(l *MarkdownLoader) {
		l.name = name
	}
}

// WithMarkdownMetadata sets additional metadata for loaded sources
func WithMarkdownMetadata(metadata map[string]any) MarkdownLoaderOption {
	return func(l *MarkdownLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// NewMarkdownLoader creates a new MarkdownLoader
func NewMarkdownLoader(filePath string, opts ...MarkdownLoaderOption) *MarkdownLoader {
	l := &MarkdownLoader{
		filePath: filePath,
		name:     filepath.Base(filePath),
		metadata: make(map[string]any),
	}

	l.metadata["source"] = filePath
	l.metadata["type"] = "markdown"

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load reads the markdown file and returns its text as one source
func (l *MarkdownLoader) Load(ctx context.Context) ([]Source, error) {
	raw, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", l.filePath, err)
	}

	text, err := MarkdownToText(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markdown %s: %w", l.filePath, err)
	}

	metadata := make(map[string]any)
	maps.Copy(metadata, l.metadata)

	return []Source{{
		Name:     l.name,
		Content:  text,
		Metadata: metadata,
	}}, nil
}

// MarkdownToText renders markdown and strips the markup, leaving the
// plain text with paragraph breaks preserved.
func MarkdownToText(md []byte) (string, error) {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	rendered := markdown.ToHTML(md, p, renderer)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(rendered)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, pre, blockquote, td, th").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	})

	return strings.TrimSpace(sb.String()), nil
}
