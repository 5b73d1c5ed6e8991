package loader

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// HTMLLoader loads a source from an HTML file, keeping only the
// visible text. Markup is sanitized before extraction so script and
// style payloads never reach the index.
type HTMLLoader struct {
	filePath string
	name     string
	selector string
	metadata map[string]any
	policy   *bluemonday.Policy
}

// HTMLLoaderOption configures the HTMLLoader
type HTMLLoaderOption func(*HTMLLoader)

// WithHTMLName overrides the source name derived from the file path
func WithHTMLName(name string) HTMLLoaderOption {
	return func(l *HTMLLoader) {
		l.name = name
	}
}

// WithSelector restricts extraction to a CSS selector
func WithSelector(selector string) HTMLLoaderOption {
	return func(l *HTMLLoader) {
		l.selector = selector
	}
}

// WithHTMLMetadata sets additional metadata for loaded sources
func WithHTMLMetadata(metadata map[string]any) HTMLLoaderOption {
	return func(l *HTMLLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// NewHTMLLoader creates a new HTMLLoader
func NewHTMLLoader(filePath string, opts ...HTMLLoaderOption) *HTMLLoader {
	l := &HTMLLoader{
		filePath: filePath,
		name:     filepath.Base(filePath),
		selector: "body",
		metadata: make(map[string]any),
		policy:   bluemonday.UGCPolicy(),
	}

	l.metadata["source"] = filePath
	l.metadata["type"] = "html"

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load reads the HTML file and returns its visible text as one source
func (l *HTMLLoader) Load(ctx context.Context) ([]Source, error) {
	file, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", l.filePath, err)
	}
	defer file.Close()

	text, title, err := l.extract(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html %s: %w", l.filePath, err)
	}

	metadata := make(map[string]any)
	maps.Copy(metadata, l.metadata)
	if title != "" {
		metadata["title"] = title
	}

	return []Source{{
		Name:     l.name,
		Content:  text,
		Metadata: metadata,
	}}, nil
}

func (l *HTMLLoader) extract(r io.Reader) (text, title string, err error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(l.policy.Sanitize(string(raw))))
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	root := doc.Find(l.selector)
	if root.Length() == 0 {
		root = doc.Selection
	}

	var sb strings.Builder
	root.Each(func(_ int, s *goquery.Selection) {
		sb.WriteString(s.Text())
		sb.WriteString("\n")
	})

	return sb.String(), title, nil
}
