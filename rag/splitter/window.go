package splitter

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the window width in bytes
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is how many bytes consecutive windows share
	DefaultChunkOverlap = 200
)

// Span is a slice of the cleaned text together with its byte offsets,
// so Text == cleaned[Start:End] always holds.
type Span struct {
	Text  string
	Start int
	End   int
}

// WindowSplitter cuts text into fixed-size overlapping windows. When a
// window boundary falls inside a word it backs off to the nearest
// whitespace in the second half of the window.
type WindowSplitter struct {
	chunkSize    int
	chunkOverlap int
}

// WindowSplitterOption configures the WindowSplitter
type WindowSplitterOption func(*WindowSplitter)

// WithChunkSize sets the window size in bytes
func WithChunkSize(size int) WindowSplitterOption {
	return func(s *WindowSplitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between consecutive windows
func WithChunkOverlap(overlap int) WindowSplitterOption {
	return func(s *WindowSplitter) {
		if overlap >= 0 {
			s.chunkOverlap = overlap
		}
	}
}

// NewWindowSplitter creates a new WindowSplitter
func NewWindowSplitter(opts ...WindowSplitterOption) *WindowSplitter {
	s := &WindowSplitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunkOverlap >= s.chunkSize {
		s.chunkOverlap = s.chunkSize / 2
	}
	return s
}

// Split cuts the text into spans. The input is expected to be cleaned
// already; empty or whitespace-only input produces no spans.
func (s *WindowSplitter) Split(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []Span{{Text: text, Start: 0, End: len(text)}}
	}

	var spans []Span
	start := 0

	for start < len(text) {
		end := start + s.chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = alignRuneStart(text, end)
			// Prefer ending on whitespace when one falls late in the window.
			if idx := strings.LastIndexAny(text[start:end], " \n"); idx > s.chunkSize/2 {
				end = start + idx + 1
			}
		}

		spans = append(spans, Span{Text: text[start:end], Start: start, End: end})
		if end == len(text) {
			break
		}

		next := alignRuneStart(text, end-s.chunkOverlap)
		if next <= start {
			next = end
		}
		start = next
	}

	return spans
}

// alignRuneStart moves i back to the start of the rune it points into
func alignRuneStart(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
