package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	t.Run("collapses spaces and tabs", func(t *testing.T) {
		assert.Equal(t, "one two three", Clean("one  \t two   three"))
	})

	t.Run("collapses blank lines", func(t *testing.T) {
		assert.Equal(t, "a\n\nb", Clean("a\n\n\n\n\nb"))
	})

	t.Run("drops control characters", func(t *testing.T) {
		assert.Equal(t, "ab", Clean("a\x00\x07b"))
	})

	t.Run("trims edges", func(t *testing.T) {
		assert.Equal(t, "text", Clean("  \n text \n\n "))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", Clean("   \n\t  "))
	})
}

func TestWindowSplitter(t *testing.T) {
	t.Run("short text is a single span", func(t *testing.T) {
		s := NewWindowSplitter()
		spans := s.Split("short text")
		require.Len(t, spans, 1)
		assert.Equal(t, "short text", spans[0].Text)
		assert.Equal(t, 0, spans[0].Start)
		assert.Equal(t, len("short text"), spans[0].End)
	})

	t.Run("empty input yields no spans", func(t *testing.T) {
		s := NewWindowSplitter()
		assert.Empty(t, s.Split(""))
		assert.Empty(t, s.Split("   \n  "))
	})

	t.Run("offsets index into the original text", func(t *testing.T) {
		text := strings.Repeat("alpha beta gamma delta ", 120)
		s := NewWindowSplitter(WithChunkSize(200), WithChunkOverlap(40))
		spans := s.Split(text)
		require.Greater(t, len(spans), 1)
		for _, sp := range spans {
			assert.Equal(t, text[sp.Start:sp.End], sp.Text)
		}
		assert.Equal(t, 0, spans[0].Start)
		assert.Equal(t, len(text), spans[len(spans)-1].End)
	})

	t.Run("consecutive spans overlap", func(t *testing.T) {
		text := strings.Repeat("word ", 200)
		s := NewWindowSplitter(WithChunkSize(100), WithChunkOverlap(30))
		spans := s.Split(text)
		require.Greater(t, len(spans), 1)
		for i := 1; i < len(spans); i++ {
			assert.Less(t, spans[i].Start, spans[i-1].End, "span %d should overlap its predecessor", i)
		}
	})

	t.Run("full coverage without gaps", func(t *testing.T) {
		text := strings.Repeat("lorem ipsum dolor sit amet ", 100)
		s := NewWindowSplitter(WithChunkSize(250), WithChunkOverlap(50))
		spans := s.Split(text)
		covered := spans[0].End
		for _, sp := range spans[1:] {
			assert.LessOrEqual(t, sp.Start, covered)
			if sp.End > covered {
				covered = sp.End
			}
		}
		assert.Equal(t, len(text), covered)
	})

	t.Run("does not split runes", func(t *testing.T) {
		text := strings.Repeat("héllo wörld ", 100)
		s := NewWindowSplitter(WithChunkSize(97), WithChunkOverlap(13))
		for _, sp := range s.Split(text) {
			assert.True(t, strings.HasPrefix(text[sp.Start:], sp.Text))
			assert.Equal(t, sp.Text, strings.ToValidUTF8(sp.Text, ""))
		}
	})

	t.Run("overlap clamped below chunk size", func(t *testing.T) {
		s := NewWindowSplitter(WithChunkSize(50), WithChunkOverlap(80))
		text := strings.Repeat("x y z ", 60)
		spans := s.Split(text)
		assert.Greater(t, len(spans), 1)
	})
}
