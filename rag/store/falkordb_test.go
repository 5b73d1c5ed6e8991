package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFalkorDBURL(t *testing.T) {
	t.Run("full url", func(t *testing.T) {
		addr, graph, err := parseFalkorDBURL("falkordb://localhost:6379/knowledge")
		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", addr)
		assert.Equal(t, "knowledge", graph)
	})

	t.Run("default graph name", func(t *testing.T) {
		addr, graph, err := parseFalkorDBURL("falkordb://db.internal:6379")
		require.NoError(t, err)
		assert.Equal(t, "db.internal:6379", addr)
		assert.Equal(t, "knowledge", graph)
	})

	t.Run("missing host", func(t *testing.T) {
		_, _, err := parseFalkorDBURL("falkordb:///graph")
		assert.Error(t, err)
	})
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "ORGANIZATION", sanitizeLabel("ORGANIZATION"))
	assert.Equal(t, "HAS_SECTION", sanitizeLabel("HAS_SECTION"))
	assert.Equal(t, "BAD_LABEL_", sanitizeLabel("BAD LABEL;"))
	assert.Equal(t, "Entity", sanitizeLabel(""))
}

func TestQuoteString(t *testing.T) {
	assert.Equal(t, `'plain'`, quoteString("plain"))
	assert.Equal(t, `'o\'brien'`, quoteString("o'brien"))
	assert.Equal(t, `'a\\b'`, quoteString(`a\b`))
	assert.Equal(t, `['a', 'b']`, quoteStringList([]string{"a", "b"}))
	assert.Equal(t, `[]`, quoteStringList(nil))
}
