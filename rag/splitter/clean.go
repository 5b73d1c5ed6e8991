// Package splitter normalizes raw text and cuts it into overlapping
// chunks that carry their offsets into the cleaned text.
package splitter

import (
	"strings"
	"unicode"
)

// Clean normalizes raw text before chunking: control characters are
// dropped, runs of spaces and tabs collapse to one space, and runs of
// three or more newlines collapse to a paragraph break. Offsets stored
// on chunks refer to the cleaned text, so cleaning must happen exactly
// once, before splitting.
func Clean(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	var spacePending, newlines int
	flush := func() {
		if newlines > 0 {
			if newlines > 2 {
				newlines = 2
			}
			for range newlines {
				sb.WriteByte('\n')
			}
			newlines = 0
			spacePending = 0
			return
		}
		if spacePending > 0 && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		spacePending = 0
	}

	for _, r := range text {
		switch {
		case r == '\n':
			newlines++
		case r == ' ', r == '\t', r == '\r':
			spacePending++
		case unicode.IsControl(r) || !unicode.IsPrint(r):
			// drop
		default:
			flush()
			sb.WriteRune(r)
		}
	}

	return strings.TrimSpace(sb.String())
}
