package strings

import (
	"strings"
)

// DefaultCellMaxLen is the default maximum length of a value rendered in a
// diff table cell.
const DefaultCellMaxLen = 60

// MinTruncateLen leaves room for one character plus "...".
const MinTruncateLen = 4

// CollapseWhitespace trims s and folds every run of whitespace (newlines,
// tabs, repeated spaces) into a single space. The ALPACA Operator UI stores
// system descriptions with arbitrary line breaks, so descriptions are
// compared in this form.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to maxLen runes on a single line, ending in "..." when
// it had to cut. maxLen below MinTruncateLen is clamped.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = CollapseWhitespace(s)

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
