package bot

import (
	"strings"
	"unicode"
)

// SplitMessage cuts text into chunks of at most limit characters, preferring
// to break at the last newline inside the window. Leading whitespace of each
// following chunk is dropped.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}

	var chunks []string
	rest := text
	for runeOffset(rest, limit) < len(rest) {
		cut := strings.LastIndex(rest[:runeOffset(rest, limit+1)], "\n")
		if cut <= 0 {
			cut = runeOffset(rest, limit)
		}
		chunks = append(chunks, rest[:cut])
		rest = strings.TrimLeftFunc(rest[cut:], unicode.IsSpace)
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// runeOffset returns the byte offset just past the first n runes of s.
func runeOffset(s string, n int) int {
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}
