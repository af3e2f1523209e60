package cmd

import (
	"strings"
	"unicode"
)

// SplitArgs splits a console line into arguments. Double quotes group words
// and are removed; an unterminated quote runs to the end of the line.
func SplitArgs(line string) []string {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	flush := func() {
		if started {
			args = append(args, cur.String())
			cur.Reset()
			started = false
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	flush()
	return args
}
