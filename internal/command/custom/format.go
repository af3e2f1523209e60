package custom

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	maxTriggerLength  = 50
	maxResponseLength = 2000
)

// shorten flattens s to one line of at most n characters.
func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// timestamp renders a Unix millisecond time as a Discord timestamp tag.
func timestamp(ms int64, style string) string {
	return fmt.Sprintf("<t:%d:%s>", ms/1000, style)
}

// validateTrigger returns an error message for unusable triggers.
func validateTrigger(trigger string) string {
	switch {
	case trigger == "":
		return "❌ The trigger must not be empty."
	case strings.ContainsFunc(trigger, unicode.IsSpace):
		return "❌ The trigger must be a single word without spaces."
	case len([]rune(trigger)) > maxTriggerLength:
		return fmt.Sprintf("❌ The trigger must be at most %d characters.", maxTriggerLength)
	}
	return ""
}

func validateResponse(response string) string {
	switch {
	case strings.TrimSpace(response) == "":
		return "❌ The response must not be empty."
	case len([]rune(response)) > maxResponseLength:
		return fmt.Sprintf("❌ The response must be at most %d characters.", maxResponseLength)
	}
	return ""
}
