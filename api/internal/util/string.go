package util

import (
	"regexp"
	"strings"
)

var reCodeFence = regexp.MustCompile("```(?:json)?\\n?|\\n?```")

// StripCodeFences removes markdown fences when s starts with one, so that
// "```json\n[...]\n```" becomes "[...]". Other text is only trimmed.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	return strings.TrimSpace(reCodeFence.ReplaceAllString(s, ""))
}
