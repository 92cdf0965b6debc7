package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/util"
)

// Entry is one figure object reported by the model. HasHierarchy
// distinguishes a missing "hierarchy" key from an empty one.
type Entry struct {
	Figure       string
	Components   []string
	Hierarchy    []json.RawMessage
	HasHierarchy bool
}

type rawEntry struct {
	Figure     any             `json:"figure"`
	Components json.RawMessage `json:"components"`
	Hierarchy  json.RawMessage `json:"hierarchy"`
}

type parseStrategy func(text string) ([]Entry, bool)

// parseChain is tried in order; the first strategy that yields a JSON array
// wins.
var parseChain = []parseStrategy{
	parseWhole,
	parseBracketed,
	parseTruncated,
}

// ParseEntries recovers figure entries from a model reply. It never fails:
// unusable text gives an empty slice.
func ParseEntries(text string) []Entry {
	text = util.StripCodeFences(text)
	if text == "" {
		return []Entry{}
	}

	for _, strategy := range parseChain {
		if entries, ok := strategy(text); ok {
			return entries
		}
	}

	return []Entry{}
}

func parseWhole(text string) ([]Entry, bool) {
	return decodeEntries(text)
}

// parseBracketed takes the span from the first '[' to the last ']'.
func parseBracketed(text string) ([]Entry, bool) {
	i := strings.IndexByte(text, '[')
	j := strings.LastIndexByte(text, ']')

	if i < 0 || j <= i {
		return nil, false
	}

	return decodeEntries(text[i : j+1])
}

// parseTruncated salvages a reply cut off mid-array by keeping every
// complete top-level object and closing the array after the last one.
func parseTruncated(text string) ([]Entry, bool) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return nil, false
	}

	var (
		depth    int
		inString bool
		escaped  bool
		lastEnd  = -1
	)

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if c == '}' && depth == 1 {
				lastEnd = i
			}
		}

		if depth <= 0 {
			break
		}
	}

	if lastEnd < 0 {
		return nil, false
	}

	return decodeEntries(text[start:lastEnd+1] + "]")
}

func decodeEntries(text string) ([]Entry, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, false
	}

	entries := make([]Entry, 0, len(items))

	for _, item := range items {
		if !isObject(item) {
			continue
		}

		var raw rawEntry
		if err := json.Unmarshal(item, &raw); err != nil {
			continue
		}

		entries = append(entries, raw.entry())
	}

	return entries, true
}

func (r rawEntry) entry() Entry {
	var e Entry

	if s, ok := r.Figure.(string); ok {
		e.Figure = s
	}

	var components []any
	_ = json.Unmarshal(r.Components, &components)

	for _, c := range components {
		if s, ok := c.(string); ok {
			e.Components = append(e.Components, s)
		}
	}

	var hierarchy []json.RawMessage
	if len(r.Hierarchy) > 0 && json.Unmarshal(r.Hierarchy, &hierarchy) == nil && hierarchy != nil {
		e.Hierarchy = hierarchy
		e.HasHierarchy = true
	}

	return e
}

func isObject(item json.RawMessage) bool {
	t := strings.TrimSpace(string(item))
	return strings.HasPrefix(t, "{")
}
