package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntries(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		figures []string
	}{
		{name: "plain", in: `[{"figure":"FIG. 1","components":["10"]}]`, figures: []string{"FIG. 1"}},
		{name: "fenced", in: "```json\n[{\"figure\":\"FIG. 2\"}]\n```", figures: []string{"FIG. 2"}},
		{name: "prose", in: "Here you go:\n[{\"figure\":\"FIG. 3\"}]\nDone.", figures: []string{"FIG. 3"}},
		{
			name:    "truncated",
			in:      `[{"figure":"FIG. 1","components":["}"]},{"figure":"FIG. 2","components":["1`,
			figures: []string{"FIG. 1"},
		},
		{name: "non-object items", in: `[1, "x", null, {"figure":"FIG. 5"}]`, figures: []string{"FIG. 5"}},
		{name: "not json", in: "sorry, I cannot help", figures: nil},
		{name: "empty", in: "   ", figures: nil},
		{name: "null", in: "null", figures: nil},
		{name: "cut before any object", in: `[{"figure":"FIG`, figures: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := ParseEntries(tt.in)
			require.NotNil(t, entries)

			var figures []string
			for _, e := range entries {
				figures = append(figures, e.Figure)
			}
			assert.Equal(t, tt.figures, figures)
		})
	}
}

func TestParseEntryFields(t *testing.T) {
	entries := ParseEntries(`[
		{"figure": 3, "components": ["10", 20, null, "G"]},
		{"figure": "FIG. 4", "components": "10", "hierarchy": [{"parent":"1"}, "odd"]},
		{"figure": "FIG. 5", "hierarchy": {"parent":"1"}}
	]`)
	require.Len(t, entries, 3)

	assert.Equal(t, "", entries[0].Figure)
	assert.Equal(t, []string{"10", "G"}, entries[0].Components)
	assert.False(t, entries[0].HasHierarchy)

	assert.Empty(t, entries[1].Components)
	assert.True(t, entries[1].HasHierarchy)
	assert.Equal(t, []json.RawMessage{json.RawMessage(`{"parent":"1"}`), json.RawMessage(`"odd"`)}, entries[1].Hierarchy)

	assert.False(t, entries[2].HasHierarchy)
}

func TestParseTruncatedIgnoresNestedObjects(t *testing.T) {
	entries := ParseEntries(`[{"figure":"FIG. 1","hierarchy":[{"parent":"2","children":["3"]}]},{"figure":"FIG. 2","hierarchy":[{"parent":"4"}`)
	require.Len(t, entries, 1)
	assert.Equal(t, "FIG. 1", entries[0].Figure)
	assert.Len(t, entries[0].Hierarchy, 1)
}
