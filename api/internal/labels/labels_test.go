package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFigure(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Fig 10b", "FIG. 10B"},
		{"FIG. 3", "FIG. 3"},
		{"  fig.12A  ", "FIG. 12A"},
		{"Figure 7 a", "FIG. 7A"},
		{"FIG. 3A (cont.)", "FIG. 3"},
		{"figure", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFigure(tt.in))
		})
	}
}

func TestCleanComponentsDropsSingleDigits(t *testing.T) {
	got := CleanComponents([]string{"1", "2", "140", "abc!!", "G"})
	assert.Equal(t, []string{"G", "140"}, got)
}

func TestCleanComponentsKeepsSingleDigitsWithoutNumerals(t *testing.T) {
	got := CleanComponents([]string{"3", "1", "G", "1a", "3"})
	assert.Equal(t, []string{"G", "1", "1a", "3"}, got)
}

func TestCleanComponentsKeepsLettered(t *testing.T) {
	got := CleanComponents([]string{" 10 ", "1a", "W1", "e1", "2", "150\"", "140'"})
	assert.Equal(t, []string{"e1", "W1", "1a", "10", "140'", "150\""}, got)
}

func TestCleanComponentsEmpty(t *testing.T) {
	got := CleanComponents([]string{"!!", "", "a b"})
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestComponentOrder(t *testing.T) {
	comps := []string{"1501", "150\"", "10p", "140'", "10", "140", "140''", "140\"\"", "140\""}
	SortComponents(comps)

	assert.Equal(t, []string{"10", "10p", "140", "140'", "140\"", "140''", "140\"\"", "150\"", "1501"}, comps)
}

func TestComponentOrderUnmatchedLast(t *testing.T) {
	comps := []string{"a b", "99999", "G", "!x"}
	SortComponents(comps)

	assert.Equal(t, []string{"G", "99999", "!x", "a b"}, comps)
}

func TestComponentOrderLongNumbers(t *testing.T) {
	assert.True(t, ComponentLess("99999999999999999999", "100000000000000000000"))
	assert.False(t, ComponentLess("100000000000000000000", "99999999999999999999"))
}

func TestFigureOrder(t *testing.T) {
	assert.True(t, FigureLess("FIG. 2", "FIG. 10"))
	assert.True(t, FigureLess("FIG. 10", "FIG. 10A"))
	assert.True(t, FigureLess("FIG. 10A", "FIG. 10B"))
	assert.False(t, FigureLess("FIG. 10B", "FIG. 10B"))

	assert.Equal(t, FigureKey{Number: "10", Suffix: "B"}, FigureSortKey("FIG. 10B"))
	assert.Equal(t, FigureKey{Number: "3", Suffix: ""}, FigureSortKey("FIG. 3"))
}

func TestUnion(t *testing.T) {
	got := Union([]string{"10", "20"}, []string{"20", "30"})
	assert.Equal(t, []string{"10", "20", "30"}, got)
}
