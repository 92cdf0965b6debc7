// Package labels canonicalizes patent drawing identifiers: figure tags
// ("FIG. 10B") and component reference labels ("140", "181a", "150'", "G"),
// and defines the total order used when results are emitted.
package labels

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	reFigureTail  = regexp.MustCompile(`(\d+)\s*([A-Za-z])?$`)
	reDigitRun    = regexp.MustCompile(`\d+`)
	reFigureUpper = regexp.MustCompile(`([A-Z])$`)

	// main part may mix letters, digits and hyphens: 140, 1a, W1, e1, 20-2
	reComponent = regexp.MustCompile(`^([a-zA-Z0-9\-]+)(['"]{0,2})$`)
	reLeadDigit = regexp.MustCompile(`^\d+`)
)

var primeRanks = map[string]int{
	"":   0,
	"'":  1,
	`"`:  2,
	"''": 3,
	`""`: 4,
}

const unknownPrimeRank = 9

// NormalizeFigure maps a free-form figure reference to "FIG. <n><L>".
// It returns "" when the input carries no digits at all.
func NormalizeFigure(s string) string {
	s = strings.TrimSpace(s)

	if m := reFigureTail.FindStringSubmatch(s); m != nil {
		return "FIG. " + m[1] + strings.ToUpper(m[2])
	}

	if n := reDigitRun.FindString(s); n != "" {
		return "FIG. " + n
	}

	return ""
}

// FigureKey is the sort key of a normalized figure id.
type FigureKey struct {
	Number string
	Suffix string
}

// FigureSortKey splits "FIG. 10B" into (10, "B"). Figures without digits get
// number 0.
func FigureSortKey(fig string) FigureKey {
	return FigureKey{
		Number: trimZeros(reDigitRun.FindString(fig)),
		Suffix: lastMatch(reFigureUpper, fig),
	}
}

// Less orders figure keys numerically, then by suffix.
func (k FigureKey) Less(o FigureKey) bool {
	if c := compareNumeric(k.Number, o.Number); c != 0 {
		return c < 0
	}
	return k.Suffix < o.Suffix
}

// FigureLess reports whether figure a sorts before figure b. Figures with
// equal keys fall back to their text so the order never depends on input
// order.
func FigureLess(a, b string) bool {
	ka, kb := FigureSortKey(a), FigureSortKey(b)
	if ka != kb {
		return ka.Less(kb)
	}
	return a < b
}

// ComponentKey is the sort key of a component label.
type ComponentKey struct {
	Matched bool
	Number  string // leading digit run of the main part, without leading zeros
	Main    string // lowercased main part
	Prime   int
	Raw     string
}

// ComponentSortKey parses "<main><primes>" into its sort key.
func ComponentSortKey(s string) ComponentKey {
	s = strings.TrimSpace(s)

	m := reComponent.FindStringSubmatch(s)
	if m == nil {
		return ComponentKey{Raw: s}
	}

	rank, ok := primeRanks[m[2]]
	if !ok {
		rank = unknownPrimeRank
	}

	return ComponentKey{
		Matched: true,
		Number:  trimZeros(reLeadDigit.FindString(m[1])),
		Main:    strings.ToLower(m[1]),
		Prime:   rank,
		Raw:     s,
	}
}

// Less orders matching labels by (number, main, prime rank); labels that do
// not match the component shape sort after all matching ones, lexically.
func (k ComponentKey) Less(o ComponentKey) bool {
	if k.Matched != o.Matched {
		return k.Matched
	}

	if !k.Matched {
		return k.Raw < o.Raw
	}

	if c := compareNumeric(k.Number, o.Number); c != 0 {
		return c < 0
	}

	if k.Main != o.Main {
		return k.Main < o.Main
	}

	if k.Prime != o.Prime {
		return k.Prime < o.Prime
	}

	return k.Raw < o.Raw
}

// ComponentLess reports whether label a sorts before label b.
func ComponentLess(a, b string) bool {
	return ComponentSortKey(a).Less(ComponentSortKey(b))
}

// SortComponents sorts labels in place by the canonical component order.
func SortComponents(comps []string) {
	sort.SliceStable(comps, func(i, j int) bool {
		return ComponentLess(comps[i], comps[j])
	})
}

// CleanComponents keeps well-formed labels, drops single-digit numerals once
// a multi-digit numeral is present, then dedupes and sorts.
func CleanComponents(raw []string) []string {
	comps := make([]string, 0, len(raw))

	for _, c := range raw {
		c = strings.TrimSpace(c)

		if reComponent.MatchString(c) {
			comps = append(comps, c)
		}
	}

	if len(comps) == 0 {
		return []string{}
	}

	multiDigit := false

	for _, c := range comps {
		if isDigits(c) && len(c) >= 2 {
			multiDigit = true
			break
		}
	}

	seen := make(map[string]struct{}, len(comps))
	result := make([]string, 0, len(comps))

	for _, c := range comps {
		if multiDigit && isDigits(c) && len(c) < 2 {
			continue
		}

		if _, ok := seen[c]; ok {
			continue
		}

		seen[c] = struct{}{}
		result = append(result, c)
	}

	SortComponents(result)
	return result
}

// Union merges b into a, dedupes and returns the canonically sorted set.
func Union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, c := range list {
			if _, ok := seen[c]; ok {
				continue
			}

			seen[c] = struct{}{}
			result = append(result, c)
		}
	}

	SortComponents(result)
	return result
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}

	return true
}

// compareNumeric compares two non-negative decimal strings without leading
// zeros, so arbitrarily long runs never overflow.
func compareNumeric(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func trimZeros(s string) string {
	return strings.TrimLeft(s, "0")
}

func lastMatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}
