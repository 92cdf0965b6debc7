package pipeline

import (
	"encoding/json"
	"sort"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/labels"
)

// Record is the merged result for one figure on one page. Fields are
// declared in serialization order.
type Record struct {
	Components   []string          `json:"components"`
	Hierarchy    []json.RawMessage `json:"hierarchy"`
	Figure       string            `json:"figure"`
	Page         int               `json:"page"`
	PageRotation *int              `json:"page_rotation,omitempty"`
}

type recordKey struct {
	page   int
	figure string
}

// Merger accumulates parsed entries into one record per (page, figure).
type Merger struct {
	records map[recordKey]*Record
}

func NewMerger() *Merger {
	return &Merger{records: make(map[recordKey]*Record)}
}

// Add folds the entries of one page into the accumulated records and
// returns how many were kept. Entries without a usable figure id are
// dropped.
func (m *Merger) Add(page int, entries []Entry) int {
	kept := 0

	for _, e := range entries {
		figure := labels.NormalizeFigure(e.Figure)
		if figure == "" {
			continue
		}

		key := recordKey{page: page, figure: figure}

		rec, ok := m.records[key]
		if !ok {
			rec = &Record{
				Components: []string{},
				Hierarchy:  []json.RawMessage{},
				Figure:     figure,
				Page:       page,
			}
			m.records[key] = rec
		}

		rec.Components = labels.Union(rec.Components, labels.CleanComponents(e.Components))

		if e.HasHierarchy {
			rec.Hierarchy = append(rec.Hierarchy, e.Hierarchy...)
		}

		kept++
	}

	return kept
}

func (m *Merger) Len() int {
	return len(m.records)
}

// Results returns copies of all records ordered by page, then figure.
func (m *Merger) Results() []Record {
	out := make([]Record, 0, len(m.records))

	for _, rec := range m.records {
		r := *rec
		r.Components = append([]string{}, rec.Components...)
		r.Hierarchy = append([]json.RawMessage{}, rec.Hierarchy...)
		labels.SortComponents(r.Components)
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return labels.FigureLess(out[i].Figure, out[j].Figure)
	})

	return out
}
