package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// Selection is a requested page set. The zero value selects every page.
type Selection struct {
	page     int
	from, to int
	hasFrom  bool
	hasTo    bool
	single   bool
}

// ParseSelection reads the page, from and to query values. A page value
// takes precedence over a range.
func ParseSelection(page, from, to string) (Selection, error) {
	page, from, to = strings.TrimSpace(page), strings.TrimSpace(from), strings.TrimSpace(to)

	if page != "" {
		p, err := strconv.Atoi(page)
		if err != nil {
			return Selection{}, invalid("page must be int")
		}
		return Selection{page: p, single: true}, nil
	}

	var s Selection

	if from != "" {
		n, err := strconv.Atoi(from)
		if err != nil {
			return Selection{}, invalid("from/to must be int")
		}
		s.from, s.hasFrom = n, true
	}

	if to != "" {
		n, err := strconv.Atoi(to)
		if err != nil {
			return Selection{}, invalid("from/to must be int")
		}
		s.to, s.hasTo = n, true
	}

	return s, nil
}

func SinglePage(n int) Selection {
	return Selection{page: n, single: true}
}

func PageRange(from, to int) Selection {
	return Selection{from: from, to: to, hasFrom: true, hasTo: true}
}

// All reports whether no page or range was requested.
func (s Selection) All() bool {
	return !s.single && !s.hasFrom && !s.hasTo
}

// Resolve returns the inclusive 1-based page range for a document with
// total pages.
func (s Selection) Resolve(total int) (first, last int, err error) {
	if s.single {
		if s.page < 1 || s.page > total {
			return 0, 0, invalid(fmt.Sprintf("page out of range (1..%d)", total))
		}
		return s.page, s.page, nil
	}

	first, last = 1, total
	if s.hasFrom {
		first = s.from
	}
	if s.hasTo {
		last = s.to
	}

	if first < 1 || last < 1 || first > last || last > total {
		return 0, 0, invalid(fmt.Sprintf("invalid range. valid: 1..%d", total))
	}

	return first, last, nil
}

// String is the cache key form: "all", "3" or "2-5" (open ends kept open).
func (s Selection) String() string {
	switch {
	case s.single:
		return strconv.Itoa(s.page)
	case s.All():
		return "all"
	}

	from, to := "", ""
	if s.hasFrom {
		from = strconv.Itoa(s.from)
	}
	if s.hasTo {
		to = strconv.Itoa(s.to)
	}
	return from + "-" + to
}
