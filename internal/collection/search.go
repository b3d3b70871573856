package collection

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/JaimeStill/specimen/pkg/pagination"
)

// Filters narrows a search. Zero values match everything.
type Filters struct {
	Category      string  `json:"category,omitempty"`
	MinConfidence float64 `json:"minConfidence,omitempty"`
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

var sorters = map[string]func(a, b Record) int{
	"timestamp": func(a, b Record) int { return cmp.Compare(a.Timestamp, b.Timestamp) },
	"name": func(a, b Record) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	},
	"category":   func(a, b Record) int { return cmp.Compare(a.Category, b.Category) },
	"confidence": func(a, b Record) int { return cmp.Compare(a.Confidence, b.Confidence) },
}

func (s *store) Search(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Record], error) {
	page.Normalize(s.pagination)

	compare, err := comparator(page.Sort)
	if err != nil {
		return nil, err
	}

	records, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	var term string
	if page.Search != nil {
		term = strings.ToLower(strings.TrimSpace(*page.Search))
	}

	matched := slices.DeleteFunc(records, func(r Record) bool {
		return !r.matches(term, filters)
	})
	if compare != nil {
		slices.SortStableFunc(matched, compare)
	}

	result := pagination.Slice(matched, page)
	return &result, nil
}

func (r Record) matches(term string, f Filters) bool {
	if f.Category != "" && !strings.EqualFold(string(r.Category), f.Category) {
		return false
	}
	if r.Confidence < f.MinConfidence {
		return false
	}
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Name), term) ||
		strings.Contains(strings.ToLower(r.Description), term)
}

// comparator chains the requested sort keys. No keys keeps the stored
// newest-first order.
func comparator(fields []pagination.SortField) (func(a, b Record) int, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	chain := make([]func(a, b Record) int, 0, len(fields))
	for _, f := range fields {
		fn, ok := sorters[f.Field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown sort field %q", ErrInvalidQuery, f.Field)
		}
		if f.Descending {
			asc := fn
			fn = func(a, b Record) int { return asc(b, a) }
		}
		chain = append(chain, fn)
	}

	return func(a, b Record) int {
		for _, fn := range chain {
			if c := fn(a, b); c != 0 {
				return c
			}
		}
		return 0
	}, nil
}
