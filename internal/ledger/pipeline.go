package ledger

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// PageSize is the number of rows per page in listings.
const PageSize = 10

// Classified pairs a line-item with its status at evaluation time.
type Classified struct {
	Item   core.LineItem
	Status core.Status
}

// Filter classifies every item at now and keeps the ones matching c, in input order.
func Filter(items []core.LineItem, kind core.Kind, c Criteria, now time.Time) ([]Classified, error) {
	out := make([]Classified, 0, len(items))
	for _, item := range items {
		status, err := Classify(item, kind, now)
		if err != nil {
			return nil, fmt.Errorf("classify line-item %d: %w", item.ID, err)
		}
		if Matches(item, status, c) {
			out = append(out, Classified{Item: item, Status: status})
		}
	}
	return out, nil
}

// ClassifyAll classifies items that were already filtered elsewhere. Nothing is dropped.
func ClassifyAll(items []core.LineItem, kind core.Kind, now time.Time) ([]Classified, error) {
	out := make([]Classified, 0, len(items))
	for _, item := range items {
		status, err := Classify(item, kind, now)
		if err != nil {
			return nil, fmt.Errorf("classify line-item %d: %w", item.ID, err)
		}
		out = append(out, Classified{Item: item, Status: status})
	}
	return out, nil
}

// Summarize aggregates classified items of one kind per status.
func Summarize(kind core.Kind, items []Classified) core.Summary {
	s := core.Summary{Kind: kind, ByStatus: make(map[core.Status]core.StatusTotals)}
	for _, c := range items {
		s.Add(c.Item.Value, c.Status)
	}
	return s
}

// Paginate returns the 1-based page of items and the number of pages.
// Pages past the end are empty.
func Paginate[T any](items []T, page, perPage int) ([]T, int) {
	if perPage <= 0 {
		perPage = PageSize
	}
	pages := (len(items) + perPage - 1) / perPage
	if page < 1 {
		page = 1
	}
	if page > pages {
		return nil, pages
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(items))
	return items[start:end], pages
}
