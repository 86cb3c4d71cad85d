// Package pager bounds unbounded scans into one result page plus an exact
// total-match count. The store has no LIMIT/OFFSET primitive, so every list
// operation scans its full range and feeds matches through a Pager; the
// total therefore reflects all matches, not just the retained page. That
// full scan per page request is an inherited cost of the storage model, not
// an accident.
package pager

// Criteria selects one page of results. Page numbers are 1-based; a zero or
// negative PageSize disables windowing and retains every match.
type Criteria struct {
	PageNumber int
	PageSize   int
}

// All returns criteria retaining every match.
func All() Criteria {
	return Criteria{}
}

// Page returns criteria for the given 1-based page.
func Page(number, size int) Criteria {
	return Criteria{PageNumber: number, PageSize: size}
}

// Pager accumulates scan matches in scan order, retaining only those inside
// the requested window while counting all of them.
type Pager[T any] struct {
	criteria Criteria
	skip     int
	seen     int
	results  []T
}

// New creates a Pager for the given criteria.
func New[T any](criteria Criteria) *Pager[T] {
	skip := 0
	if criteria.PageSize > 0 && criteria.PageNumber > 1 {
		skip = (criteria.PageNumber - 1) * criteria.PageSize
	}
	return &Pager[T]{criteria: criteria, skip: skip}
}

// Process records one match. Call once per matching result, in scan order.
func (p *Pager[T]) Process(match T) {
	idx := p.seen
	p.seen++
	if p.criteria.PageSize <= 0 {
		p.results = append(p.results, match)
		return
	}
	if idx < p.skip || idx >= p.skip+p.criteria.PageSize {
		return
	}
	p.results = append(p.results, match)
}

// Results returns the retained page in scan order.
func (p *Pager[T]) Results() []T {
	return p.results
}

// Total returns the number of matches processed, including those outside
// the retained page.
func (p *Pager[T]) Total() int {
	return p.seen
}
