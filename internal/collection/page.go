package collection

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
)

// DefaultPageSize is used when a view is created without one.
const DefaultPageSize = 25

// ClientFetchLimit is the page size of each request a view makes while
// loading its whole collection for a client-side partition.
const ClientFetchLimit = 500

// PageSizeOptions are the page sizes a user may pick.
var PageSizeOptions = []int{10, 25, 50, 100}

// ValidPageSize reports whether n is one of PageSizeOptions.
func ValidPageSize(n int) bool {
	return slices.Contains(PageSizeOptions, n)
}

// PageRequest addresses one page. Index is always 0-based; the wire base
// is applied only by WirePage.
type PageRequest struct {
	Index int
	Size  int
}

// WirePage converts a 0-based page index to the server's convention.
func WirePage(index, base int) int {
	return index + base
}

// Page is one page of results as returned by a Source.
type Page[T any] struct {
	Items      []T
	Total      int
	TotalPages int
}

// normalize enforces the page invariants: at most size items, a total no
// smaller than the item count, and a page count consistent with the total.
func (p Page[T]) normalize(size int) (Page[T], bool) {
	truncated := false
	if size > 0 && len(p.Items) > size {
		p.Items = p.Items[:size]
		truncated = true
	}
	if p.Total < len(p.Items) {
		p.Total = len(p.Items)
	}
	if p.Total < 0 {
		p.Total = 0
	}
	if size > 0 && (p.TotalPages <= 0 || p.TotalPages*size < p.Total) && p.Total > 0 {
		p.TotalPages = (p.Total + size - 1) / size
	}
	if p.TotalPages < 0 {
		p.TotalPages = 0
	}
	return p, truncated
}

// Query is everything a Source needs to produce one page.
type Query struct {
	Filters map[string]string
	Params  map[string]string
	Page    PageRequest
}

// Values renders filters and tab parameters as URL query values, leaving
// paging to the caller. Tab parameters win over filters of the same name.
func (q Query) Values() url.Values {
	v := url.Values{}
	for k, val := range q.Filters {
		if val != AllValue {
			v.Set(k, val)
		}
	}
	for k, val := range q.Params {
		if val != AllValue {
			v.Set(k, val)
		}
	}
	return v
}

// WireValues renders the full request including paging in wire form.
func (q Query) WireValues(base int) url.Values {
	v := q.Values()
	v.Set("page", strconv.Itoa(WirePage(q.Page.Index, base)))
	v.Set("per_page", strconv.Itoa(q.Page.Size))
	return v
}

// Equal compares two queries.
func (q Query) Equal(o Query) bool {
	return q.Page == o.Page && maps.Equal(q.Filters, o.Filters) && maps.Equal(q.Params, o.Params)
}

func (q Query) clone() Query {
	return Query{Filters: maps.Clone(q.Filters), Params: maps.Clone(q.Params), Page: q.Page}
}
