package collection

import (
	"context"
	"errors"
	"sync"

	"github.com/Veraticus/schoolctl/internal/common"
)

// ErrSuperseded is returned for a response that arrived after a newer
// request was issued. Its result is discarded.
var ErrSuperseded = errors.New("response superseded by a newer request")

// Source loads one page of a remote collection.
type Source[T any] interface {
	List(ctx context.Context, q Query) (Page[T], error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context, q Query) (Page[T], error)

// List calls f.
func (f SourceFunc[T]) List(ctx context.Context, q Query) (Page[T], error) {
	return f(ctx, q)
}

// FetchState is what the fetcher last applied.
type FetchState[T any] struct {
	Err        error
	Query      Query
	Items      []T
	Total      int
	TotalPages int
	Loading    bool
	Loaded     bool
}

// Fetcher issues page requests and applies only the response to the most
// recent one. A failed request leaves the previous items in place.
type Fetcher[T any] struct {
	source   Source[T]
	onChange func()
	state    FetchState[T]
	latest   uint64
	mu       sync.Mutex
}

// NewFetcher creates a fetcher over source. onChange may be nil.
func NewFetcher[T any](source Source[T], onChange func()) *Fetcher[T] {
	return &Fetcher[T]{source: source, onChange: onChange}
}

// Fetch requests q and applies the result if no newer request has been
// issued in the meantime.
func (f *Fetcher[T]) Fetch(ctx context.Context, q Query) error {
	return f.run(ctx, q, func(ctx context.Context, q Query, _ uint64) (Page[T], error) {
		page, err := f.source.List(ctx, q)
		if err != nil {
			return page, err
		}
		page, truncated := page.normalize(q.Page.Size)
		if truncated {
			common.LogWarn("source returned more items than requested", common.Fields{"page_size": q.Page.Size})
		}
		return page, nil
	})
}

// FetchAll walks every page of q, starting from the first, and applies the
// whole collection as a single page. Walking stops early once a newer
// request has been issued.
func (f *Fetcher[T]) FetchAll(ctx context.Context, q Query) error {
	return f.run(ctx, q, func(ctx context.Context, q Query, token uint64) (Page[T], error) {
		var all Page[T]
		q.Page.Index = 0
		for {
			page, err := f.source.List(ctx, q)
			if err != nil {
				return all, err
			}
			page, _ = page.normalize(q.Page.Size)
			all.Items = append(all.Items, page.Items...)
			all.Total = max(all.Total, page.Total)

			if len(page.Items) == 0 || q.Page.Index+1 >= page.TotalPages {
				break
			}
			if f.Latest() != token {
				return all, ErrSuperseded
			}
			q.Page.Index++
		}
		if all.Total > len(all.Items) {
			common.LogWarn("collection changed while loading", common.Fields{"total": all.Total, "loaded": len(all.Items)})
		}
		all.Total = len(all.Items)
		all.TotalPages = 1
		return all, nil
	})
}

func (f *Fetcher[T]) run(ctx context.Context, q Query, load func(context.Context, Query, uint64) (Page[T], error)) error {
	q = q.clone()

	f.mu.Lock()
	f.latest++
	token := f.latest
	f.state.Loading = true
	f.mu.Unlock()
	f.changed()

	page, err := load(ctx, q, token)

	f.mu.Lock()
	if token != f.latest {
		f.mu.Unlock()
		common.LogDebug("discarding superseded response", common.Fields{"token": token})
		return ErrSuperseded
	}

	f.state.Loading = false
	f.state.Query = q
	if err != nil {
		f.state.Err = err
		f.mu.Unlock()
		f.changed()
		return err
	}

	f.state.Items = page.Items
	f.state.Total = page.Total
	f.state.TotalPages = page.TotalPages
	f.state.Err = nil
	f.state.Loaded = true
	f.mu.Unlock()
	f.changed()
	return nil
}

// State returns a copy of the applied state.
func (f *Fetcher[T]) State() FetchState[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	s.Items = append([]T(nil), f.state.Items...)
	s.Query = f.state.Query.clone()
	return s
}

// Latest returns the token of the most recently issued request.
func (f *Fetcher[T]) Latest() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func (f *Fetcher[T]) changed() {
	if f.onChange != nil {
		f.onChange()
	}
}
