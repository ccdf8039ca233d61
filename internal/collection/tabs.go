package collection

import (
	"errors"
	"fmt"
	"maps"
	"sync"
)

// ErrMixedTabs is returned when one partition mixes server and client tabs.
var ErrMixedTabs = errors.New("a tab partition must be entirely server-side or entirely client-side")

// TabKind says where a tab's subset is computed.
type TabKind int

// Tab kinds.
const (
	ServerQuery TabKind = iota
	ClientPredicate
)

// Tab is one named partition of a collection.
type Tab[T any] struct {
	Params    map[string]string
	Predicate func(T) bool
	Name      string
	Kind      TabKind
}

// ServerTab is a tab whose subset is selected by extra query parameters.
func ServerTab[T any](name string, params map[string]string) Tab[T] {
	return Tab[T]{Name: name, Kind: ServerQuery, Params: params}
}

// ClientTab is a tab whose subset is selected by a predicate over the
// fetched items. A nil predicate matches everything.
func ClientTab[T any](name string, pred func(T) bool) Tab[T] {
	return Tab[T]{Name: name, Kind: ClientPredicate, Predicate: pred}
}

// Partition is the set of tabs of one view and the active one.
type Partition[T any] struct {
	tabs   []Tab[T]
	active int
	mu     sync.RWMutex
}

// NewPartition validates and builds a partition. An empty tab list yields
// a single server-side "All" tab.
func NewPartition[T any](tabs ...Tab[T]) (*Partition[T], error) {
	if len(tabs) == 0 {
		tabs = []Tab[T]{ServerTab[T]("All", nil)}
	}
	kind := tabs[0].Kind
	for _, t := range tabs[1:] {
		if t.Kind != kind {
			return nil, ErrMixedTabs
		}
	}
	return &Partition[T]{tabs: tabs}, nil
}

// ClientSide reports whether subsets are computed locally.
func (p *Partition[T]) ClientSide() bool {
	return p.tabs[0].Kind == ClientPredicate
}

// Names returns the tab names in order.
func (p *Partition[T]) Names() []string {
	names := make([]string, len(p.tabs))
	for i, t := range p.tabs {
		names[i] = t.Name
	}
	return names
}

// Active returns the index of the active tab.
func (p *Partition[T]) Active() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Select activates tab i and reports whether it changed.
func (p *Partition[T]) Select(i int) (bool, error) {
	if i < 0 || i >= len(p.tabs) {
		return false, fmt.Errorf("tab index %d out of range [0,%d)", i, len(p.tabs))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	changed := p.active != i
	p.active = i
	return changed, nil
}

// Params returns the server parameters of the active tab.
func (p *Partition[T]) Params() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.tabs[p.active].Params)
}

// Apply derives the active tab's subset from fetched items.
func (p *Partition[T]) Apply(items []T) []T {
	p.mu.RLock()
	tab := p.tabs[p.active]
	p.mu.RUnlock()

	if tab.Kind != ClientPredicate || tab.Predicate == nil {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if tab.Predicate(it) {
			out = append(out, it)
		}
	}
	return out
}
