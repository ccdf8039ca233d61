package collection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
)

// Guard gates fetching on authentication and handles rejected credentials.
type Guard interface {
	IsAuthenticated() bool
	// HandleUnauthorized reports whether err was an authentication failure
	// it has dealt with.
	HandleUnauthorized(err error) bool
}

// Readiness loads the configuration domain a view depends on.
type Readiness interface {
	Ensure(ctx context.Context, domain string) error
}

// Describer turns an error into a message fit for the user.
type Describer func(err error) string

type openGuard struct{}

func (openGuard) IsAuthenticated() bool { return true }

func (openGuard) HandleUnauthorized(error) bool { return false }

// Config collects the dependencies of a View.
type Config[T any] struct {
	Clock          Clock
	Guard          Guard
	Readiness      Readiness
	Notifier       *Notifier
	Mutator        Mutator[T]
	Describe       Describer
	Label          string
	Domain         string
	Fields         []Field
	Tabs           []Tab[T]
	PageSize       int
	SearchDebounce time.Duration
}

// Option configures a View.
type Option[T any] func(*Config[T])

// WithClock sets the clock used for debouncing and notification expiry.
func WithClock[T any](c Clock) Option[T] { return func(cfg *Config[T]) { cfg.Clock = c } }

// WithGuard sets the authentication guard.
func WithGuard[T any](g Guard) Option[T] { return func(cfg *Config[T]) { cfg.Guard = g } }

// WithReadiness sets the configuration loader and the domain to require.
func WithReadiness[T any](r Readiness, domain string) Option[T] {
	return func(cfg *Config[T]) {
		cfg.Readiness = r
		cfg.Domain = domain
	}
}

// WithNotifier shares a notifier between views.
func WithNotifier[T any](n *Notifier) Option[T] { return func(cfg *Config[T]) { cfg.Notifier = n } }

// WithMutator enables writes.
func WithMutator[T any](m Mutator[T]) Option[T] { return func(cfg *Config[T]) { cfg.Mutator = m } }

// WithDescriber sets how errors are worded for the user.
func WithDescriber[T any](d Describer) Option[T] { return func(cfg *Config[T]) { cfg.Describe = d } }

// WithFields declares the filters of the view.
func WithFields[T any](fields ...Field) Option[T] { return func(cfg *Config[T]) { cfg.Fields = fields } }

// WithTabs declares the tab partition of the view.
func WithTabs[T any](tabs ...Tab[T]) Option[T] { return func(cfg *Config[T]) { cfg.Tabs = tabs } }

// WithPageSize sets the initial page size.
func WithPageSize[T any](n int) Option[T] { return func(cfg *Config[T]) { cfg.PageSize = n } }

// WithSearchDebounce sets the search quiet period.
func WithSearchDebounce[T any](d time.Duration) Option[T] {
	return func(cfg *Config[T]) { cfg.SearchDebounce = d }
}

// WithLabel sets the singular record name used in messages.
func WithLabel[T any](label string) Option[T] { return func(cfg *Config[T]) { cfg.Label = label } }

// Snapshot is a consistent copy of everything a renderer needs.
type Snapshot[T any] struct {
	Err           error
	Filters       map[string]string
	Rows          []T
	Tabs          []string
	PendingSearch string
	Notification  Notification
	Page          PageRequest
	ActiveTab     int
	Total         int
	TotalPages    int
	Loading       bool
	Loaded        bool
}

// View is a paginated, filterable, tabbed window onto a remote collection.
type View[T any] struct {
	ctx        context.Context
	source     Source[T]
	guard      Guard
	readiness  Readiness
	notes      *Notifier
	filters    *Filters
	partition  *Partition[T]
	fetcher    *Fetcher[T]
	dispatcher *Dispatcher[T]
	debounce   *Debouncer
	describe   Describer
	cancel     context.CancelFunc
	domain     string
	listeners  []func()
	page       PageRequest
	mu         sync.Mutex
}

// NewView creates a view over source. Background work started by the
// search debounce runs under ctx.
func NewView[T any](ctx context.Context, source Source[T], opts ...Option[T]) (*View[T], error) {
	cfg := Config[T]{
		PageSize:       DefaultPageSize,
		SearchDebounce: DefaultSearchDebounce,
		Label:          "Record",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Guard == nil {
		cfg.Guard = openGuard{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NewNotifier(cfg.Clock, DefaultNotificationTTL)
	}
	if cfg.Describe == nil {
		cfg.Describe = func(err error) string { return err.Error() }
	}
	if !ValidPageSize(cfg.PageSize) {
		return nil, fmt.Errorf("page size %d: must be one of %v", cfg.PageSize, PageSizeOptions)
	}

	partition, err := NewPartition(cfg.Tabs...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	v := &View[T]{
		ctx:       ctx,
		cancel:    cancel,
		source:    source,
		guard:     cfg.Guard,
		readiness: cfg.Readiness,
		domain:    cfg.Domain,
		notes:     cfg.Notifier,
		describe:  cfg.Describe,
		filters:   NewFilters(cfg.Fields...),
		partition: partition,
		debounce:  NewDebouncer(cfg.Clock, cfg.SearchDebounce),
		page:      PageRequest{Index: 0, Size: cfg.PageSize},
	}
	v.fetcher = NewFetcher[T](source, v.changed)
	v.notes.OnChange(func(Notification) { v.changed() })
	if cfg.Mutator != nil {
		v.dispatcher = NewDispatcher(cfg.Label, cfg.Mutator, v.notes, v.Query, v.fetch, v.report)
		v.dispatcher.AdjustAfterDelete(v.afterDelete)
	}
	return v, nil
}

// Close cancels pending debounced work.
func (v *View[T]) Close() {
	v.debounce.Cancel()
	v.cancel()
}

// OnChange registers a listener called whenever the snapshot may have changed.
func (v *View[T]) OnChange(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

// Notifier returns the view's notification channel.
func (v *View[T]) Notifier() *Notifier { return v.notes }

// Filters returns the filter holder.
func (v *View[T]) Filters() *Filters { return v.filters }

// Partition returns the tab partition.
func (v *View[T]) Partition() *Partition[T] { return v.partition }

// Query returns the request the view would issue now.
func (v *View[T]) Query() Query {
	v.mu.Lock()
	page := v.page
	v.mu.Unlock()

	if v.partition.ClientSide() {
		page = PageRequest{Index: 0, Size: ClientFetchLimit}
	}
	return Query{
		Filters: v.filters.Values(),
		Params:  v.partition.Params(),
		Page:    page,
	}
}

// Refresh fetches the current query.
func (v *View[T]) Refresh(ctx context.Context) error {
	return v.fetch(ctx, v.Query())
}

func (v *View[T]) fetch(ctx context.Context, q Query) error {
	if !v.guard.IsAuthenticated() {
		return common.ErrNotAuthenticated
	}
	if v.readiness != nil && v.domain != "" {
		if err := v.readiness.Ensure(ctx, v.domain); err != nil {
			v.report(err)
			return fmt.Errorf("%w: %s: %w", common.ErrConfigNotReady, v.domain, err)
		}
	}

	var err error
	if v.partition.ClientSide() {
		err = v.fetcher.FetchAll(ctx, q)
	} else {
		err = v.fetcher.Fetch(ctx, q)
	}
	switch {
	case err == nil:
		return v.clampPage(ctx, q)
	case errors.Is(err, ErrSuperseded):
		return err
	case errors.Is(err, context.Canceled):
		return err
	default:
		v.report(err)
		return err
	}
}

// clampPage steps back to the last page when the requested one no longer
// exists, as happens when records are removed by someone else.
func (v *View[T]) clampPage(ctx context.Context, q Query) error {
	s := v.fetcher.State()
	if len(s.Items) > 0 || q.Page.Index == 0 || s.TotalPages == 0 || q.Page.Index < s.TotalPages {
		return nil
	}
	v.mu.Lock()
	if v.page.Index != q.Page.Index {
		v.mu.Unlock()
		return nil
	}
	v.page.Index = s.TotalPages - 1
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// afterDelete moves back one page when the delete emptied the last page, so
// the refetch lands on rows that still exist.
func (v *View[T]) afterDelete(q Query) Query {
	if q.Page.Index == 0 {
		return q
	}
	s := v.fetcher.State()
	if len(s.Items) != 1 || s.TotalPages != q.Page.Index+1 || !s.Query.Equal(q) {
		return q
	}
	v.mu.Lock()
	if v.page.Index == q.Page.Index {
		v.page.Index--
	}
	v.mu.Unlock()
	q.Page.Index--
	return q
}

func (v *View[T]) report(err error) {
	if v.guard.HandleUnauthorized(err) {
		return
	}
	v.notes.Error(v.describe(err))
}

// SetFilter commits one filter, returns to the first page and refetches.
func (v *View[T]) SetFilter(ctx context.Context, name, value string) error {
	return v.SetFilters(ctx, map[string]string{name: value})
}

// SetFilters commits several filters with a single refetch. Either every
// value is committed or, when one is invalid, none is.
func (v *View[T]) SetFilters(ctx context.Context, values map[string]string) error {
	changed, err := v.filters.SetAll(values)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if _, ok := values[SearchField]; ok {
		v.debounce.Cancel()
	}
	v.resetPage()
	return v.Refresh(ctx)
}

// ResetFilters clears every filter.
func (v *View[T]) ResetFilters(ctx context.Context) error {
	v.debounce.Cancel()
	if !v.filters.Reset() {
		v.changed()
		return nil
	}
	v.resetPage()
	return v.Refresh(ctx)
}

// TypeSearch records search text and commits it once typing pauses.
func (v *View[T]) TypeSearch(text string) {
	v.filters.TypeSearch(text)
	v.changed()
	v.debounce.Trigger(func() {
		if !v.filters.CommitSearch() {
			return
		}
		v.resetPage()
		if err := v.Refresh(v.ctx); err != nil && !errors.Is(err, ErrSuperseded) {
			common.LogDebug("debounced search fetch failed", common.Fields{"error": err.Error()})
		}
	})
}

// SetPage moves to a 0-based page index. Client-side partitions hold the
// whole collection on one page.
func (v *View[T]) SetPage(ctx context.Context, index int) error {
	if index < 0 || v.partition.ClientSide() {
		index = 0
	}
	v.mu.Lock()
	if v.page.Index == index {
		v.mu.Unlock()
		return nil
	}
	v.page.Index = index
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// NextPage advances one page when one exists.
func (v *View[T]) NextPage(ctx context.Context) error {
	s := v.fetcher.State()
	v.mu.Lock()
	next := v.page.Index + 1
	v.mu.Unlock()
	if s.TotalPages > 0 && next >= s.TotalPages {
		return nil
	}
	return v.SetPage(ctx, next)
}

// PrevPage goes back one page.
func (v *View[T]) PrevPage(ctx context.Context) error {
	v.mu.Lock()
	prev := v.page.Index - 1
	v.mu.Unlock()
	if prev < 0 {
		return nil
	}
	return v.SetPage(ctx, prev)
}

// SetPageSize changes the page size and returns to the first page.
func (v *View[T]) SetPageSize(ctx context.Context, size int) error {
	if !ValidPageSize(size) {
		return fmt.Errorf("page size %d: must be one of %v", size, PageSizeOptions)
	}
	v.mu.Lock()
	if v.page.Size == size {
		v.mu.Unlock()
		return nil
	}
	v.page = PageRequest{Index: 0, Size: size}
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// SelectTab activates tab i. Server-side tabs refetch from the first page;
// client-side tabs re-derive their subset without a request.
func (v *View[T]) SelectTab(ctx context.Context, i int) error {
	changed, err := v.partition.Select(i)
	if err != nil || !changed {
		return err
	}
	if v.partition.ClientSide() {
		v.changed()
		return nil
	}
	v.resetPage()
	return v.Refresh(ctx)
}

// Create adds a record.
func (v *View[T]) Create(ctx context.Context, entity T) (T, error) {
	if v.dispatcher == nil {
		var zero T
		return zero, ErrUnsupported
	}
	return v.dispatcher.Create(ctx, entity)
}

// Update patches a record.
func (v *View[T]) Update(ctx context.Context, id int, patch map[string]any) (T, error) {
	if v.dispatcher == nil {
		var zero T
		return zero, ErrUnsupported
	}
	return v.dispatcher.Update(ctx, id, patch)
}

// Delete removes a record once confirm agrees.
func (v *View[T]) Delete(ctx context.Context, id int, confirm Confirmer) (bool, error) {
	if v.dispatcher == nil {
		return false, ErrUnsupported
	}
	return v.dispatcher.Delete(ctx, id, confirm)
}

// Approve records a decision on a record.
func (v *View[T]) Approve(ctx context.Context, id int, req model.ApprovalRequest) (T, error) {
	if v.dispatcher == nil {
		var zero T
		return zero, ErrUnsupported
	}
	return v.dispatcher.Approve(ctx, id, req)
}

// Snapshot returns the state to render.
func (v *View[T]) Snapshot() Snapshot[T] {
	s := v.fetcher.State()
	v.mu.Lock()
	page := v.page
	v.mu.Unlock()

	rows := v.partition.Apply(s.Items)
	total, totalPages := s.Total, s.TotalPages
	if v.partition.ClientSide() {
		total = len(rows)
		totalPages = 1
	}

	return Snapshot[T]{
		Rows:          slices.Clip(rows),
		Total:         total,
		TotalPages:    totalPages,
		Page:          page,
		Loading:       s.Loading,
		Loaded:        s.Loaded,
		Err:           s.Err,
		Filters:       v.filters.Values(),
		PendingSearch: v.filters.PendingSearch(),
		Tabs:          v.partition.Names(),
		ActiveTab:     v.partition.Active(),
		Notification:  v.notes.Current(),
	}
}

func (v *View[T]) resetPage() {
	v.mu.Lock()
	v.page.Index = 0
	v.mu.Unlock()
}

func (v *View[T]) changed() {
	v.mu.Lock()
	listeners := v.listeners
	v.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
