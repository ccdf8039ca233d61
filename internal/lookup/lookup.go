// Package lookup loads and caches the configuration enumerations that
// label ids and populate filter dropdowns.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
)

// Source fetches a configuration bag from the server.
type Source interface {
	Configuration(ctx context.Context, domain string) (model.ConfigBag, error)
}

// Cache keeps the last good bag of each domain across runs.
type Cache interface {
	SaveConfig(ctx context.Context, baseURL string, bag model.ConfigBag) error
	LoadConfig(ctx context.Context, baseURL, domain string) (model.ConfigBag, time.Time, error)
}

// State is the load status of one domain.
type State struct {
	FetchedAt time.Time
	Err       error
	Data      model.ConfigBag
	IsLoading bool
	IsLoaded  bool
	// Stale is set when Data came from the local cache because the server
	// could not be reached.
	Stale bool
}

// Service loads each domain at most once at a time and remembers the result.
type Service struct {
	source    Source
	cache     Cache
	now       func() time.Time
	states    map[string]State
	listeners []func(domain string)
	baseURL   string
	retry     common.RetryOptions
	group     singleflight.Group
	mu        sync.RWMutex
}

// Option configures a Service.
type Option func(*Service)

// WithCache falls back to cached bags fetched from baseURL.
func WithCache(cache Cache, baseURL string) Option {
	return func(s *Service) {
		s.cache = cache
		s.baseURL = baseURL
	}
}

// WithRetry overrides the retry policy for loads.
func WithRetry(opts common.RetryOptions) Option {
	return func(s *Service) { s.retry = opts }
}

// New creates a lookup service.
func New(source Source, opts ...Option) *Service {
	s := &Service{
		source: source,
		now:    time.Now,
		states: make(map[string]State),
		retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a listener called whenever a domain's state changes.
func (s *Service) OnChange(fn func(domain string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Get returns the state of a domain.
func (s *Service) Get(domain string) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[domain]
}

// Ensure loads domain unless it is already loaded. Concurrent callers for
// the same domain share one request.
func (s *Service) Ensure(ctx context.Context, domain string) error {
	if s.Get(domain).IsLoaded {
		return nil
	}
	return s.load(ctx, domain)
}

// Reload fetches domain again even when it is loaded.
func (s *Service) Reload(ctx context.Context, domain string) error {
	return s.load(ctx, domain)
}

// Preload loads several domains concurrently.
func (s *Service) Preload(ctx context.Context, domains ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, d := range domains {
		g.Go(func() error { return s.Ensure(ctx, d) })
	}
	return g.Wait()
}

// loadTimeout bounds a shared load, which is detached from the caller
// that started it.
const loadTimeout = 30 * time.Second

func (s *Service) load(ctx context.Context, domain string) error {
	ch := s.group.DoChan(domain, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		s.update(domain, func(st *State) { st.IsLoading = true })
		return nil, s.fetch(loadCtx, domain)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Shared {
			common.LogDebug("joined in-flight configuration load", common.Fields{"domain": domain})
		}
		return res.Err
	}
}

func (s *Service) fetch(ctx context.Context, domain string) error {
	var bag model.ConfigBag
	err := common.WithRetry(ctx, func() error {
		var fetchErr error
		bag, fetchErr = s.source.Configuration(ctx, domain)
		if fetchErr != nil && retryable(fetchErr) {
			return &common.RetryableError{Err: fetchErr, Retryable: true}
		}
		return fetchErr
	}, s.retry)

	if err == nil {
		s.update(domain, func(st *State) {
			*st = State{Data: bag, IsLoaded: true, FetchedAt: s.now()}
		})
		if s.cache != nil {
			if cacheErr := s.cache.SaveConfig(ctx, s.baseURL, bag); cacheErr != nil {
				common.LogWarn("could not cache configuration", common.Fields{"domain": domain, "error": cacheErr.Error()})
			}
		}
		return nil
	}

	if !api.IsAuth(err) && !errors.Is(err, context.Canceled) && s.cache != nil {
		cached, fetchedAt, cacheErr := s.cache.LoadConfig(ctx, s.baseURL, domain)
		if cacheErr == nil {
			common.LogWarn("using cached configuration", common.Fields{"domain": domain, "fetched_at": fetchedAt, "error": err.Error()})
			s.update(domain, func(st *State) {
				*st = State{Data: cached, IsLoaded: true, Stale: true, FetchedAt: fetchedAt}
			})
			return nil
		}
	}

	s.update(domain, func(st *State) {
		st.IsLoading = false
		st.Err = err
	})
	return fmt.Errorf("load configuration %s: %w", domain, err)
}

func retryable(err error) bool {
	kind, ok := api.KindOf(err)
	return ok && (kind == api.KindNetwork || kind == api.KindServer)
}

func (s *Service) update(domain string, fn func(*State)) {
	s.mu.Lock()
	st := s.states[domain]
	fn(&st)
	s.states[domain] = st
	listeners := s.listeners
	s.mu.Unlock()

	for _, l := range listeners {
		l(domain)
	}
}

// Options returns the active options of one enumeration of a loaded domain.
func (s *Service) Options(domain string, set model.OptionSet) []model.Option {
	return model.ActiveOptions(s.Get(domain).Data.Options(set))
}

// Label translates an option id into its display label.
func (s *Service) Label(domain string, set model.OptionSet, id int) string {
	return s.Get(domain).Data.LabelFor(set, id)
}
