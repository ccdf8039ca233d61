package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/auth"
	"github.com/Veraticus/schoolctl/internal/certs"
	"github.com/Veraticus/schoolctl/internal/collection"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/config"
	"github.com/Veraticus/schoolctl/internal/console"
	"github.com/Veraticus/schoolctl/internal/lookup"
	"github.com/Veraticus/schoolctl/internal/storage"
)

// backend is an open connection to the server plus the local store that
// keeps the login and the configuration cache.
type backend struct {
	settings *config.Settings
	store    *storage.SQLiteStorage
	guard    *auth.Guard
	client   *api.Client
	lookup   *lookup.Service
}

// openBackend opens storage and builds the client. It does not log in.
func (e *env) openBackend(ctx context.Context) (*backend, error) {
	s := e.settings
	store, err := storage.Open(ctx, s.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	transport, err := trustedTransport(s.API.CAFile)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	guard := auth.NewGuard(store, auth.Options{
		HTTPClient: &http.Client{Timeout: s.API.Timeout, Transport: transport},
		BaseURL:    s.API.BaseURL,
		TokenURL:   s.API.TokenURL,
		ClientID:   s.API.ClientID,
	})
	client, err := api.NewClient(s.API.BaseURL,
		api.WithTokenSource(guard),
		api.WithTimeout(s.API.Timeout),
		api.WithPageBase(s.API.PageBase),
		api.WithTransport(transport),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &backend{
		settings: s,
		store:    store,
		guard:    guard,
		client:   client,
		lookup:   lookup.New(client, lookup.WithCache(store, s.API.BaseURL)),
	}, nil
}

// trustedTransport adds caFile to the trusted roots. Without one it returns
// the default transport.
func trustedTransport(caFile string) (http.RoundTripper, error) {
	if caFile == "" {
		return http.DefaultTransport, nil
	}
	pool, err := certs.LoadPool(caFile)
	if err != nil {
		return nil, err
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	return tr, nil
}

// Close releases the local store.
func (b *backend) Close() {
	if err := b.store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

// restore picks up the login saved by "schoolctl login".
func (b *backend) restore(ctx context.Context) error {
	err := b.guard.Restore(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrNotAuthenticated):
		return common.NewUserError(`Not logged in. Run "schoolctl login" first.`, err)
	case errors.Is(err, common.ErrSessionExpired):
		return common.NewUserError(`Your session has expired. Run "schoolctl login" again.`, err)
	}
	return fmt.Errorf("failed to restore session: %w", err)
}

// registry builds the screens for the logged-in user.
func (b *backend) registry(ctx context.Context) (*console.Registry, error) {
	user, ok := b.guard.User()
	if !ok {
		return nil, common.ErrNotAuthenticated
	}
	return console.NewRegistry(ctx, console.Deps{
		Client:         b.client,
		Guard:          b.guard,
		Lookup:         b.lookup,
		Notifier:       collection.NewNotifier(nil, b.settings.UI.NotificationTTL),
		User:           &user,
		PageSize:       b.settings.UI.PageSize,
		SearchDebounce: b.settings.UI.SearchDebounce,
	})
}

// withScreens restores the login, builds the registry and hands it to fn.
func (e *env) withScreens(ctx context.Context, fn func(*backend, *console.Registry) error) error {
	b, err := e.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.restore(ctx); err != nil {
		return err
	}
	reg, err := b.registry(ctx)
	if err != nil {
		return err
	}
	defer reg.Close()
	return fn(b, reg)
}

// parseFilters reads repeated --filter name=value flags.
func parseFilters(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("filter %q is not name=value", p)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}

// tabIndex finds a tab by name, case-insensitively.
func tabIndex(tabs []string, name string) (int, error) {
	for i, t := range tabs {
		if strings.EqualFold(t, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown tab %q (have %s)", name, strings.Join(tabs, ", "))
}

func kindName(k collection.FieldKind) string {
	switch k {
	case collection.KindID:
		return "id"
	case collection.KindDate:
		return "date"
	case collection.KindChoice:
		return "choice"
	default:
		return "text"
	}
}
