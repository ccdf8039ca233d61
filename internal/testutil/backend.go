// Package testutil starts the sandbox backend and the local pieces that
// talk to it, so tests can exercise the console end to end.
package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/auth"
	"github.com/Veraticus/schoolctl/internal/model"
	"github.com/Veraticus/schoolctl/internal/sandbox"
	"github.com/Veraticus/schoolctl/internal/storage"
)

// Backend is a running sandbox with a store, a guard and a client bound to
// it. Everything is closed when the test ends.
type Backend struct {
	Store  *storage.SQLiteStorage
	Guard  *auth.Guard
	Client *api.Client
	Server *sandbox.Server
	URL    string
	t      *testing.T
}

type options struct {
	now       func() time.Time
	transport http.RoundTripper
	sandbox   sandbox.Options
}

// Option configures SetupBackend.
type Option func(*options)

// WithNow fixes the clock of the sandbox and the guard.
func WithNow(now time.Time) Option {
	return func(o *options) { o.now = func() time.Time { return now } }
}

// WithTransport routes the client's requests through rt.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithSandbox replaces the sandbox options. PageBase defaults to 1 and Now
// to the WithNow clock.
func WithSandbox(opts sandbox.Options) Option {
	return func(o *options) { o.sandbox = opts }
}

// SetupBackend starts a seeded sandbox and an in-memory store.
//
// Example:
//
//	b := testutil.SetupBackend(t, testutil.WithNow(testNow))
//	user := b.Login("admin", "admin123")
func SetupBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()

	o := options{sandbox: sandbox.Options{PageBase: 1}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sandbox.Now == nil {
		o.sandbox.Now = o.now
	}

	srv := sandbox.New(o.sandbox)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	store, err := storage.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	guard := auth.NewGuard(store, auth.Options{BaseURL: ts.URL, TokenURL: ts.URL + "/auth/token", Now: o.now})

	clientOpts := []api.Option{api.WithTokenSource(guard), api.WithPageBase(o.sandbox.PageBase)}
	if o.transport != nil {
		clientOpts = append(clientOpts, api.WithTransport(o.transport))
	}
	client, err := api.NewClient(ts.URL, clientOpts...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return &Backend{
		Store:  store,
		Guard:  guard,
		Client: client,
		Server: srv,
		URL:    ts.URL,
		t:      t,
	}
}

// Login logs in through the guard or fails the test.
func (b *Backend) Login(username, password string) model.User {
	b.t.Helper()
	user, err := b.Guard.Login(context.Background(), username, password)
	if err != nil {
		b.t.Fatalf("login as %s: %v", username, err)
	}
	return user
}
