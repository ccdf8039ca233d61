// Package auth holds the console's login session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
	"github.com/Veraticus/schoolctl/internal/storage"
)

// expiryLeeway treats tokens this close to expiry as already expired.
const expiryLeeway = 10 * time.Second

// Store persists the session between runs.
type Store interface {
	SaveSession(ctx context.Context, baseURL, username string, tok *oauth2.Token) error
	LoadSession(ctx context.Context) (*storage.StoredSession, error)
	ClearSession(ctx context.Context) error
}

// Options configures a Guard.
type Options struct {
	HTTPClient *http.Client
	Now        func() time.Time
	BaseURL    string
	TokenURL   string
	ClientID   string
}

// Guard knows whether the console is logged in, supplies the bearer token
// and reacts to the server rejecting it.
type Guard struct {
	store          Store
	token          *oauth2.Token
	httpClient     *http.Client
	now            func() time.Time
	onUnauthorized []func()
	oauth          oauth2.Config
	baseURL        string
	username       string
	user           model.User
	mu             sync.RWMutex
}

// NewGuard creates a guard. store may be nil for a session that is never
// persisted.
func NewGuard(store Store, opts Options) *Guard {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: api.DefaultTimeout}
	}
	return &Guard{
		store:      store,
		httpClient: opts.HTTPClient,
		now:        opts.Now,
		baseURL:    opts.BaseURL,
		oauth: oauth2.Config{
			ClientID: opts.ClientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// Restore loads a persisted session. An expired one is discarded.
func (g *Guard) Restore(ctx context.Context) error {
	if g.store == nil {
		return common.ErrNotAuthenticated
	}
	sess, err := g.store.LoadSession(ctx)
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrNotAuthenticated
	}
	if err != nil {
		return err
	}
	if sess.BaseURL != "" && g.baseURL != "" && sess.BaseURL != g.baseURL {
		common.LogDebug("stored session belongs to another server", common.Fields{"stored": sess.BaseURL})
		return common.ErrNotAuthenticated
	}
	if g.expired(sess.Token) {
		_ = g.store.ClearSession(ctx)
		return common.ErrSessionExpired
	}
	return g.adopt(sess.Username, sess.Token)
}

// Login exchanges credentials for an access token.
func (g *Guard) Login(ctx context.Context, username, password string) (model.User, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	tok, err := g.oauth.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return model.User{}, loginError(err)
	}

	if err := g.adopt(username, tok); err != nil {
		return model.User{}, err
	}
	if g.store != nil {
		if err := g.store.SaveSession(ctx, g.baseURL, username, g.currentToken()); err != nil {
			common.LogWarn("could not persist session", common.Fields{"error": err.Error()})
		}
	}

	user, _ := g.User()
	common.LogInfo("logged in", common.Fields{"username": username, "user_id": user.ID, "user_type": string(user.Type)})
	return user, nil
}

func loginError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		switch code := re.Response.StatusCode; {
		case code == http.StatusBadRequest || code == http.StatusUnauthorized:
			return common.NewUserError("Invalid username or password.", err)
		case code >= http.StatusInternalServerError:
			return common.NewUserError(api.MsgServer, err)
		}
		return common.NewUserError(api.MsgFallback, err)
	}
	return common.NewUserError(api.MsgNetwork, err)
}

// adopt installs a token, reading the user from its claims.
func (g *Guard) adopt(username string, tok *oauth2.Token) error {
	claims, err := ParseClaims(tok.AccessToken)
	if err != nil {
		return err
	}
	user, err := claims.User()
	if err != nil {
		return err
	}
	if tok.Expiry.IsZero() && claims.ExpiresAt != nil {
		tok.Expiry = claims.ExpiresAt.Time
	}

	g.mu.Lock()
	g.token = tok
	g.user = user
	g.username = username
	g.mu.Unlock()
	return nil
}

// Logout forgets the session locally and in the store.
func (g *Guard) Logout(ctx context.Context) error {
	g.clear()
	if g.store == nil {
		return nil
	}
	return g.store.ClearSession(ctx)
}

// IsAuthenticated reports whether a live token is held.
func (g *Guard) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token != nil && !g.expired(g.token)
}

// User returns the logged-in user.
func (g *Guard) User() (model.User, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.user, g.token != nil
}

// Username returns the name used to log in.
func (g *Guard) Username() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.username
}

// Expiry returns when the held token expires.
func (g *Guard) Expiry() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.token == nil {
		return time.Time{}
	}
	return g.token.Expiry
}

// Token implements oauth2.TokenSource for the API client.
func (g *Guard) Token() (*oauth2.Token, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	switch {
	case g.token == nil:
		return nil, common.ErrNotAuthenticated
	case g.expired(g.token):
		return nil, common.ErrSessionExpired
	}
	tok := *g.token
	return &tok, nil
}

// OnUnauthorized registers the redirect to the login surface.
func (g *Guard) OnUnauthorized(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onUnauthorized = append(g.onUnauthorized, fn)
}

// HandleUnauthorized clears the session and fires the redirect when err
// is an authentication failure.
func (g *Guard) HandleUnauthorized(err error) bool {
	if !api.IsAuth(err) {
		return false
	}
	common.LogWarn("session rejected by server", common.Fields{"error": err.Error()})

	g.clear()
	if g.store != nil {
		if clearErr := g.store.ClearSession(context.Background()); clearErr != nil {
			common.LogWarn("could not clear stored session", common.Fields{"error": clearErr.Error()})
		}
	}

	g.mu.RLock()
	hooks := append([]func(){}, g.onUnauthorized...)
	g.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
	return true
}

func (g *Guard) clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = nil
	g.user = model.User{}
	g.username = ""
}

func (g *Guard) currentToken() *oauth2.Token {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

func (g *Guard) expired(tok *oauth2.Token) bool {
	if tok.Expiry.IsZero() {
		return false
	}
	return !g.now().Add(expiryLeeway).Before(tok.Expiry)
}

// String describes the session for whoami.
func (g *Guard) String() string {
	user, ok := g.User()
	if !ok {
		return "not logged in"
	}
	return fmt.Sprintf("%s (id %d, %s)", g.Username(), user.ID, user.Type)
}
