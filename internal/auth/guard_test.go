package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
	"github.com/Veraticus/schoolctl/internal/storage"
)

var testNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func signToken(t *testing.T, sub, userType string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func tokenServer(t *testing.T, access string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "console", r.PostForm.Get("client_id"))
		if r.PostForm.Get("password") != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": access,
			"token_type":   "bearer",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGuard(t *testing.T, tokenURL string) (*Guard, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	g := NewGuard(store, Options{
		BaseURL:  "http://api.test",
		TokenURL: tokenURL,
		ClientID: "console",
		Now:      func() time.Time { return testNow },
	})
	return g, store
}

func TestGuard_LoginPersistsAndRestores(t *testing.T) {
	access := signToken(t, "42", "admin", testNow.Add(time.Hour))
	srv := tokenServer(t, access)
	g, store := newTestGuard(t, srv.URL)
	ctx := context.Background()

	assert.False(t, g.IsAuthenticated())
	_, err := g.Token()
	require.ErrorIs(t, err, common.ErrNotAuthenticated)

	user, err := g.Login(ctx, "registrar", "secret")
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: 42, Type: model.UserAdmin}, user)
	assert.True(t, g.IsAuthenticated())
	assert.Equal(t, testNow.Add(time.Hour).Unix(), g.Expiry().Unix())
	assert.Equal(t, "registrar (id 42, admin)", g.String())

	tok, err := g.Token()
	require.NoError(t, err)
	assert.Equal(t, access, tok.AccessToken)

	restored := NewGuard(store, Options{BaseURL: "http://api.test", Now: func() time.Time { return testNow }})
	require.NoError(t, restored.Restore(ctx))
	assert.True(t, restored.IsAuthenticated())
	assert.Equal(t, "registrar", restored.Username())

	other := NewGuard(store, Options{BaseURL: "http://elsewhere.test", Now: func() time.Time { return testNow }})
	require.ErrorIs(t, other.Restore(ctx), common.ErrNotAuthenticated)
}

func TestGuard_BadCredentials(t *testing.T) {
	srv := tokenServer(t, signToken(t, "1", "staff", testNow.Add(time.Hour)))
	g, _ := newTestGuard(t, srv.URL)

	_, err := g.Login(context.Background(), "registrar", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid username or password.", api.UserMessage(err))
	assert.False(t, g.IsAuthenticated())
}

func TestGuard_ExpiredSessionIsDiscarded(t *testing.T) {
	access := signToken(t, "7", "teacher", testNow.Add(5*time.Second))
	srv := tokenServer(t, access)
	g, store := newTestGuard(t, srv.URL)
	ctx := context.Background()

	_, err := g.Login(ctx, "teacher", "secret")
	require.NoError(t, err)
	assert.False(t, g.IsAuthenticated(), "tokens inside the leeway count as expired")

	_, err = g.Token()
	require.ErrorIs(t, err, common.ErrSessionExpired)

	restored := NewGuard(store, Options{BaseURL: "http://api.test", Now: func() time.Time { return testNow }})
	require.ErrorIs(t, restored.Restore(ctx), common.ErrSessionExpired)
	_, err = store.LoadSession(ctx)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGuard_HandleUnauthorized(t *testing.T) {
	srv := tokenServer(t, signToken(t, "3", "staff", testNow.Add(time.Hour)))
	g, store := newTestGuard(t, srv.URL)
	ctx := context.Background()

	_, err := g.Login(ctx, "clerk", "secret")
	require.NoError(t, err)

	redirects := 0
	g.OnUnauthorized(func() { redirects++ })

	assert.False(t, g.HandleUnauthorized(&api.Error{Kind: api.KindBusiness, Status: 409}))
	assert.True(t, g.IsAuthenticated())

	assert.True(t, g.HandleUnauthorized(&api.Error{Kind: api.KindAuth, Status: 401}))
	assert.Equal(t, 1, redirects)
	assert.False(t, g.IsAuthenticated())
	_, err = store.LoadSession(ctx)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGuard_Logout(t *testing.T) {
	srv := tokenServer(t, signToken(t, "3", "staff", testNow.Add(time.Hour)))
	g, store := newTestGuard(t, srv.URL)
	ctx := context.Background()

	_, err := g.Login(ctx, "clerk", "secret")
	require.NoError(t, err)
	require.NoError(t, g.Logout(ctx))

	assert.False(t, g.IsAuthenticated())
	assert.Equal(t, "not logged in", g.String())
	_, err = store.LoadSession(ctx)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestParseClaims(t *testing.T) {
	c, err := ParseClaims(signToken(t, "12", "teacher", testNow))
	require.NoError(t, err)
	u, err := c.User()
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: 12, Type: model.UserTeacher}, u)

	_, err = ParseClaims("not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidClaims)

	c, err = ParseClaims(signToken(t, "abc", "admin", testNow))
	require.NoError(t, err)
	_, err = c.User()
	require.ErrorIs(t, err, ErrInvalidClaims)
}
