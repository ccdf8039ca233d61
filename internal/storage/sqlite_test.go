package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	return store, func() { _ = store.Close() }
}

func TestMigrate_Idempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var version int
	if err := store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("Failed to read version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("version = %d, want %d", version, ExpectedSchemaVersion)
	}
}

func TestNewSQLiteStorage_InMemory(t *testing.T) {
	store, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := NewSQLiteStorage("  "); !errors.Is(err, ErrEmptyString) {
		t.Errorf("empty path error = %v, want ErrEmptyString", err)
	}
}

func TestSession_RoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.LoadSession(ctx); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("LoadSession on empty db = %v, want ErrNotFound", err)
	}

	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	tok := &oauth2.Token{AccessToken: "first", Expiry: expiry}
	if err := store.SaveSession(ctx, "http://api.test", "admin", tok); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := store.SaveSession(ctx, "http://api.test", "registrar", &oauth2.Token{AccessToken: "second", TokenType: "Bearer", Expiry: expiry}); err != nil {
		t.Fatalf("second SaveSession failed: %v", err)
	}

	sess, err := store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if sess.Username != "registrar" || sess.Token.AccessToken != "second" {
		t.Errorf("session = %+v, want the latest save", sess)
	}
	if sess.BaseURL != "http://api.test" {
		t.Errorf("base url = %q", sess.BaseURL)
	}
	if !sess.Token.Expiry.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", sess.Token.Expiry, expiry)
	}

	if err := store.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}
	if _, err := store.LoadSession(ctx); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("LoadSession after clear = %v, want ErrNotFound", err)
	}
}

func TestSaveSession_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SaveSession(ctx, "", "admin", nil); !errors.Is(err, ErrNilToken) {
		t.Errorf("nil token error = %v", err)
	}
	if err := store.SaveSession(ctx, "", "", &oauth2.Token{AccessToken: "x"}); !errors.Is(err, ErrEmptyString) {
		t.Errorf("empty username error = %v", err)
	}
}

func TestConfigCache(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	base := "http://api.test"

	bag := model.ConfigBag{
		Domain:   "leave-management",
		Statuses: []model.Option{{ID: 1, Name: "Pending", IsActive: true}},
	}
	if err := store.SaveConfig(ctx, base, bag); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	got, fetchedAt, err := store.LoadConfig(ctx, base, "leave-management")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if fetchedAt.IsZero() {
		t.Error("fetched_at not recorded")
	}
	if len(got.Statuses) != 1 || got.Statuses[0].Name != "Pending" {
		t.Errorf("cached statuses = %+v", got.Statuses)
	}

	if _, _, err := store.LoadConfig(ctx, "http://other.test", "leave-management"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("other base url = %v, want ErrNotFound", err)
	}

	listed, err := store.ListCachedConfig(ctx)
	if err != nil {
		t.Fatalf("ListCachedConfig failed: %v", err)
	}
	if len(listed) != 1 || listed[0].Domain != "leave-management" {
		t.Errorf("listed = %+v", listed)
	}

	n, err := store.ClearConfigCache(ctx)
	if err != nil {
		t.Fatalf("ClearConfigCache failed: %v", err)
	}
	if n != 1 {
		t.Errorf("cleared %d rows, want 1", n)
	}
}
