package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/Veraticus/schoolctl/internal/common"
)

// StoredSession is the persisted login.
type StoredSession struct {
	Token    *oauth2.Token
	SavedAt  time.Time
	Username string
	BaseURL  string
}

// SaveSession replaces the stored login.
func (s *SQLiteStorage) SaveSession(ctx context.Context, baseURL, username string, tok *oauth2.Token) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(username, "username"); err != nil {
		return err
	}
	if tok == nil || tok.AccessToken == "" {
		return ErrNilToken
	}

	var expiry any
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_session (id, username, base_url, access_token, token_type, refresh_token, expiry, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			base_url = excluded.base_url,
			access_token = excluded.access_token,
			token_type = excluded.token_type,
			refresh_token = excluded.refresh_token,
			expiry = excluded.expiry,
			saved_at = excluded.saved_at`,
		username, baseURL, tok.AccessToken, tokenType(tok), tok.RefreshToken, expiry, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession returns the stored login or common.ErrNotFound.
func (s *SQLiteStorage) LoadSession(ctx context.Context) (*StoredSession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		sess    StoredSession
		access  string
		typ     string
		refresh sql.NullString
		expiry  sql.NullTime
		savedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT username, base_url, access_token, token_type, refresh_token, expiry, saved_at
		FROM auth_session WHERE id = 1`,
	).Scan(&sess.Username, &sess.BaseURL, &access, &typ, &refresh, &expiry, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	sess.Token = &oauth2.Token{
		AccessToken:  access,
		TokenType:    typ,
		RefreshToken: refresh.String,
	}
	if expiry.Valid {
		sess.Token.Expiry = expiry.Time
	}
	if savedAt.Valid {
		sess.SavedAt = savedAt.Time
	}
	return &sess, nil
}

// ClearSession forgets the stored login.
func (s *SQLiteStorage) ClearSession(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func tokenType(tok *oauth2.Token) string {
	if tok.TokenType == "" {
		return "bearer"
	}
	return tok.TokenType
}
