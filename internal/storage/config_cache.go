package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
)

// CachedDomain describes one cached configuration bag.
type CachedDomain struct {
	FetchedAt time.Time
	Domain    string
	BaseURL   string
}

// SaveConfig stores the latest configuration bag of a domain.
func (s *SQLiteStorage) SaveConfig(ctx context.Context, baseURL string, bag model.ConfigBag) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(bag.Domain, "domain"); err != nil {
		return err
	}

	payload, err := json.Marshal(bag)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO config_cache (domain, base_url, payload, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			base_url = excluded.base_url,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at`,
		bag.Domain, baseURL, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to cache configuration: %w", err)
	}
	return nil
}

// LoadConfig returns a cached bag fetched from baseURL, or common.ErrNotFound.
func (s *SQLiteStorage) LoadConfig(ctx context.Context, baseURL, domain string) (model.ConfigBag, time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return model.ConfigBag{}, time.Time{}, err
	}

	var (
		payload   string
		fetchedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM config_cache WHERE domain = ? AND base_url = ?`,
		domain, baseURL,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ConfigBag{}, time.Time{}, common.ErrNotFound
	}
	if err != nil {
		return model.ConfigBag{}, time.Time{}, fmt.Errorf("failed to load cached configuration: %w", err)
	}

	var bag model.ConfigBag
	if err := json.Unmarshal([]byte(payload), &bag); err != nil {
		return model.ConfigBag{}, time.Time{}, fmt.Errorf("failed to decode cached configuration: %w", err)
	}
	return bag, fetchedAt, nil
}

// ListCachedConfig returns the cached domains, newest first.
func (s *SQLiteStorage) ListCachedConfig(ctx context.Context) ([]CachedDomain, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, base_url, fetched_at FROM config_cache ORDER BY fetched_at DESC, domain`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached configuration: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CachedDomain
	for rows.Next() {
		var d CachedDomain
		if err := rows.Scan(&d.Domain, &d.BaseURL, &d.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached configuration: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ClearConfigCache drops every cached bag and reports how many were removed.
func (s *SQLiteStorage) ClearConfigCache(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM config_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear configuration cache: %w", err)
	}
	return res.RowsAffected()
}
