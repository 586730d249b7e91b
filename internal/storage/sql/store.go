// Package sql implements storage.Store on a PostgreSQL table.
package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openkcm/holdings-portal/internal/serviceerr"
	"github.com/openkcm/holdings-portal/internal/storage"
)

type Store struct {
	db *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.db.QueryRow(ctx, `SELECT value
FROM browser_storage
WHERE key = $1
	AND (expires_at IS NULL OR expires_at > now());`,
		key,
	).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", serviceerr.ErrNotFound
		}

		return "", fmt.Errorf("selecting from browser_storage: %w", err)
	}

	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	if _, err := s.db.Exec(ctx, `INSERT INTO browser_storage (key, value, expires_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (key)
	DO UPDATE SET (value, expires_at) = (EXCLUDED.value, EXCLUDED.expires_at);`,
		key, value, expiresAt,
	); err != nil {
		return fmt.Errorf("upserting into browser_storage: %w", err)
	}

	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM browser_storage WHERE key = $1;`, key); err != nil {
		return fmt.Errorf("deleting from browser_storage: %w", err)
	}

	return nil
}

// DeleteExpired purges rows whose expiry has passed and returns how many were removed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM browser_storage WHERE expires_at IS NOT NULL AND expires_at <= now();`)
	if err != nil {
		return 0, fmt.Errorf("deleting expired rows: %w", err)
	}

	return tag.RowsAffected(), nil
}
