// Package memory implements storage.Store in process memory.
package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/openkcm/holdings-portal/internal/serviceerr"
	"github.com/openkcm/holdings-portal/internal/storage"
)

const DefaultCleanupInterval = time.Minute

type Store struct {
	cache *cache.Cache
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store. Expired entries are purged every cleanupInterval.
func New(cleanupInterval time.Duration) *Store {
	return &Store{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", serviceerr.ErrNotFound
	}

	//nolint:forcetypeassert
	return v.(string), nil
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	d := cache.NoExpiration
	if ttl > 0 {
		d = ttl
	}

	s.cache.Set(key, value, d)

	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Len returns the number of items, including expired ones not yet purged.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
