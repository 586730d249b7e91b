// Package storage defines the key-value capability that backs a browser's
// durable ("local") and transient ("session") storage.
package storage

import (
	"context"
	"strings"
	"time"
)

// Store is a string key-value store. Get returns serviceerr.ErrNotFound for
// absent or expired keys. A ttl <= 0 stores the value without expiry.
// Removing an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

type scoped struct {
	next  Store
	scope string
}

// Scoped returns a view of s where every key is prefixed by scope.
func Scoped(s Store, scope string) Store {
	return &scoped{
		next:  s,
		scope: strings.TrimSuffix(scope, ":"),
	}
}

func (s *scoped) Get(ctx context.Context, key string) (string, error) {
	return s.next.Get(ctx, s.key(key))
}

func (s *scoped) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.next.Set(ctx, s.key(key), value, ttl)
}

func (s *scoped) Remove(ctx context.Context, key string) error {
	return s.next.Remove(ctx, s.key(key))
}

func (s *scoped) key(key string) string {
	return s.scope + ":" + key
}
