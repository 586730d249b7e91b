// Package valkey implements storage.Store on top of a Valkey server.
package valkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/holdings-portal/internal/serviceerr"
	"github.com/openkcm/holdings-portal/internal/storage"
)

type Store struct {
	valkey valkey.Client
	prefix string
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a store that keeps every key under "<prefix>:".
func NewStore(valkeyClient valkey.Client, prefix string) *Store {
	return &Store{
		valkey: valkeyClient,
		prefix: strings.TrimSuffix(prefix, ":"),
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(s.key(key)).Build()).ToString()
	if err != nil {
		valkeyErr, ok := valkey.IsValkeyErr(err)
		if ok && valkeyErr.IsNil() {
			return "", serviceerr.ErrNotFound
		}

		return "", fmt.Errorf("executing get command: %w", err)
	}

	return val, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var cmd valkey.Completed
	if ttl > 0 {
		cmd = s.valkey.B().Set().Key(s.key(key)).Value(value).PxMilliseconds(ttl.Milliseconds()).Build()
	} else {
		cmd = s.valkey.B().Set().Key(s.key(key)).Value(value).Build()
	}

	if err := s.valkey.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.valkey.Do(ctx, s.valkey.B().Del().Key(s.key(key)).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

func (s *Store) key(key string) string {
	return s.prefix + ":" + key
}
