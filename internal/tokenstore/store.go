// Package tokenstore keeps a browser's tokens and transient PKCE state.
//
// Tokens live in the durable storage and survive until they expire or the
// user logs out. The PKCE state and verifier live in the transient storage
// and are removed once the callback consumed them.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/holdings-portal/internal/serviceerr"
	"github.com/openkcm/holdings-portal/internal/storage"
)

const (
	KeyIDToken     = "id_token"
	KeyAccessToken = "access_token"
	KeyExpiresAt   = "expires_at"
	KeyState       = "oauth_state"
	KeyVerifier    = "pkce_verifier"
)

const (
	// ExpirySafetyMargin is subtracted from the token lifetime so a token does
	// not expire in the middle of a request.
	ExpirySafetyMargin  = 5 * time.Second
	DefaultTransientTTL = 10 * time.Minute

	// MinTokenTTL keeps a token with no remaining lifetime from being stored
	// without expiry.
	MinTokenTTL = time.Second
)

// PKCE is the challenge material of one authorization round trip.
type PKCE struct {
	State    string
	Verifier string
}

type Store struct {
	durable      storage.Store
	transient    storage.Store
	transientTTL time.Duration
	now          func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithTransientTTL sets how long the PKCE state outlives an abandoned login.
func WithTransientTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.transientTTL = ttl
		}
	}
}

func New(durable, transient storage.Store, opts ...Option) *Store {
	s := &Store{
		durable:      durable,
		transient:    transient,
		transientTTL: DefaultTransientTTL,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Save persists the tokens. The expiry is now + expiresIn - ExpirySafetyMargin.
// The stored values are dropped by the storage once the token lifetime is over.
func (s *Store) Save(ctx context.Context, idToken, accessToken string, expiresIn time.Duration) error {
	expiresAt := s.now().Add(expiresIn - ExpirySafetyMargin)
	ttl := max(expiresIn, MinTokenTTL)

	values := []struct{ key, value string }{
		{KeyIDToken, idToken},
		{KeyAccessToken, accessToken},
		{KeyExpiresAt, strconv.FormatInt(expiresAt.UnixMilli(), 10)},
	}
	for _, v := range values {
		if err := s.durable.Set(ctx, v.key, v.value, ttl); err != nil {
			return fmt.Errorf("storing %s: %w", v.key, err)
		}
	}

	return nil
}

// Clear removes every persisted session value.
func (s *Store) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyIDToken, KeyAccessToken, KeyExpiresAt} {
		if err := s.durable.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

// IDToken returns the stored ID token or "" if there is none.
func (s *Store) IDToken(ctx context.Context) string {
	return s.get(ctx, s.durable, KeyIDToken)
}

// AccessToken returns the stored access token or "" if there is none.
func (s *Store) AccessToken(ctx context.Context) string {
	return s.get(ctx, s.durable, KeyAccessToken)
}

// ExpiresAt returns the stored expiry or the zero time.
func (s *Store) ExpiresAt(ctx context.Context) time.Time {
	raw := s.get(ctx, s.durable, KeyExpiresAt)
	if raw == "" {
		return time.Time{}
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slogctx.Warn(ctx, "Ignoring malformed token expiry", "error", err)
		return time.Time{}
	}

	return time.UnixMilli(ms)
}

// IsValid reports whether an ID token is present and has not expired.
func (s *Store) IsValid(ctx context.Context) bool {
	if s.IDToken(ctx) == "" {
		return false
	}

	return s.now().Before(s.ExpiresAt(ctx))
}

// BearerToken returns the ID token if the session is valid.
func (s *Store) BearerToken(ctx context.Context) (string, bool) {
	if !s.IsValid(ctx) {
		return "", false
	}

	return s.IDToken(ctx), true
}

func (s *Store) SavePKCE(ctx context.Context, p PKCE) error {
	if err := s.transient.Set(ctx, KeyState, p.State, s.transientTTL); err != nil {
		return fmt.Errorf("storing state: %w", err)
	}

	if err := s.transient.Set(ctx, KeyVerifier, p.Verifier, s.transientTTL); err != nil {
		return fmt.Errorf("storing verifier: %w", err)
	}

	return nil
}

// PKCE returns the pending challenge material. Missing values are empty.
func (s *Store) PKCE(ctx context.Context) PKCE {
	return PKCE{
		State:    s.get(ctx, s.transient, KeyState),
		Verifier: s.get(ctx, s.transient, KeyVerifier),
	}
}

func (s *Store) ClearPKCE(ctx context.Context) error {
	return errors.Join(
		s.transient.Remove(ctx, KeyState),
		s.transient.Remove(ctx, KeyVerifier),
	)
}

func (s *Store) get(ctx context.Context, st storage.Store, key string) string {
	v, err := st.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, serviceerr.ErrNotFound) {
			slogctx.Warn(ctx, "Could not read from browser storage", "key", key, "error", err)
		}

		return ""
	}

	return v
}
