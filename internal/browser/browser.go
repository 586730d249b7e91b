// Package browser identifies the browser behind a request and gives it its
// own token store.
//
// A persistent device cookie keys the durable ("local") storage scope, a
// browser-session cookie keys the transient ("session") scope. Together they
// stand in for a browser's localStorage and sessionStorage.
package browser

import (
	"context"
	"errors"
	"net/http"

	"github.com/openkcm/holdings-portal/internal/config"
	"github.com/openkcm/holdings-portal/internal/pkce"
	"github.com/openkcm/holdings-portal/internal/storage"
	"github.com/openkcm/holdings-portal/internal/tokenstore"
)

const (
	LocalScope   = "local"
	SessionScope = "session"
)

// Identity holds the identifiers of a browser.
type Identity struct {
	DeviceID string
	TabID    string
}

type Browsers struct {
	durable   storage.Store
	transient storage.Store
	cookies   config.Cookies
	ids       pkce.Source
	opts      []tokenstore.Option
}

func New(durable, transient storage.Store, cookies config.Cookies, opts ...tokenstore.Option) *Browsers {
	return &Browsers{
		durable:   durable,
		transient: transient,
		cookies:   cookies,
		opts:      opts,
	}
}

// Tokens returns the token store of the browser with the given identity.
func (b *Browsers) Tokens(id Identity) *tokenstore.Store {
	return tokenstore.New(
		storage.Scoped(b.durable, LocalScope+":"+id.DeviceID),
		storage.Scoped(b.transient, SessionScope+":"+id.TabID),
		b.opts...,
	)
}

// Middleware assigns missing or malformed browser identifiers and places the
// identity and token store in the request context.
func (b *Browsers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			DeviceID: b.ensure(w, r, &b.cookies.Device),
			TabID:    b.ensure(w, r, &b.cookies.Tab),
		}

		ctx := context.WithValue(r.Context(), identityKey, id)
		ctx = context.WithValue(ctx, tokensKey, b.Tokens(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (b *Browsers) ensure(w http.ResponseWriter, r *http.Request, ct *config.CookieTemplate) string {
	if v, ok := ct.FromRequest(r); ok && pkce.ValidBrowserID(v) {
		return v
	}

	v := b.ids.BrowserID()
	http.SetCookie(w, ct.ToCookie(v))

	return v
}

// Using an unexported type prevents key collisions from other packages.
type contextKey string

const (
	identityKey contextKey = "browser-identity"
	tokensKey   contextKey = "browser-tokens"
)

// IdentityFromContext returns the identity placed by the middleware.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return Identity{}, errors.New("browser identity not found in context")
	}

	return id, nil
}

// TokensFromContext returns the token store placed by the middleware.
func TokensFromContext(ctx context.Context) (*tokenstore.Store, error) {
	tokens, ok := ctx.Value(tokensKey).(*tokenstore.Store)
	if !ok {
		return nil, errors.New("token store not found in context")
	}

	return tokens, nil
}
