package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/holdings-portal/internal/auth"
	"github.com/openkcm/holdings-portal/internal/config"
	"github.com/openkcm/holdings-portal/internal/storage/memory"
	"github.com/openkcm/holdings-portal/internal/tokenstore"
)

const (
	testClientID    = "my-client-id"
	testRedirectURI = "http://localhost:3000/auth/callback"
	testLogoutURI   = "http://localhost:3000/"
)

// fakeIdP serves the token endpoint of an identity provider.
type fakeIdP struct {
	*httptest.Server

	mu       sync.Mutex
	requests []url.Values
	status   int
	response map[string]any
}

func startIdP(t *testing.T) *fakeIdP {
	t.Helper()

	idp := &fakeIdP{
		status: http.StatusOK,
		response: map[string]any{
			"id_token":     "id-token",
			"access_token": "access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		},
	}

	idp.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		idp.mu.Lock()
		idp.requests = append(idp.requests, r.PostForm)
		status, response := idp.status, idp.response
		idp.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(idp.Close)

	return idp
}

func (idp *fakeIdP) respond(status int, response map[string]any) {
	idp.mu.Lock()
	defer idp.mu.Unlock()

	idp.status = status
	idp.response = response
}

func (idp *fakeIdP) tokenRequests() []url.Values {
	idp.mu.Lock()
	defer idp.mu.Unlock()

	return append([]url.Values(nil), idp.requests...)
}

func newManager(t *testing.T, domain string) *auth.Manager {
	t.Helper()

	m, err := auth.NewManager(&config.Identity{
		Domain:      domain,
		ClientID:    testClientID,
		RedirectURI: testRedirectURI,
		LogoutURI:   testLogoutURI,
	}, "", nil)
	require.NoError(t, err)

	return m
}

func newTokens(now time.Time) *tokenstore.Store {
	return tokenstore.New(
		memory.New(time.Minute),
		memory.New(time.Minute),
		tokenstore.WithClock(func() time.Time { return now }),
	)
}

func signJWT(t *testing.T, claims ...any) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.RS256,
		Key:       key,
	}, nil)
	require.NoError(t, err)

	builder := jwt.Signed(signer)
	for _, c := range claims {
		builder = builder.Claims(c)
	}

	token, err := builder.Serialize()
	require.NoError(t, err)

	return token
}
