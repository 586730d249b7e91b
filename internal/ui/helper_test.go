package ui_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openkcm/holdings-portal/internal/auth"
	"github.com/openkcm/holdings-portal/internal/browser"
	"github.com/openkcm/holdings-portal/internal/config"
	"github.com/openkcm/holdings-portal/internal/storage/memory"
	"github.com/openkcm/holdings-portal/internal/tokenstore"
	"github.com/openkcm/holdings-portal/internal/ui"
)

const (
	deviceID = "0123456789abcdefghijABCDEFGHIJ-x"
	tabID    = "xyzXYZ0123456789abcdefghijABCDEF"
)

var testBrowser = browser.Identity{DeviceID: deviceID, TabID: tabID}

type env struct {
	handler   http.Handler
	browsers  *browser.Browsers
	durable   *memory.Store
	transient *memory.Store
	backend   *httptest.Server
	idp       *httptest.Server

	mu            sync.Mutex
	tokenRequests []url.Values
	backendPaths  []string
	backendAuth   []string
}

func newEnv(t *testing.T, backend http.HandlerFunc) *env {
	t.Helper()

	e := &env{
		durable:   memory.New(time.Minute),
		transient: memory.New(time.Minute),
	}

	e.idp = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		e.mu.Lock()
		e.tokenRequests = append(e.tokenRequests, r.PostForm)
		e.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id_token":     "id-token",
			"access_token": "access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(e.idp.Close)

	e.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		e.backendPaths = append(e.backendPaths, r.URL.RequestURI())
		e.backendAuth = append(e.backendAuth, r.Header.Get("Authorization"))
		e.mu.Unlock()

		backend(w, r)
	}))
	t.Cleanup(e.backend.Close)

	cfg := &config.Config{
		Identity: config.Identity{
			Domain:      e.idp.URL,
			ClientID:    "client-id",
			RedirectURI: "http://portal.test/auth/callback",
			LogoutURI:   "http://portal.test/",
		},
		API: config.API{BaseURL: e.backend.URL},
	}
	cfg.ApplyDefaults()

	authManager, err := auth.NewManager(&cfg.Identity, "", e.idp.Client())
	require.NoError(t, err)

	e.browsers = browser.New(e.durable, e.transient, cfg.Cookies)

	h, err := ui.NewHandler(authManager, e.browsers, cfg.API.BaseURL, e.backend.Client())
	require.NoError(t, err)
	e.handler = h.Routes()

	return e
}

func (e *env) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.AddCookie(&http.Cookie{Name: config.DefaultDeviceCookieName, Value: testBrowser.DeviceID})
	req.AddCookie(&http.Cookie{Name: config.DefaultTabCookieName, Value: testBrowser.TabID})

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	return rec
}

func (e *env) tokens() *tokenstore.Store {
	return e.browsers.Tokens(testBrowser)
}

func (e *env) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, e.tokens().Save(t.Context(), "id-token", "access-token", time.Hour))
}

func (e *env) setExpiry(t *testing.T, at time.Time) {
	t.Helper()

	ctx := t.Context()
	local := "local:" + testBrowser.DeviceID + ":"
	require.NoError(t, e.durable.Set(ctx, local+tokenstore.KeyIDToken, "id-token", 0))
	require.NoError(t, e.durable.Set(ctx, local+tokenstore.KeyExpiresAt, strconv.FormatInt(at.UnixMilli(), 10), 0))
}

func (e *env) requests() ([]url.Values, []string, []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]url.Values(nil), e.tokenRequests...),
		append([]string(nil), e.backendPaths...),
		append([]string(nil), e.backendAuth...)
}

func jsonHandler(routes map[string]func(w http.ResponseWriter)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		route, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		route(w)
	}
}

func respond(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}
