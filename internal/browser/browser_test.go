package browser_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/holdings-portal/internal/browser"
	"github.com/openkcm/holdings-portal/internal/config"
	"github.com/openkcm/holdings-portal/internal/pkce"
	"github.com/openkcm/holdings-portal/internal/storage/memory"
	"github.com/openkcm/holdings-portal/internal/tokenstore"
)

const (
	deviceID = "0123456789abcdefghijABCDEFGHIJ-x"
	tabID    = "xyzXYZ0123456789abcdefghijABCDEF"
)

func testCookies() config.Cookies {
	cfg := &config.Config{}
	cfg.ApplyDefaults()

	return cfg.Cookies
}

func serve(t *testing.T, b *browser.Browsers, req *http.Request) (*httptest.ResponseRecorder, browser.Identity, *tokenstore.Store) {
	t.Helper()

	var id browser.Identity
	var tokens *tokenstore.Store
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		var err error
		id, err = browser.IdentityFromContext(r.Context())
		require.NoError(t, err)

		tokens, err = browser.TokensFromContext(r.Context())
		require.NoError(t, err)
	})

	rec := httptest.NewRecorder()
	b.Middleware(next).ServeHTTP(rec, req)

	return rec, id, tokens
}

func TestMiddleware_NewBrowser(t *testing.T) {
	b := browser.New(memory.New(time.Minute), memory.New(time.Minute), testCookies())

	rec, id, tokens := serve(t, b, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, pkce.ValidBrowserID(id.DeviceID))
	assert.True(t, pkce.ValidBrowserID(id.TabID))
	assert.NotEqual(t, id.DeviceID, id.TabID)
	assert.NotNil(t, tokens)

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}

	require.Contains(t, cookies, config.DefaultDeviceCookieName)
	require.Contains(t, cookies, config.DefaultTabCookieName)
	assert.Equal(t, id.DeviceID, cookies[config.DefaultDeviceCookieName].Value)
	assert.Positive(t, cookies[config.DefaultDeviceCookieName].MaxAge)
	assert.Equal(t, id.TabID, cookies[config.DefaultTabCookieName].Value)
	assert.Zero(t, cookies[config.DefaultTabCookieName].MaxAge)
}

func TestMiddleware_KnownBrowser(t *testing.T) {
	b := browser.New(memory.New(time.Minute), memory.New(time.Minute), testCookies())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: config.DefaultDeviceCookieName, Value: deviceID})
	req.AddCookie(&http.Cookie{Name: config.DefaultTabCookieName, Value: tabID})

	rec, id, _ := serve(t, b, req)

	assert.Equal(t, browser.Identity{DeviceID: deviceID, TabID: tabID}, id)
	assert.Empty(t, rec.Result().Cookies(), "known ids are not re-issued")
}

func TestMiddleware_MalformedID(t *testing.T) {
	b := browser.New(memory.New(time.Minute), memory.New(time.Minute), testCookies())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: config.DefaultDeviceCookieName, Value: "../../etc"})
	req.AddCookie(&http.Cookie{Name: config.DefaultTabCookieName, Value: tabID})

	rec, id, _ := serve(t, b, req)

	assert.NotEqual(t, "../../etc", id.DeviceID)
	assert.True(t, pkce.ValidBrowserID(id.DeviceID))
	assert.Equal(t, tabID, id.TabID)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, config.DefaultDeviceCookieName, rec.Result().Cookies()[0].Name)
}

func TestTokens_Scopes(t *testing.T) {
	ctx := t.Context()
	durable := memory.New(time.Minute)
	transient := memory.New(time.Minute)
	b := browser.New(durable, transient, testCookies())

	tokens := b.Tokens(browser.Identity{DeviceID: deviceID, TabID: tabID})
	require.NoError(t, tokens.Save(ctx, "id-token", "access-token", time.Hour))
	require.NoError(t, tokens.SavePKCE(ctx, tokenstore.PKCE{State: "state", Verifier: "verifier"}))

	v, err := durable.Get(ctx, "local:"+deviceID+":id_token")
	require.NoError(t, err)
	assert.Equal(t, "id-token", v)

	v, err = transient.Get(ctx, "session:"+tabID+":oauth_state")
	require.NoError(t, err)
	assert.Equal(t, "state", v)

	t.Run("another tab shares the tokens but not the pkce state", func(t *testing.T) {
		other := b.Tokens(browser.Identity{DeviceID: deviceID, TabID: "other-tab"})
		assert.True(t, other.IsValid(ctx))
		assert.Equal(t, tokenstore.PKCE{}, other.PKCE(ctx))
	})

	t.Run("another device shares nothing", func(t *testing.T) {
		other := b.Tokens(browser.Identity{DeviceID: "other-device", TabID: tabID + "x"})
		assert.False(t, other.IsValid(ctx))
	})
}

func TestFromContext_Missing(t *testing.T) {
	_, err := browser.IdentityFromContext(t.Context())
	assert.Error(t, err)

	_, err = browser.TokensFromContext(t.Context())
	assert.Error(t, err)
}
