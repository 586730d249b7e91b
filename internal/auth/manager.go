// Package auth implements the OAuth2 authorization code flow with PKCE
// against the identity provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/holdings-portal/internal/config"
	"github.com/openkcm/holdings-portal/internal/navigation"
	"github.com/openkcm/holdings-portal/internal/pkce"
	"github.com/openkcm/holdings-portal/internal/serviceerr"
	"github.com/openkcm/holdings-portal/internal/tokenstore"
)

var Scopes = []string{"openid", "email", "profile"}

const (
	authorizePath = "/oauth2/authorize"
	tokenPath     = "/oauth2/token"
	logoutPath    = "/logout"
)

// Tokens is the per-browser token storage the manager operates on.
type Tokens interface {
	Save(ctx context.Context, idToken, accessToken string, expiresIn time.Duration) error
	Clear(ctx context.Context) error
	IDToken(ctx context.Context) string
	AccessToken(ctx context.Context) string
	IsValid(ctx context.Context) bool

	SavePKCE(ctx context.Context, p tokenstore.PKCE) error
	PKCE(ctx context.Context) tokenstore.PKCE
	ClearPKCE(ctx context.Context) error
}

var _ Tokens = (*tokenstore.Store)(nil)

type Manager struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	pkce       pkce.Source

	baseURL   string
	clientID  string
	logoutURI string
}

// NewManager creates a manager for the configured identity provider. The
// httpClient is used for the token exchange.
func NewManager(cfg *config.Identity, clientSecret string, httpClient *http.Client) (*Manager, error) {
	baseURL, err := IdentityBaseURL(cfg.Domain)
	if err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   baseURL + authorizePath,
				TokenURL:  baseURL + tokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: cfg.RedirectURI,
			Scopes:      Scopes,
		},
		httpClient: httpClient,
		baseURL:    baseURL,
		clientID:   cfg.ClientID,
		logoutURI:  cfg.LogoutURI,
	}, nil
}

// IdentityBaseURL turns the configured identity domain into a base URL
// without a trailing slash. Bare host names get the https scheme.
func IdentityBaseURL(domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", errors.New("identity domain is empty")
	}

	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}

	u, err := url.Parse(domain)
	if err != nil {
		return "", fmt.Errorf("parsing identity domain: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("identity domain %q has no host", domain)
	}

	return strings.TrimSuffix(u.String(), "/"), nil
}

// Login generates fresh PKCE material, keeps it in the transient storage and
// navigates to the authorization endpoint.
func (m *Manager) Login(ctx context.Context, tokens Tokens, nav navigation.Navigator) error {
	state, err := m.pkce.State()
	if err != nil {
		return fmt.Errorf("generating state: %w", err)
	}

	challenge, err := m.pkce.PKCE()
	if err != nil {
		return fmt.Errorf("generating pkce: %w", err)
	}

	if err := tokens.SavePKCE(ctx, tokenstore.PKCE{State: state, Verifier: challenge.Verifier}); err != nil {
		return fmt.Errorf("storing pkce state: %w", err)
	}

	slogctx.Debug(ctx, "Redirecting to the identity provider")
	nav.Navigate(m.AuthCodeURL(state, challenge.Challenge))

	return nil
}

// AuthCodeURL returns the authorization endpoint URL for the given state
// and S256 challenge.
func (m *Manager) AuthCodeURL(state, challenge string) string {
	return m.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", pkce.MethodS256),
		oauth2.SetAuthURLParam("code_challenge", challenge),
	)
}

// HandleCallback completes the login. It returns false if query does not
// carry an authorization code, so it is safe to call on every page load.
func (m *Manager) HandleCallback(ctx context.Context, tokens Tokens, query url.Values) (bool, error) {
	if errCode := query.Get("error"); errCode != "" {
		slogctx.Warn(ctx, "Identity provider returned an error",
			"error_code", errCode,
			"error_description", query.Get("error_description"))
	}

	code := query.Get("code")
	if code == "" {
		return false, nil
	}

	pending := tokens.PKCE(ctx)
	state := query.Get("state")
	if state == "" || pending.State == "" || state != pending.State {
		slogctx.Warn(ctx, "Callback state does not match the pending login")
		return false, serviceerr.ErrInvalidState
	}

	tok, err := m.exchange(ctx, code, pending.Verifier)
	if err != nil {
		return false, err
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		slogctx.Warn(ctx, "Token response carries no id_token")
		return false, serviceerr.ErrMissingIDToken
	}

	if err := tokens.Save(ctx, idToken, tok.AccessToken, expiresIn(tok)); err != nil {
		return false, fmt.Errorf("storing tokens: %w", err)
	}

	if err := tokens.ClearPKCE(ctx); err != nil {
		slogctx.Warn(ctx, "Could not clear the pkce state", "error", err)
	}

	slogctx.Info(ctx, "Exchanged the auth code for tokens")

	return true, nil
}

func (m *Manager) exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := m.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			exErr := &serviceerr.TokenExchangeError{
				ErrorCode:        rErr.ErrorCode,
				ErrorDescription: rErr.ErrorDescription,
			}
			if rErr.Response != nil {
				exErr.StatusCode = rErr.Response.StatusCode
			}

			slogctx.Warn(ctx, "Token exchange rejected",
				"status", exErr.StatusCode,
				"error_code", exErr.ErrorCode)

			return nil, exErr
		}

		return nil, fmt.Errorf("exchanging code for tokens: %w", err)
	}

	return tok, nil
}

func expiresIn(tok *oauth2.Token) time.Duration {
	if tok.ExpiresIn > 0 {
		return time.Duration(tok.ExpiresIn) * time.Second
	}

	if !tok.Expiry.IsZero() {
		return time.Until(tok.Expiry)
	}

	return 0
}

// Logout clears the stored tokens and navigates to the provider's logout
// endpoint.
func (m *Manager) Logout(ctx context.Context, tokens Tokens, nav navigation.Navigator) error {
	if err := tokens.Clear(ctx); err != nil {
		return fmt.Errorf("clearing tokens: %w", err)
	}

	slogctx.Info(ctx, "Logged out")
	nav.Navigate(m.LogoutURL())

	return nil
}

// LogoutURL returns the provider's logout endpoint with the client id and
// the post-logout redirect target.
func (m *Manager) LogoutURL() string {
	q := url.Values{}
	q.Set("client_id", m.clientID)
	q.Set("logout_uri", m.logoutURI)

	return m.baseURL + logoutPath + "?" + q.Encode()
}

func (m *Manager) IsAuthed(ctx context.Context, tokens Tokens) bool {
	return tokens.IsValid(ctx)
}
