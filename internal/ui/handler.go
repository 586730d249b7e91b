// Package ui serves the holdings portal pages.
package ui

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/holdings-portal/internal/apiclient"
	"github.com/openkcm/holdings-portal/internal/auth"
	"github.com/openkcm/holdings-portal/internal/browser"
	"github.com/openkcm/holdings-portal/internal/navigation"
	"github.com/openkcm/holdings-portal/internal/tokenstore"
)

const (
	LoginPath    = "/login"
	CallbackPath = "/auth/callback"
	LogoutPath   = "/logout"

	ViewParam = "view"
)

type Handler struct {
	auth     *auth.Manager
	browsers *browser.Browsers

	apiBase    string
	httpClient *http.Client

	tmpl     *templates
	inflight *inflight
}

// NewHandler creates the page handler. The apiClient is used for the calls
// to the holdings backend.
func NewHandler(authManager *auth.Manager, browsers *browser.Browsers, apiBase string, apiClient *http.Client) (*Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Handler{
		auth:       authManager,
		browsers:   browsers,
		apiBase:    apiBase,
		httpClient: apiClient,
		tmpl:       tmpl,
		inflight:   newInflight(),
	}, nil
}

// Routes returns the router serving every page of the portal.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.browsers.Middleware)

	r.Get(LoginPath, h.login)
	r.Get(CallbackPath, h.callback)
	r.Get(LogoutPath, h.logout)
	r.Get("/*", h.holdings)

	return r
}

func (h *Handler) tokens(w http.ResponseWriter, r *http.Request) (*tokenstore.Store, bool) {
	tokens, err := browser.TokensFromContext(r.Context())
	if err != nil {
		slogctx.Error(r.Context(), "Request without browser identity", "error", err)
		h.tmpl.renderError(w, r, http.StatusInternalServerError, "Your browser could not be identified.")

		return nil, false
	}

	return tokens, true
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokens, ok := h.tokens(w, r)
	if !ok {
		return
	}

	nav := &navigation.Recorder{}
	if err := h.auth.Login(ctx, tokens, nav); err != nil {
		slogctx.Error(ctx, "Failed to start the login", "error", err)
		h.tmpl.renderError(w, r, http.StatusInternalServerError, "The login could not be started.")

		return
	}

	enact(w, r, nav, "/")
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokens, ok := h.tokens(w, r)
	if !ok {
		return
	}

	if _, err := h.auth.HandleCallback(ctx, tokens, r.URL.Query()); err != nil {
		slogctx.Warn(ctx, "Login callback failed", "error", err)
		http.Redirect(w, r, LoginPath, http.StatusFound)

		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokens, ok := h.tokens(w, r)
	if !ok {
		return
	}

	nav := &navigation.Recorder{}
	if err := h.auth.Logout(ctx, tokens, nav); err != nil {
		slogctx.Error(ctx, "Failed to log out", "error", err)
		h.tmpl.renderError(w, r, http.StatusInternalServerError, "The logout could not be completed.")

		return
	}

	enact(w, r, nav, "/")
}

func (h *Handler) holdings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokens, ok := h.tokens(w, r)
	if !ok {
		return
	}

	if !h.auth.IsAuthed(ctx, tokens) {
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	id, _ := browser.IdentityFromContext(ctx)
	view := viewID(r)
	loadCtx, done := h.inflight.start(ctx, id.DeviceID+":"+view)
	defer done()

	nav := &navigation.Recorder{}
	client := apiclient.New(h.apiBase, h.httpClient, tokens, nav)

	p := loadView(loadCtx, client, r.URL.Query().Get("refresh") == "1")
	p.Authed = true
	p.APIBase = h.apiBase
	p.Email = h.email(ctx, tokens)
	p.View = view

	if target, navigated := nav.Target(); navigated {
		p.LoginRedirect = target
	}

	if loadCtx.Err() != nil {
		slogctx.Debug(ctx, "Page load was cancelled before it was rendered", "view", view)
		return
	}

	h.tmpl.render(w, r, http.StatusOK, h.tmpl.holdings, p)
}

// viewID names the page a load belongs to. The refresh link carries it, so
// a refresh supersedes the load of the same page only.
func viewID(r *http.Request) string {
	if v, err := uuid.Parse(r.URL.Query().Get(ViewParam)); err == nil {
		return v.String()
	}

	return uuid.NewString()
}

func (h *Handler) email(ctx context.Context, tokens auth.Tokens) string {
	claims, err := h.auth.Claims(ctx, tokens)
	if err != nil {
		slogctx.Debug(ctx, "Could not read the id token claims", "error", err)
		return ""
	}

	return claims.Email
}

// enact turns a recorded navigation into a redirect.
func enact(w http.ResponseWriter, r *http.Request, nav *navigation.Recorder, fallback string) {
	target, ok := nav.Target()
	if !ok {
		target = fallback
	}

	http.Redirect(w, r, target, http.StatusFound)
}
