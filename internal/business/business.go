package business

import (
	"context"
	"fmt"

	"github.com/openkcm/holdings-portal/internal/auth"
	"github.com/openkcm/holdings-portal/internal/browser"
	"github.com/openkcm/holdings-portal/internal/business/server"
	"github.com/openkcm/holdings-portal/internal/config"
	"github.com/openkcm/holdings-portal/internal/tokenstore"
	"github.com/openkcm/holdings-portal/internal/ui"
)

// Main starts the portal http server
func Main(ctx context.Context, cfg *config.Config) error {
	st, err := initStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the browser storage: %w", err)
	}
	defer st.close()

	handler, err := newPortalHandler(cfg, st)
	if err != nil {
		return err
	}

	return server.StartHTTPServer(ctx, cfg, handler.Routes())
}

func newPortalHandler(cfg *config.Config, st *stores) (*ui.Handler, error) {
	identityClient, clientSecret, err := loadHTTPClient(&cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("loading identity http client: %w", err)
	}

	authManager, err := auth.NewManager(&cfg.Identity, clientSecret, identityClient)
	if err != nil {
		return nil, fmt.Errorf("creating auth manager: %w", err)
	}

	browsers := browser.New(st.durable, st.transient, cfg.Cookies,
		tokenstore.WithTransientTTL(cfg.Storage.TransientTTL),
	)

	handler, err := ui.NewHandler(authManager, browsers, cfg.API.BaseURL, apiHTTPClient(&cfg.API))
	if err != nil {
		return nil, fmt.Errorf("creating portal handler: %w", err)
	}

	return handler, nil
}
