package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/holdings-portal/internal/config"
)

// createHTTPServer creates the portal http server using the given config
func createHTTPServer(_ context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(newTraceMiddleware(cfg))
	r.Mount("/", handler)

	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: r,
	}
}

// StartHTTPServer serves handler until ctx is done and then shuts the server down.
func StartHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	server := createHTTPServer(ctx, cfg, handler)

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	listener, err := listen(ctx, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}

// listen binds the address. An address in the form network://address selects
// the network, e.g. unix:///tmp/portal.sock; tcp is used otherwise.
func listen(ctx context.Context, addr string) (net.Listener, error) {
	network := "tcp"
	if before, after, ok := strings.Cut(addr, "://"); ok && before != "" && after != "" {
		network, addr = before, after
	}

	return new(net.ListenConfig).Listen(ctx, network, addr)
}
