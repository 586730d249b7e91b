package ui

import (
	"context"
	"errors"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/holdings-portal/internal/apiclient"
	"github.com/openkcm/holdings-portal/internal/serviceerr"
)

const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthUnknown  = "unknown"
)

const placeholder = "—"

// page is the data rendered by the holdings template.
type page struct {
	Authed  bool
	Email   string
	APIBase string

	Health        string
	HealthVersion string

	Holdings *apiclient.HoldingsResponse
	Error    string

	// View identifies the page for the refresh link.
	View string

	// LoginRedirect makes the page navigate to the login entry point.
	LoginRedirect string
}

func (p page) CacheBadge() string {
	if p.Holdings == nil {
		return placeholder
	}
	if p.Holdings.Cached {
		return "cached"
	}

	return "fresh"
}

func (p page) FetchedAt() string {
	if p.Holdings == nil {
		return placeholder
	}

	return formatFetchedAt(p.Holdings.FetchedTime())
}

func (p page) Count() string {
	if p.Holdings == nil {
		return placeholder
	}

	return strconv.Itoa(p.Holdings.Count)
}

func (p page) Source() string {
	if p.Holdings == nil || p.Holdings.Source == "" {
		return placeholder
	}

	return p.Holdings.Source
}

func formatFetchedAt(t time.Time) string {
	return t.UTC().Format(time.DateTime) + " UTC"
}

func formatBalance(b float64) string {
	return strconv.FormatFloat(b, 'f', -1, 64)
}

// holdingsAPI is the part of the API client the view needs.
type holdingsAPI interface {
	Health(ctx context.Context) (apiclient.HealthResponse, error)
	Holdings(ctx context.Context, refresh bool) (apiclient.HoldingsResponse, error)
}

// loadView fetches health and holdings concurrently. A health failure only
// downgrades the status, a holdings failure is shown inline.
func loadView(ctx context.Context, api holdingsAPI, refresh bool) page {
	var p page
	var g errgroup.Group

	g.Go(func() error {
		health, err := api.Health(ctx)
		switch {
		case err != nil:
			slogctx.Debug(ctx, "Health check failed", "error", err)
			p.Health = HealthUnknown
		case !health.OK:
			p.Health = HealthDegraded
			p.HealthVersion = health.Version
		default:
			p.Health = HealthOK
			p.HealthVersion = health.Version
		}

		return nil
	})

	var holdingsErr error
	g.Go(func() error {
		holdings, err := api.Holdings(ctx, refresh)
		if err != nil {
			holdingsErr = err
			return nil
		}

		p.Holdings = &holdings

		return nil
	})

	_ = g.Wait()

	if holdingsErr != nil {
		p.Error = errorMessage(holdingsErr)
		switch {
		case errors.Is(holdingsErr, serviceerr.ErrUnauthorized):
			slogctx.Info(ctx, "Holdings request was not authorized")
		case errors.Is(holdingsErr, context.Canceled), errors.Is(holdingsErr, context.DeadlineExceeded):
			slogctx.Debug(ctx, "Holdings request was cancelled", "error", holdingsErr)
		default:
			slogctx.Warn(ctx, "Could not load holdings", "error", holdingsErr)
		}
	}

	return p
}

func errorMessage(err error) string {
	var httpErr *apiclient.HTTPError
	switch {
	case errors.Is(err, serviceerr.ErrUnauthorized):
		return err.Error()
	case errors.As(err, &httpErr):
		return httpErr.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Request cancelled."
	default:
		return "Failed to load holdings."
	}
}
