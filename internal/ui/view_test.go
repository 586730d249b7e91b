package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/holdings-portal/internal/apiclient"
	"github.com/openkcm/holdings-portal/internal/serviceerr"
)

type fakeAPI struct {
	health      apiclient.HealthResponse
	healthErr   error
	holdings    apiclient.HoldingsResponse
	holdingsErr error
	refresh     bool
}

func (f *fakeAPI) Health(context.Context) (apiclient.HealthResponse, error) {
	return f.health, f.healthErr
}

func (f *fakeAPI) Holdings(_ context.Context, refresh bool) (apiclient.HoldingsResponse, error) {
	f.refresh = refresh
	return f.holdings, f.holdingsErr
}

func TestLoadView(t *testing.T) {
	holdings := apiclient.HoldingsResponse{
		Cached:    false,
		Source:    "dynamo",
		FetchedAt: 1700000000,
		Count:     1,
		Items:     []apiclient.HoldingItem{{Currency: "USD", Balance: 1}},
	}

	tests := []struct {
		name       string
		api        *fakeAPI
		wantHealth string
		wantError  string
		wantData   bool
	}{
		{
			name:       "All good",
			api:        &fakeAPI{health: apiclient.HealthResponse{OK: true}, holdings: holdings},
			wantHealth: HealthOK,
			wantData:   true,
		},
		{
			name:       "Health degraded",
			api:        &fakeAPI{health: apiclient.HealthResponse{OK: false}, holdings: holdings},
			wantHealth: HealthDegraded,
			wantData:   true,
		},
		{
			name:       "Health unreachable",
			api:        &fakeAPI{healthErr: errors.New("dial tcp: connection refused"), holdings: holdings},
			wantHealth: HealthUnknown,
			wantData:   true,
		},
		{
			name:       "Unauthorized",
			api:        &fakeAPI{health: apiclient.HealthResponse{OK: true}, holdingsErr: &serviceerr.UnauthorizedError{StatusCode: 401}},
			wantHealth: HealthOK,
			wantError:  "unauthorized (401)",
		},
		{
			name:       "HTTP error",
			api:        &fakeAPI{health: apiclient.HealthResponse{OK: true}, holdingsErr: &apiclient.HTTPError{StatusCode: 502, Body: "Bad Gateway"}},
			wantHealth: HealthOK,
			wantError:  "502 Bad Gateway",
		},
		{
			name:       "Transport failure",
			api:        &fakeAPI{healthErr: errors.New("boom"), holdingsErr: errors.New("dial tcp: connection refused")},
			wantHealth: HealthUnknown,
			wantError:  "Failed to load holdings.",
		},
		{
			name:       "Cancelled",
			api:        &fakeAPI{healthErr: context.Canceled, holdingsErr: context.Canceled},
			wantHealth: HealthUnknown,
			wantError:  "Request cancelled.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := loadView(t.Context(), tt.api, true)

			assert.Equal(t, tt.wantHealth, p.Health)
			assert.Equal(t, tt.wantError, p.Error)
			assert.Equal(t, tt.wantData, p.Holdings != nil)
			assert.True(t, tt.api.refresh)
		})
	}
}

func TestPageFormatting(t *testing.T) {
	var empty page
	assert.Equal(t, "—", empty.CacheBadge())
	assert.Equal(t, "—", empty.FetchedAt())
	assert.Equal(t, "—", empty.Count())
	assert.Equal(t, "—", empty.Source())

	p := page{Holdings: &apiclient.HoldingsResponse{Cached: true, Source: "dynamo", FetchedAt: 1700000000, Count: 2}}
	assert.Equal(t, "cached", p.CacheBadge())
	assert.Equal(t, "2023-11-14 22:13:20 UTC", p.FetchedAt())
	assert.Equal(t, "2", p.Count())
	assert.Equal(t, "dynamo", p.Source())

	p.Holdings.Cached = false
	assert.Equal(t, "fresh", p.CacheBadge())
}

func TestFormatBalance(t *testing.T) {
	assert.Equal(t, "100.5", formatBalance(100.5))
	assert.Equal(t, "40", formatBalance(40))
	assert.Equal(t, "0.00012345", formatBalance(0.00012345))
	assert.Equal(t, "-3", formatBalance(-3))
}

func TestInflight(t *testing.T) {
	f := newInflight()

	first, doneFirst := f.start(t.Context(), "device")
	require.NoError(t, first.Err())

	second, doneSecond := f.start(t.Context(), "device")
	assert.ErrorIs(t, first.Err(), context.Canceled, "a newer load cancels the older one")
	require.NoError(t, second.Err())

	other, doneOther := f.start(t.Context(), "other-device")
	require.NoError(t, other.Err())
	assert.Equal(t, 2, f.len())

	doneFirst()
	assert.NoError(t, second.Err(), "finishing a superseded load keeps the newer one")
	assert.Equal(t, 2, f.len())

	doneSecond()
	assert.ErrorIs(t, second.Err(), context.Canceled)
	assert.Equal(t, 1, f.len())

	doneOther()
	assert.Zero(t, f.len())
}

func TestInflight_ParentCancel(t *testing.T) {
	f := newInflight()

	parent, cancel := context.WithCancel(t.Context())
	ctx, done := f.start(parent, "device")
	defer done()

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("load was not cancelled with its request")
	}
}
