package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/holdings-portal/internal/config"
	sqlstore "github.com/openkcm/holdings-portal/internal/storage/sql"
)

var (
	ErrNothingToHousekeep     = errors.New("no storage backend needs housekeeping")
	ErrInvalidCleanupInterval = errors.New("cleanup interval must be positive")
)

type expiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// HousekeeperMain purges expired browser storage rows from postgres
func HousekeeperMain(ctx context.Context, cfg *config.Config) error {
	if !cfg.Storage.Uses(config.StoragePostgres) {
		return ErrNothingToHousekeep
	}

	if cfg.Storage.CleanupInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCleanupInterval, cfg.Storage.CleanupInterval)
	}

	db, err := pgPoolFromConfig(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialise the storage: %w", err)
	}
	defer db.Close()

	return housekeep(ctx, sqlstore.NewStore(db), cfg.Storage.CleanupInterval)
}

func housekeep(ctx context.Context, store expiredDeleter, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidCleanupInterval
	}

	c := time.Tick(interval)
	for {
		purgeExpired(ctx, store)

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}

func purgeExpired(ctx context.Context, store expiredDeleter) {
	n, err := store.DeleteExpired(ctx)
	if err != nil {
		slogctx.Error(ctx, "Error during storage housekeeping", "error", err)
		return
	}

	slogctx.Info(ctx, "Purged expired browser storage", "count", n)
}
