package business

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/XSAM/otelsql"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"

	// Register pgx driver
	_ "github.com/jackc/pgx/v5/stdlib"

	slogctx "github.com/veqryn/slog-context"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/openkcm/holdings-portal/internal/config"
	migrations "github.com/openkcm/holdings-portal/sql"
)

const fileSourcePrefix = "file://"

// MigrateMain applies the browser storage schema to the configured database
func MigrateMain(ctx context.Context, cfg *config.Config) error {
	const dialect = "pgx"
	dbSystemName := semconv.DBSystemNamePostgreSQL

	source, err := migrationSource(cfg.Migrate.Source)
	if err != nil {
		return err
	}

	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return fmt.Errorf("making connection string from config: %w", err)
	}

	db, err := otelsql.Open(dialect, connStr, otelsql.WithAttributes(dbSystemName))
	if err != nil {
		return oops.In("main").Wrapf(err, "opening DB connection")
	}
	defer db.Close()

	reg, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(dbSystemName))
	if err != nil {
		return fmt.Errorf("registering db stats metrics: %w", err)
	}

	defer func() {
		err := reg.Unregister()
		if err != nil {
			slogctx.Error(ctx, "failed to unregister db stats metrics", "error", err)
		}
	}()

	goose.SetBaseFS(source)

	err = goose.SetDialect(dialect)
	if err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	err = goose.UpContext(ctx, db, ".")
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	slogctx.Info(ctx, "Browser storage schema is up to date")

	return nil
}

// migrationSource resolves the configured source. An empty source selects the
// migrations embedded in the binary, file://<dir> a directory on disk.
func migrationSource(source string) (fs.FS, error) {
	if source == "" {
		return migrations.FS, nil
	}

	dir, ok := strings.CutPrefix(source, fileSourcePrefix)
	if !ok || dir == "" {
		return nil, fmt.Errorf("unsupported migration source %q", source)
	}

	return os.DirFS(dir), nil
}
