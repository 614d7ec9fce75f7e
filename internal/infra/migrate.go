package infra

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/musicmoon/marketplace/internal/infra/migrations"
)

// MigratePostgres applies the embedded document store migrations.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	results, err := migrate(ctx, goose.DialectPostgres, db, migrations.Postgres, "postgres")
	if err != nil {
		return err
	}
	for _, r := range results {
		logger.Info("migration applied", slog.String("source", r.Source.Path), slog.Duration("duration", r.Duration))
	}
	return nil
}

// MigrateSQLite applies the embedded local session migrations.
func MigrateSQLite(ctx context.Context, db *sql.DB) error {
	_, err := migrate(ctx, goose.DialectSQLite3, db, migrations.SQLite, "sqlite")
	return err
}

func migrate(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS, dir string) ([]*goose.MigrationResult, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply %s migrations: %w", dir, err)
	}
	return results, nil
}
