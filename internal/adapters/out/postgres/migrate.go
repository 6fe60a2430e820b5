package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"lastmile/internal/adapters/out/postgres/migrations"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending migration to the database behind dsn.
// It opens its own lib/pq connection and closes it before returning.
//
// Example:
//
//	if err := postgres.Migrate(ctx, cfg.DSN()); err != nil {
//	    return fmt.Errorf("migrate: %w", err)
//	}
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open db error: %w", err)
	}
	defer db.Close()

	if err = db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db error: %w", err)
	}

	goose.SetBaseFS(migrations.FS)
	if err = goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect error: %w", err)
	}

	if err = goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up error: %w", err)
	}
	return nil
}
