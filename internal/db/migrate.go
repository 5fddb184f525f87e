package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/geocoder89/labsmonitor/internal/db/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	MigrateUp     = "up"
	MigrateDown   = "down"
	MigrateStatus = "status"
)

// seams so tests can run without a database
var (
	gooseUp     = goose.UpContext
	gooseDown   = goose.DownContext
	gooseStatus = goose.StatusContext
)

// Migrate runs the embedded goose migrations over the pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool, direction string) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	return migrate(ctx, sqlDB, direction)
}

func migrate(ctx context.Context, sqlDB *sql.DB, direction string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	var err error
	switch direction {
	case MigrateUp:
		err = gooseUp(ctx, sqlDB, ".")
	case MigrateDown:
		err = gooseDown(ctx, sqlDB, ".")
	case MigrateStatus:
		err = gooseStatus(ctx, sqlDB, ".")
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	return nil
}
