package db

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/geocoder89/labsmonitor/internal/db/migrations"
	"github.com/pressly/goose/v3"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		t.Fatalf("read embedded dir: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(entries))
	}

	for _, e := range entries {
		b, err := fs.ReadFile(migrations.FS, e.Name())
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		body := string(b)
		if !strings.Contains(body, "-- +goose Up") || !strings.Contains(body, "-- +goose Down") {
			t.Fatalf("%s is missing goose annotations", e.Name())
		}
	}
}

func stubGoose(t *testing.T) *[]string {
	t.Helper()

	var calls []string
	origUp, origDown, origStatus := gooseUp, gooseDown, gooseStatus
	t.Cleanup(func() { gooseUp, gooseDown, gooseStatus = origUp, origDown, origStatus })

	gooseUp = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		calls = append(calls, "up:"+dir)
		return nil
	}
	gooseDown = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		calls = append(calls, "down:"+dir)
		return errors.New("no migration to roll back")
	}
	gooseStatus = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		calls = append(calls, "status:"+dir)
		return nil
	}
	return &calls
}

func TestMigrate_Directions(t *testing.T) {
	calls := stubGoose(t)
	ctx := context.Background()

	if err := migrate(ctx, nil, MigrateUp); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := migrate(ctx, nil, MigrateStatus); err != nil {
		t.Fatalf("status: %v", err)
	}
	if err := migrate(ctx, nil, MigrateDown); err == nil || !strings.Contains(err.Error(), "migrate down") {
		t.Fatalf("down error should be wrapped, got %v", err)
	}
	if err := migrate(ctx, nil, "sideways"); err == nil {
		t.Fatal("expected error for unknown direction")
	}

	got := strings.Join(*calls, ",")
	if got != "up:.,status:.,down:." {
		t.Fatalf("calls = %s", got)
	}
}
