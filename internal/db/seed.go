package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/labsmonitor/internal/config"
	"github.com/geocoder89/labsmonitor/internal/domain/panel"
	"github.com/geocoder89/labsmonitor/internal/domain/user"
	"github.com/geocoder89/labsmonitor/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdminUser creates a verified admin account when ADMIN_EMAIL and
// ADMIN_PASSWORD are set and the address is not taken yet.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	email := user.NormalizeEmail(cfg.AdminEmail)

	var dummy string
	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&dummy)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, role,
		                    is_active, email_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE, TRUE, $7, $7)
		 ON CONFLICT (email) DO NOTHING`,
		uuid.NewString(), email, hash, cfg.AdminFirstName, cfg.AdminLastName, string(user.RoleAdmin), now,
	)
	return err
}

// SeedPanels inserts the default panel catalog, leaving existing names alone.
func SeedPanels(ctx context.Context, pool *pgxpool.Pool) error {
	for _, p := range panel.Defaults() {
		tests, err := json.Marshal(p.Tests)
		if err != nil {
			return fmt.Errorf("encode panel %s: %w", p.Name, err)
		}

		_, err = pool.Exec(ctx,
			`INSERT INTO test_panels (id, name, description, tests, created_at)
			 VALUES ($1, $2, $3, $4, now())
			 ON CONFLICT (name) DO NOTHING`,
			uuid.NewString(), p.Name, p.Description, tests,
		)
		if err != nil {
			return fmt.Errorf("seed panel %s: %w", p.Name, err)
		}
	}
	return nil
}
