package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/geocoder89/labsmonitor/internal/domain/panel"
	"github.com/geocoder89/labsmonitor/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PanelsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPanelsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PanelsRepo {
	return &PanelsRepo{pool: pool, prom: prom}
}

func (r *PanelsRepo) List(ctx context.Context) ([]panel.Panel, error) {
	panels := []panel.Panel{}

	err := r.prom.ObserveDB("panels.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, name, description, tests, created_at FROM test_panels ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				p     panel.Panel
				tests []byte
			)
			if err := rows.Scan(&p.ID, &p.Name, &p.Description, &tests, &p.CreatedAt); err != nil {
				return err
			}
			if err := json.Unmarshal(tests, &p.Tests); err != nil {
				return fmt.Errorf("decode tests for panel %s: %w", p.Name, err)
			}
			panels = append(panels, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return panels, nil
}
