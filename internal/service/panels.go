package service

import (
	"context"

	"github.com/geocoder89/labsmonitor/internal/cache"
	"github.com/geocoder89/labsmonitor/internal/domain/panel"
)

type PanelStore interface {
	List(ctx context.Context) ([]panel.Panel, error)
}

const panelsCacheKey = "panels:list:v1"

// PanelService serves the catalog from a short lived cache; it only changes on deploy.
type PanelService struct {
	store PanelStore
	cache *cache.Cache[[]panel.Panel]
}

func NewPanelService(store PanelStore, c *cache.Cache[[]panel.Panel]) *PanelService {
	return &PanelService{store: store, cache: c}
}

func (s *PanelService) List(ctx context.Context) ([]panel.Panel, error) {
	if s.cache == nil {
		return s.store.List(ctx)
	}
	return s.cache.GetOrLoad(panelsCacheKey, func() ([]panel.Panel, error) {
		return s.store.List(ctx)
	})
}
