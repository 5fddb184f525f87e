package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/labsmonitor/internal/domain/panel"
	"github.com/google/uuid"
)

type PanelsRepo struct {
	mu     sync.RWMutex
	panels []panel.Panel
	calls  int
}

// NewPanelsRepo starts with the default catalog.
func NewPanelsRepo() *PanelsRepo {
	now := time.Now().UTC()
	defaults := panel.Defaults()
	for i := range defaults {
		defaults[i].ID = uuid.NewString()
		defaults[i].CreatedAt = now
	}
	return &PanelsRepo{panels: defaults}
}

func (r *PanelsRepo) List(ctx context.Context) ([]panel.Panel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	out := make([]panel.Panel, len(r.panels))
	copy(out, r.panels)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Calls reports how many times List hit the store.
func (r *PanelsRepo) Calls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls
}
