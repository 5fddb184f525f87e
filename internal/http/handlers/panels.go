package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/labsmonitor/internal/domain/panel"
	"github.com/gin-gonic/gin"
)

type PanelLister interface {
	List(ctx context.Context) ([]panel.Panel, error)
}

type PanelsHandler struct {
	panels PanelLister
}

func NewPanelsHandler(panels PanelLister) *PanelsHandler {
	return &PanelsHandler{panels: panels}
}

// List serves the panel catalog. The catalog rarely changes so clients are
// expected to revalidate with If-None-Match.
func (h *PanelsHandler) List(ctx *gin.Context) {
	panels, err := h.panels.List(ctx.Request.Context())
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	if panels == nil {
		panels = []panel.Panel{}
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"panels": panels})
}
