package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/labsmonitor/internal/domain/panel"
	"github.com/geocoder89/labsmonitor/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type fakePanels struct {
	panels []panel.Panel
	err    error
}

func (f fakePanels) List(ctx context.Context) ([]panel.Panel, error) {
	return f.panels, f.err
}

func TestPanelsHandler_ETag(t *testing.T) {
	r := gin.New()
	r.GET("/api/test-panels", handlers.NewPanelsHandler(fakePanels{panels: panel.Defaults()}).List)

	w := doJSON(r, http.MethodGet, "/api/test-panels", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected an ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/test-panels", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("got %d, want 304", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("304 should have no body")
	}
}

func TestPanelsHandler_Error(t *testing.T) {
	r := gin.New()
	r.GET("/api/test-panels", handlers.NewPanelsHandler(fakePanels{err: errors.New("db down")}).List)

	if w := doJSON(r, http.MethodGet, "/api/test-panels", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", w.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	healthy := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"postgres": func(ctx context.Context) error { return nil },
	}, nil)
	broken := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"postgres": func(ctx context.Context) error { return errors.New("connection refused") },
	}, nil)

	r := gin.New()
	r.GET("/healthz", broken.Healthz)
	r.GET("/readyz", healthy.Readyz)
	r.GET("/readyz-broken", broken.Readyz)

	if w := doJSON(r, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz: got %d", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/readyz", ""); w.Code != http.StatusOK {
		t.Fatalf("readyz: got %d", w.Code)
	}
	w := doJSON(r, http.MethodGet, "/readyz-broken", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz broken: got %d", w.Code)
	}

	draining := handlers.NewHealthHandler(nil, func() bool { return true })
	r.GET("/readyz-draining", draining.Readyz)
	if w := doJSON(r, http.MethodGet, "/readyz-draining", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz draining: got %d", w.Code)
	}
}

func TestPanelsHandler_WeakETagAndCachePolicy(t *testing.T) {
	r := gin.New()
	r.GET("/api/test-panels", handlers.NewPanelsHandler(fakePanels{panels: panel.Defaults()}).List)

	w := doJSON(r, http.MethodGet, "/api/test-panels", "")
	if got := w.Header().Get("Cache-Control"); got != "no-cache" {
		t.Fatalf("Cache-Control = %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/test-panels", nil)
	req.Header.Set("If-None-Match", `"stale", W/`+w.Header().Get("ETag"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("got %d, want 304", w.Code)
	}
}
