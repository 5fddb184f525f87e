package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/labsmonitor/internal/config"
	"github.com/geocoder89/labsmonitor/internal/domain/record"
	"github.com/geocoder89/labsmonitor/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type RecordCreator interface {
	Create(ctx context.Context, userID string, draft record.Draft) (record.TestRecord, error)
	CreateBatch(ctx context.Context, userID string, drafts []record.Draft) ([]record.TestRecord, error)
}

type RecordReader interface {
	List(ctx context.Context, userID string) ([]record.TestRecord, error)
	ListByCategory(ctx context.Context, userID, category string) ([]record.TestRecord, error)
	Categories(ctx context.Context, userID string) ([]string, error)
}

type RecordService interface {
	RecordCreator
	RecordReader
}

type RecordsHandler struct {
	svc     RecordService
	timeout time.Duration
}

func NewRecordsHandler(svc RecordService) *RecordsHandler {
	return &RecordsHandler{svc: svc, timeout: 5 * time.Second}
}

type BulkCreateRequest struct {
	Records []record.Draft `json:"records"`
}

type recordsResponse struct {
	Records []record.TestRecord `json:"records"`
	Count   int                 `json:"count"`
}

func newRecordsResponse(recs []record.TestRecord) recordsResponse {
	if recs == nil {
		recs = []record.TestRecord{}
	}
	return recordsResponse{Records: recs, Count: len(recs)}
}

func (h *RecordsHandler) Create(ctx *gin.Context) {
	userID, ok := ownerID(ctx)
	if !ok {
		return
	}

	var draft record.Draft
	if !BindJSON(ctx, &draft) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	rec, err := h.svc.Create(cctx, userID, draft)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, rec)
}

func (h *RecordsHandler) CreateBulk(ctx *gin.Context) {
	userID, ok := ownerID(ctx)
	if !ok {
		return
	}

	var req BulkCreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	recs, err := h.svc.CreateBatch(cctx, userID, req.Records)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, newRecordsResponse(recs))
}

func (h *RecordsHandler) List(ctx *gin.Context) {
	userID, ok := ownerID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	recs, err := h.svc.List(cctx, userID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, newRecordsResponse(recs))
}

func (h *RecordsHandler) Categories(ctx *gin.Context) {
	userID, ok := ownerID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	cats, err := h.svc.Categories(cctx, userID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}

	ctx.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (h *RecordsHandler) ListByCategory(ctx *gin.Context) {
	userID, ok := ownerID(ctx)
	if !ok {
		return
	}

	category := strings.TrimSpace(ctx.Param("category"))
	if category == "" {
		RespondBadRequest(ctx, "category is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	recs, err := h.svc.ListByCategory(cctx, userID, category)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	resp := newRecordsResponse(recs)
	ctx.JSON(http.StatusOK, gin.H{
		"category": category,
		"records":  resp.Records,
		"count":    resp.Count,
	})
}

func ownerID(ctx *gin.Context) (string, bool) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing user in context")
		return "", false
	}
	return userID, true
}
