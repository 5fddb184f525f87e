package service

import (
	"context"
	"strings"
	"time"

	"github.com/geocoder89/labsmonitor/internal/domain/record"
	"github.com/geocoder89/labsmonitor/internal/observability"
)

// RecordStore methods all take the owner id; the store filters by it.
type RecordStore interface {
	Create(ctx context.Context, userID string, rec record.TestRecord) (record.TestRecord, error)
	CreateBatch(ctx context.Context, userID string, recs []record.TestRecord) ([]record.TestRecord, error)
	ListByOwner(ctx context.Context, userID string) ([]record.TestRecord, error)
	ListByCategory(ctx context.Context, userID, category string) ([]record.TestRecord, error)
	ListCategories(ctx context.Context, userID string) ([]string, error)
}

type RecordService struct {
	store RecordStore
	prom  *observability.Prom
	now   func() time.Time
}

func NewRecordService(store RecordStore, prom *observability.Prom) *RecordService {
	return &RecordService{store: store, prom: prom, now: time.Now}
}

func (s *RecordService) WithClock(now func() time.Time) *RecordService {
	s.now = now
	return s
}

func (s *RecordService) Create(ctx context.Context, userID string, draft record.Draft) (record.TestRecord, error) {
	d := draft.Normalize()
	if err := record.Validate(d, s.now()); err != nil {
		return record.TestRecord{}, err
	}

	rec, err := s.store.Create(ctx, userID, d.ToRecord(userID))
	if err != nil {
		return record.TestRecord{}, err
	}
	s.prom.RecordsCreated("single", 1)
	return rec, nil
}

// CreateBatch validates the whole batch before touching the store, and the
// store writes it atomically.
func (s *RecordService) CreateBatch(ctx context.Context, userID string, drafts []record.Draft) ([]record.TestRecord, error) {
	normalized := make([]record.Draft, len(drafts))
	for i, d := range drafts {
		normalized[i] = d.Normalize()
	}

	if err := record.ValidateBatch(normalized, s.now()); err != nil {
		return nil, err
	}

	recs := make([]record.TestRecord, len(normalized))
	for i, d := range normalized {
		recs[i] = d.ToRecord(userID)
	}

	out, err := s.store.CreateBatch(ctx, userID, recs)
	if err != nil {
		return nil, err
	}
	s.prom.RecordsCreated("bulk", len(out))
	return out, nil
}

func (s *RecordService) List(ctx context.Context, userID string) ([]record.TestRecord, error) {
	return s.store.ListByOwner(ctx, userID)
}

func (s *RecordService) ListByCategory(ctx context.Context, userID, category string) ([]record.TestRecord, error) {
	return s.store.ListByCategory(ctx, userID, strings.TrimSpace(category))
}

func (s *RecordService) Categories(ctx context.Context, userID string) ([]string, error) {
	return s.store.ListCategories(ctx, userID)
}
