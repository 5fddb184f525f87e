package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/labsmonitor/internal/domain/record"
	"github.com/google/uuid"
)

type RecordsRepo struct {
	mu      sync.RWMutex
	byOwner map[string][]record.TestRecord
}

func NewRecordsRepo() *RecordsRepo {
	return &RecordsRepo{byOwner: make(map[string][]record.TestRecord)}
}

func (r *RecordsRepo) Create(ctx context.Context, userID string, rec record.TestRecord) (record.TestRecord, error) {
	out, err := r.CreateBatch(ctx, userID, []record.TestRecord{rec})
	if err != nil {
		return record.TestRecord{}, err
	}
	return out[0], nil
}

// CreateBatch appends all records under one lock, so readers see all or none.
func (r *RecordsRepo) CreateBatch(ctx context.Context, userID string, recs []record.TestRecord) ([]record.TestRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make([]record.TestRecord, len(recs))
	for i, rec := range recs {
		rec.ID = uuid.NewString()
		rec.UserID = userID
		rec.TestDate = rec.TestDate.UTC()
		rec.CreatedAt, rec.UpdatedAt = now, now
		out[i] = cloneRecord(rec)
	}

	r.mu.Lock()
	for _, rec := range out {
		r.byOwner[userID] = append(r.byOwner[userID], cloneRecord(rec))
	}
	r.mu.Unlock()

	return out, nil
}

func (r *RecordsRepo) ListByOwner(ctx context.Context, userID string) ([]record.TestRecord, error) {
	return r.filter(userID, func(record.TestRecord) bool { return true }), nil
}

func (r *RecordsRepo) ListByCategory(ctx context.Context, userID, category string) ([]record.TestRecord, error) {
	return r.filter(userID, func(rec record.TestRecord) bool { return rec.Category == category }), nil
}

func (r *RecordsRepo) ListCategories(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]struct{}{}
	categories := []string{}
	for _, rec := range r.byOwner[userID] {
		if _, ok := seen[rec.Category]; ok {
			continue
		}
		seen[rec.Category] = struct{}{}
		categories = append(categories, rec.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (r *RecordsRepo) filter(userID string, keep func(record.TestRecord) bool) []record.TestRecord {
	r.mu.RLock()
	out := []record.TestRecord{}
	for _, rec := range r.byOwner[userID] {
		if keep(rec) {
			out = append(out, cloneRecord(rec))
		}
	}
	r.mu.RUnlock()

	// same order as the postgres store
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.TestDate.Equal(b.TestDate) {
			return a.TestDate.After(b.TestDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

func cloneRecord(rec record.TestRecord) record.TestRecord {
	rec.MinRange = cloneFloat(rec.MinRange)
	rec.MaxRange = cloneFloat(rec.MaxRange)
	rec.Notes = cloneStr(rec.Notes)
	return rec
}
