package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/geocoder89/labsmonitor/internal/domain/record"
	"github.com/geocoder89/labsmonitor/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordsRepo scopes every query by owner; there is no method that reads
// records without a user id.
type RecordsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRecordsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RecordsRepo {
	return &RecordsRepo{pool: pool, prom: prom}
}

const recordColumns = `id, user_id, test_category, test_type, test_value, unit,
	min_range, max_range, test_date, notes, created_at, updated_at`

const insertRecord = `INSERT INTO test_records (` + recordColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

func stamp(r record.TestRecord, userID string, now time.Time) record.TestRecord {
	r.ID = uuid.NewString()
	r.UserID = userID
	r.TestDate = r.TestDate.UTC().Truncate(time.Microsecond)
	r.CreatedAt, r.UpdatedAt = now, now
	return r
}

func insertArgs(r record.TestRecord) []any {
	return []any{
		r.ID, r.UserID, r.Category, r.Type, r.Value, r.Unit,
		r.MinRange, r.MaxRange, r.TestDate, r.Notes, r.CreatedAt, r.UpdatedAt,
	}
}

func (r *RecordsRepo) Create(ctx context.Context, userID string, rec record.TestRecord) (record.TestRecord, error) {
	rec = stamp(rec, userID, time.Now().UTC().Truncate(time.Microsecond))

	err := r.prom.ObserveDB("records.create", func() error {
		_, err := r.pool.Exec(ctx, insertRecord, insertArgs(rec)...)
		return err
	})
	if err != nil {
		return record.TestRecord{}, err
	}
	return rec, nil
}

// CreateBatch inserts all records in a single transaction. Any failure rolls
// the whole batch back.
func (r *RecordsRepo) CreateBatch(ctx context.Context, userID string, recs []record.TestRecord) ([]record.TestRecord, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	out := make([]record.TestRecord, len(recs))
	for i, rec := range recs {
		out[i] = stamp(rec, userID, now)
	}

	err := r.prom.ObserveDB("records.create_batch", func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		batch := &pgx.Batch{}
		for _, rec := range out {
			batch.Queue(insertRecord, insertArgs(rec)...)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range out {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert record %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RecordsRepo) ListByOwner(ctx context.Context, userID string) ([]record.TestRecord, error) {
	return r.list(ctx, "records.list_by_owner",
		`SELECT `+recordColumns+` FROM test_records
		 WHERE user_id = $1
		 ORDER BY test_date DESC, created_at DESC, id`,
		userID,
	)
}

func (r *RecordsRepo) ListByCategory(ctx context.Context, userID, category string) ([]record.TestRecord, error) {
	return r.list(ctx, "records.list_by_category",
		`SELECT `+recordColumns+` FROM test_records
		 WHERE user_id = $1 AND test_category = $2
		 ORDER BY test_date DESC, created_at DESC, id`,
		userID, category,
	)
}

func (r *RecordsRepo) ListCategories(ctx context.Context, userID string) ([]string, error) {
	categories := []string{}

	err := r.prom.ObserveDB("records.list_categories", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT DISTINCT test_category FROM test_records
			 WHERE user_id = $1
			 ORDER BY test_category`,
			userID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c string
			if err := rows.Scan(&c); err != nil {
				return err
			}
			categories = append(categories, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *RecordsRepo) list(ctx context.Context, op, sql string, args ...any) ([]record.TestRecord, error) {
	recs := []record.TestRecord{}

	err := r.prom.ObserveDB(op, func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rec record.TestRecord
			if err := rows.Scan(
				&rec.ID, &rec.UserID, &rec.Category, &rec.Type, &rec.Value, &rec.Unit,
				&rec.MinRange, &rec.MaxRange, &rec.TestDate, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
			); err != nil {
				return err
			}
			rec.TestDate = rec.TestDate.UTC()
			rec.CreatedAt = rec.CreatedAt.UTC()
			rec.UpdatedAt = rec.UpdatedAt.UTC()
			recs = append(recs, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}
