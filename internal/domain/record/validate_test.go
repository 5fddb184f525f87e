package record

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

func dateAt(t time.Time) *Date { return &Date{Time: t} }

func validDraft() Draft {
	return Draft{
		Category: "CBC",
		Type:     "HB",
		Value:    f(13.5),
		Unit:     "g/dL",
		MinRange: f(12),
		MaxRange: f(16),
		TestDate: dateAt(now.Add(-24 * time.Hour)),
	}
}

// failedField returns the field a validation error points at, failing the
// test when err is not a *ValidationError.
func failedField(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return ve.Field
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(d *Draft)
		wantField string
	}{
		{name: "valid", mutate: func(d *Draft) {}},
		{name: "tiny positive value", mutate: func(d *Draft) { d.Value = f(0.0001) }},
		{name: "zero value", mutate: func(d *Draft) { d.Value = f(0) }, wantField: "testValue"},
		{name: "negative value", mutate: func(d *Draft) { d.Value = f(-1) }, wantField: "testValue"},
		{name: "missing value", mutate: func(d *Draft) { d.Value = nil }, wantField: "testValue"},
		{name: "blank category", mutate: func(d *Draft) { d.Category = "" }, wantField: "testCategory"},
		{name: "blank type", mutate: func(d *Draft) { d.Type = "" }, wantField: "testType"},
		{name: "blank unit", mutate: func(d *Draft) { d.Unit = "" }, wantField: "unit"},
		{name: "equal range", mutate: func(d *Draft) { d.MinRange, d.MaxRange = f(5), f(5) }, wantField: "maxRange"},
		{name: "inverted range", mutate: func(d *Draft) { d.MinRange, d.MaxRange = f(16), f(12) }, wantField: "maxRange"},
		{name: "only min", mutate: func(d *Draft) { d.MaxRange = nil }},
		{name: "only max", mutate: func(d *Draft) { d.MinRange = nil }},
		{name: "date equals now", mutate: func(d *Draft) { d.TestDate = dateAt(now) }},
		{name: "future date", mutate: func(d *Draft) { d.TestDate = dateAt(now.Add(time.Second)) }, wantField: "testDate"},
		{name: "missing date", mutate: func(d *Draft) { d.TestDate = nil }, wantField: "testDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)

			err := Validate(d.Normalize(), now)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if !errors.Is(err, ErrValidation) {
				t.Fatalf("got %v, want ErrValidation", err)
			}
			if got := failedField(t, err); got != tt.wantField {
				t.Fatalf("field = %q, want %q", got, tt.wantField)
			}
		})
	}
}

func TestValidate_WhitespaceOnlyFieldsRejected(t *testing.T) {
	d := validDraft()
	d.Category = "   "

	if err := Validate(d.Normalize(), now); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestValidate_ZoneDriftStillFuture(t *testing.T) {
	// 13:00 at UTC-5 is 18:00 UTC, after now even though the wall clock reads earlier
	zone := time.FixedZone("EST", -5*3600)
	d := validDraft()
	d.TestDate = dateAt(time.Date(2025, 6, 15, 13, 0, 0, 0, zone))

	if err := Validate(d.Normalize(), now); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}

	// 13:00 at UTC+5 is 08:00 UTC, in the past
	ahead := time.FixedZone("PKT", 5*3600)
	d.TestDate = dateAt(time.Date(2025, 6, 15, 13, 0, 0, 0, ahead))
	if err := Validate(d.Normalize(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateBatch(t *testing.T) {
	other := validDraft()
	other.Type = "WBC"
	other.Unit = "10^3/uL"

	t.Run("valid", func(t *testing.T) {
		if err := ValidateBatch([]Draft{validDraft(), other}, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		err := ValidateBatch(nil, now)
		if !errors.Is(err, ErrBulkInvalid) || !errors.Is(err, ErrValidation) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("too many", func(t *testing.T) {
		drafts := make([]Draft, MaxBatchSize+1)
		for i := range drafts {
			d := validDraft()
			d.TestDate = dateAt(now.Add(-time.Duration(i+1) * 24 * time.Hour))
			drafts[i] = d
		}
		if err := ValidateBatch(drafts, now); !errors.Is(err, ErrBulkInvalid) {
			t.Fatalf("got %v, want ErrBulkInvalid", err)
		}
	})

	t.Run("exactly max", func(t *testing.T) {
		drafts := make([]Draft, MaxBatchSize)
		for i := range drafts {
			d := validDraft()
			d.TestDate = dateAt(now.Add(-time.Duration(i+1) * 24 * time.Hour))
			drafts[i] = d
		}
		if err := ValidateBatch(drafts, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("mixed categories", func(t *testing.T) {
		lipid := other
		lipid.Category = "Lipid Panel"
		err := ValidateBatch([]Draft{validDraft(), lipid}, now)
		if !errors.Is(err, ErrBulkInvalid) {
			t.Fatalf("got %v, want ErrBulkInvalid", err)
		}
		if got := failedField(t, err); got != "records[1].testCategory" {
			t.Fatalf("field = %q", got)
		}
	})

	t.Run("duplicate same day different time", func(t *testing.T) {
		a := validDraft()
		b := validDraft()
		a.TestDate = dateAt(time.Date(2025, 6, 14, 8, 0, 0, 0, time.UTC))
		b.TestDate = dateAt(time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC))
		b.Value = f(14)

		err := ValidateBatch([]Draft{a, b}, now)
		if !errors.Is(err, ErrDuplicateInBatch) || errors.Is(err, ErrBulkInvalid) {
			t.Fatalf("got %v, want only ErrDuplicateInBatch", err)
		}
		if msg := err.Error(); !strings.Contains(msg, "HB") || !strings.Contains(msg, "2025-06-14") {
			t.Fatalf("message should name type and day: %q", msg)
		}
	})

	t.Run("same type on different days", func(t *testing.T) {
		a := validDraft()
		b := validDraft()
		b.TestDate = dateAt(now.Add(-48 * time.Hour))
		if err := ValidateBatch([]Draft{a, b}, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("per record error carries index", func(t *testing.T) {
		bad := other
		bad.Value = f(0)
		err := ValidateBatch([]Draft{validDraft(), bad}, now)

		if got := failedField(t, err); got != "records[1].testValue" {
			t.Fatalf("field = %q", got)
		}
		if errors.Is(err, ErrBulkInvalid) {
			t.Fatalf("per record failure is not a batch failure: %v", err)
		}
	})
}

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{in: `"2025-06-14T10:30:00Z"`, want: time.Date(2025, 6, 14, 10, 30, 0, 0, time.UTC)},
		{in: `"2025-06-14T10:30:00+02:00"`, want: time.Date(2025, 6, 14, 8, 30, 0, 0, time.UTC)},
		{in: `"2025-06-14T10:30:00"`, want: time.Date(2025, 6, 14, 10, 30, 0, 0, time.UTC)},
		{in: `"2025-06-14T10:30:00.123"`, want: time.Date(2025, 6, 14, 10, 30, 0, 123000000, time.UTC)},
		{in: `"2025-06-14"`, want: time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Date
			if err := json.Unmarshal([]byte(tt.in), &d); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !tt.want.Equal(d.Time) {
				t.Fatalf("got %v, want %v", d.Time, tt.want)
			}
		})
	}

	for _, bad := range []string{`"yesterday"`, `12`} {
		var d Date
		if err := json.Unmarshal([]byte(bad), &d); err == nil {
			t.Errorf("%s: expected an error", bad)
		}
	}
}

func TestDraft_NormalizeAndToRecord(t *testing.T) {
	notes := "  fasting  "
	d := Draft{
		Category: " CBC ",
		Type:     " HB",
		Value:    f(13.5),
		Unit:     "g/dL ",
		TestDate: dateAt(time.Date(2025, 6, 14, 10, 0, 0, 0, time.FixedZone("X", 3600))),
		Notes:    &notes,
	}

	r := d.Normalize().ToRecord("user-1")

	if r.Category != "CBC" || r.Type != "HB" || r.Unit != "g/dL" {
		t.Errorf("not trimmed: %q %q %q", r.Category, r.Type, r.Unit)
	}
	if r.UserID != "user-1" {
		t.Errorf("UserID = %q", r.UserID)
	}
	if r.TestDate.Location() != time.UTC {
		t.Errorf("TestDate location = %v", r.TestDate.Location())
	}
	if r.Notes == nil || *r.Notes != "fasting" {
		t.Errorf("Notes = %v", r.Notes)
	}

	blank := "   "
	d.Notes = &blank
	if got := d.Normalize().Notes; got != nil {
		t.Errorf("blank notes should drop, got %q", *got)
	}
}
