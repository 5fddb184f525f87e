package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type TestRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Category  string    `json:"testCategory"`
	Type      string    `json:"testType"`
	Value     float64   `json:"testValue"`
	Unit      string    `json:"unit"`
	MinRange  *float64  `json:"minRange"`
	MaxRange  *float64  `json:"maxRange"`
	TestDate  time.Time `json:"testDate"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Draft is a record as submitted by a client, before validation.
// Pointers distinguish "missing" from zero values.
type Draft struct {
	Category string   `json:"testCategory"`
	Type     string   `json:"testType"`
	Value    *float64 `json:"testValue"`
	Unit     string   `json:"unit"`
	MinRange *float64 `json:"minRange"`
	MaxRange *float64 `json:"maxRange"`
	TestDate *Date    `json:"testDate"`
	Notes    *string  `json:"notes"`
}

// Normalize trims text fields and moves the date to UTC. Validation and
// storage both work on the normalized form.
func (d Draft) Normalize() Draft {
	out := d
	out.Category = strings.TrimSpace(d.Category)
	out.Type = strings.TrimSpace(d.Type)
	out.Unit = strings.TrimSpace(d.Unit)

	if d.TestDate != nil {
		utc := Date{Time: d.TestDate.UTC()}
		out.TestDate = &utc
	}

	if d.Notes != nil {
		n := strings.TrimSpace(*d.Notes)
		if n == "" {
			out.Notes = nil
		} else {
			out.Notes = &n
		}
	}
	return out
}

// ToRecord assumes the draft already passed Validate.
func (d Draft) ToRecord(userID string) TestRecord {
	r := TestRecord{
		UserID:   userID,
		Category: d.Category,
		Type:     d.Type,
		Unit:     d.Unit,
		MinRange: d.MinRange,
		MaxRange: d.MaxRange,
		Notes:    d.Notes,
	}
	if d.Value != nil {
		r.Value = *d.Value
	}
	if d.TestDate != nil {
		r.TestDate = d.TestDate.UTC()
	}
	return r
}

// Date accepts RFC 3339 timestamps as well as naive timestamps and plain
// dates. Anything without a zone is read as UTC.
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("unrecognised date %q", s)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fieldErr("testDate", "date", "test date must be a string")
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return fieldErr("testDate", "date", err.Error())
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UTC().Format(time.RFC3339Nano))
}
