package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/trace"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: &pgconn.PgError{Code: "23505"}, want: "unique_violation"},
		{err: fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23503"}), want: "foreign_key_violation"},
		{err: &pgconn.PgError{Code: "23514", ConstraintName: "test_records_range_chk"}, want: "check_violation"},
		{err: &pgconn.PgError{Code: "42P01"}, want: "pg_42P01"},
		{err: context.DeadlineExceeded, want: "timeout"},
		{err: context.Canceled, want: "canceled"},
		{err: errors.New("connection refused"), want: "connection"},
		{err: errors.New("???"), want: "unknown"},
	}

	for _, tt := range tests {
		if got := classifyDBErr(tt.err); got != tt.want {
			t.Errorf("classifyDBErr(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserveDB(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("users.get", func() error { return nil })
	_ = p.ObserveDB("users.get", func() error { return pgx.ErrNoRows })
	err := p.ObserveDB("users.create", func() error { return &pgconn.PgError{Code: "23505"} })
	if err == nil {
		t.Fatal("ObserveDB must pass the error through")
	}

	if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.create", "unique_violation")); got != 1 {
		t.Fatalf("unique_violation count = %v", got)
	}
	if got := testutil.CollectAndCount(p.DbErrorsTotal); got != 1 {
		t.Fatalf("no-rows should not count as an error, series = %d", got)
	}
}

func TestNilPromIsSafe(t *testing.T) {
	var p *Prom

	called := false
	if err := p.ObserveDB("x", func() error { called = true; return nil }); err != nil || !called {
		t.Fatalf("nil prom must still run fn")
	}
	p.AuthEvent("login", "ok")
	p.MailOutcome("verification", "sent")
	p.RecordsCreated("bulk", 3)
	p.RateLimited("auth")
}

func TestGinHandleMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := NewProm(prometheus.NewRegistry())

	r := gin.New()
	r.Use(p.GinHandleMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if got := testutil.ToFloat64(p.RequestsTotal.WithLabelValues("GET", "/ping", "204")); got != 1 {
		t.Fatalf("requests_total = %v", got)
	}
}

func TestTraceHandlerAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.InfoContext(ctx, "hello")
	log.DebugContext(ctx, "hidden")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if line["trace_id"] != traceID.String() || line["span_id"] != spanID.String() {
		t.Fatalf("missing trace ids: %v", line)
	}
	if line["service"] != ServiceName {
		t.Fatalf("missing service attr: %v", line)
	}
}

func TestTraceHandlerAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "dev").With("component", "auth")

	log.WarnContext(WithRequestID(context.Background(), "req-42"), "register_mail_failed")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("bad json %q: %v", buf.String(), err)
	}
	if line["request_id"] != "req-42" || line["component"] != "auth" {
		t.Fatalf("unexpected attrs: %v", line)
	}
	if _, ok := line["trace_id"]; ok {
		t.Fatalf("no span, no trace_id: %v", line)
	}
}
