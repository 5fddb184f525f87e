package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/labsmonitor/internal/domain/record"
	"github.com/geocoder89/labsmonitor/internal/http/handlers"
	"github.com/geocoder89/labsmonitor/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindRouter[T any]() *gin.Engine {
	r := gin.New()
	r.Use(middlewares.MaxBodyBytes(256))
	r.POST("/bind", func(ctx *gin.Context) {
		var req T
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})
	return r
}

func postBind(r *gin.Engine, body string) (*httptest.ResponseRecorder, bindErrorResponse) {
	req := httptest.NewRequest(http.MethodPost, "/bind", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp bindErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	w, resp := postBind(bindRouter[handlers.RegisterRequest](), `{"email":"not-an-email","password":"short"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}

	wantRules := map[string]string{
		"email":     "email",
		"password":  "min",
		"firstName": "required",
		"lastName":  "required",
	}

	found := map[string]handlers.FieldError{}
	for _, fieldErr := range resp.Error.Details.Fields {
		found[fieldErr.Field] = fieldErr
	}

	for field, rule := range wantRules {
		fieldErr, ok := found[field]
		if !ok {
			t.Fatalf("missing field error for %q: %+v", field, resp.Error.Details.Fields)
		}
		if fieldErr.Rule != rule {
			t.Fatalf("field %q rule mismatch: got %q want %q", field, fieldErr.Rule, rule)
		}
		if fieldErr.Message == "" {
			t.Fatalf("field %q should include a non-empty message", field)
		}
	}
}

func TestBindJSON_TypeMismatchUsesJSONFieldNames(t *testing.T) {
	w, resp := postBind(bindRouter[record.Draft](), `{"testCategory":"CBC","testValue":"ten"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	if resp.Error.Details.JSON != "invalid_json_type" {
		t.Fatalf("expected invalid_json_type, got %q", resp.Error.Details.JSON)
	}
	if resp.Error.Details.Field != "testValue" {
		t.Fatalf("expected detail field to be testValue, got %q", resp.Error.Details.Field)
	}
	if len(resp.Error.Details.Fields) == 0 || resp.Error.Details.Fields[0].Rule != "type" {
		t.Fatalf("expected a type rule in details.fields, got %+v", resp.Error.Details.Fields)
	}
}

func TestBindJSON_BadDateNamesTheField(t *testing.T) {
	w, resp := postBind(bindRouter[record.Draft](), `{"testDate":"yesterday"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
	if len(resp.Error.Details.Fields) != 1 {
		t.Fatalf("expected one field error, got %+v", resp.Error.Details.Fields)
	}
	if f := resp.Error.Details.Fields[0]; f.Field != "testDate" || f.Rule != "date" {
		t.Fatalf("unexpected field error: %+v", f)
	}
}

func TestBindJSON_SyntaxError(t *testing.T) {
	w, resp := postBind(bindRouter[record.Draft](), `{"testCategory" "CBC"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp.Error.Details.JSON == "" {
		t.Fatalf("expected a json detail, body=%s", w.Body.String())
	}
}

func TestBindJSON_BodyTooLarge(t *testing.T) {
	body := `{"notes":"` + strings.Repeat("a", 512) + `"}`
	w, resp := postBind(bindRouter[record.Draft](), body)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusRequestEntityTooLarge, w.Body.String())
	}
	if resp.Error.Code != "body_too_large" {
		t.Fatalf("unexpected code %q", resp.Error.Code)
	}
}

func TestBindJSON_EmptyBody(t *testing.T) {
	w, resp := postBind(bindRouter[handlers.EmailRequest](), "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp.Error.Details.JSON != "empty_body" {
		t.Fatalf("expected empty_body, body=%s", w.Body.String())
	}
}
