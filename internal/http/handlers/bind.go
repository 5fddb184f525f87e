package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/geocoder89/labsmonitor/internal/domain/record"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

var setupValidator sync.Once

// BindJSON decodes and validates the body into out. On failure it has
// already written the response and returns false.
func BindJSON(ctx *gin.Context, out any) bool {
	setupValidator.Do(registerValidators)

	err := ctx.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "body_too_large", "Request body too large", nil)
		return false
	}

	RespondBadRequest(ctx, "Invalid request body", bindErrorDetails(err))
	return false
}

// registerValidators makes validator report json names ("firstName",
// "records[2].testValue") instead of Go field names, and adds maxbytes.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("maxbytes", maxBytes)
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return sf.Name
		}
		return name
	})
}

// maxBytes limits the encoded length of a string. max= counts runes, which
// lets multi-byte passwords past bcrypt's 72 byte limit.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func bindErrorDetails(err error) gin.H {
	var (
		invalid    validator.ValidationErrors
		syntax     *json.SyntaxError
		mismatch   *json.UnmarshalTypeError
		recordFail *record.ValidationError
	)

	switch {
	case errors.As(err, &invalid):
		fields := make([]FieldError, 0, len(invalid))
		for _, fe := range invalid {
			fields = append(fields, FieldError{
				Field:   fieldPath(fe),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}

	case errors.As(err, &syntax):
		return gin.H{"json": "invalid_json_syntax", "offset": syntax.Offset}

	case errors.As(err, &mismatch):
		field := mismatch.Field
		if field == "" {
			field = "body"
		}
		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: "must be of type " + jsonKind(mismatch.Type),
			}},
		}

	case errors.As(err, &recordFail):
		// raised by custom unmarshalers such as record.Date
		return gin.H{"fields": []FieldError{fieldErrorFromValidation(recordFail)}}

	case errors.Is(err, io.EOF):
		return gin.H{"json": "empty_body"}
	}

	return gin.H{"reason": err.Error()}
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "numeric":
		return "must contain only digits"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "maxbytes":
		return "must be at most " + param + " bytes"
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "gt", "gtfield":
		return "must be greater than " + param
	case "dive":
		return "contains an invalid entry"
	}

	if param != "" {
		return fmt.Sprintf("failed %s validation (%s)", rule, param)
	}
	return "failed " + rule + " validation"
}

func fieldErrorFromValidation(verr *record.ValidationError) FieldError {
	return FieldError{Field: verr.Field, Rule: verr.Rule, Message: verr.Message}
}
