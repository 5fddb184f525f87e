package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/geocoder89/labsmonitor/internal/codes"
	"github.com/geocoder89/labsmonitor/internal/domain/record"
	"github.com/geocoder89/labsmonitor/internal/domain/user"
	"github.com/geocoder89/labsmonitor/internal/security"
	"github.com/geocoder89/labsmonitor/internal/service"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusNotFound, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusForbidden, code, message, nil)
}

func RespondUnavailable(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusServiceUnavailable, code, message, nil)
}

// respondServiceError maps domain and service errors onto the envelope.
// Anything unrecognised is logged and reported as a 500.
func respondServiceError(ctx *gin.Context, err error) {
	var verr *record.ValidationError

	switch {
	case errors.As(err, &verr):
		code := "validation_failed"
		switch {
		case errors.Is(err, record.ErrDuplicateInBatch):
			code = "duplicate_in_batch"
		case errors.Is(err, record.ErrBulkInvalid):
			code = "bulk_invalid"
		}
		RespondError(ctx, http.StatusBadRequest, code, verr.Message, gin.H{"fields": []FieldError{fieldErrorFromValidation(verr)}})
	case errors.Is(err, security.ErrPasswordTooLong):
		RespondError(ctx, http.StatusBadRequest, "validation_failed", "Password is too long", gin.H{"fields": []FieldError{{
			Field:   "password",
			Rule:    "maxbytes",
			Param:   strconv.Itoa(security.MaxPasswordBytes),
			Message: validationMessage("maxbytes", strconv.Itoa(security.MaxPasswordBytes)),
		}}})
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email already registered")
	case errors.Is(err, service.ErrAlreadyVerified):
		RespondConflict(ctx, "already_verified", "Email already verified")
	case errors.Is(err, service.ErrInvalidCredentials):
		RespondUnauthorized(ctx, "invalid_credentials", "Incorrect email or password")
	case errors.Is(err, service.ErrEmailNotVerified):
		RespondForbidden(ctx, "email_not_verified", "Please verify your email before logging in")
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "user_not_found", "User not found")
	case errors.Is(err, codes.ErrCodeExpired):
		RespondError(ctx, http.StatusBadRequest, "code_expired", "Code has expired. Please request a new one.", nil)
	case errors.Is(err, codes.ErrInvalidCode):
		RespondError(ctx, http.StatusBadRequest, "invalid_code", "Invalid code", nil)
	case errors.Is(err, service.ErrMailDelivery):
		RespondUnavailable(ctx, "mail_unavailable", "Could not send email. Please try again later.")
	default:
		slog.Default().ErrorContext(ctx.Request.Context(), "request_failed",
			"route", ctx.FullPath(),
			"request_id", requestIDFrom(ctx),
			"err", err,
		)
		RespondInternal(ctx, "Something went wrong")
	}
}
