package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/labsmonitor/internal/config"
	"github.com/geocoder89/labsmonitor/internal/domain/user"
	"github.com/geocoder89/labsmonitor/internal/http/middlewares"
	"github.com/geocoder89/labsmonitor/internal/service"
	"github.com/gin-gonic/gin"
)

// AuthService is what the auth handlers need from the service layer.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (user.User, error)
	Login(ctx context.Context, email, password string, rememberMe bool) (service.Tokens, error)
	VerifyEmail(ctx context.Context, email, code string) (service.Tokens, user.User, error)
	ResendVerification(ctx context.Context, email string) error
	Refresh(ctx context.Context, refreshToken string) (service.Tokens, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

type AuthHandler struct {
	svc       AuthService
	secure    bool
	timeout   time.Duration
	mailAwait time.Duration
}

func NewAuthHandler(svc AuthService, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		svc:     svc,
		secure:  cfg.IsProd(),
		timeout: 3 * time.Second,
		// mail goes through the breaker, which has its own timeout
		mailAwait: cfg.MailTimeout + 2*time.Second,
	}
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Password  string `json:"password" binding:"required,min=8,maxbytes=72"`
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
}

type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	ResetCode   string `json:"resetCode" binding:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" binding:"required,min=8,maxbytes=72"`
}

type TokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"`
	User         *user.Summary `json:"user,omitempty"`
}

func tokenResponse(t service.Tokens) TokenResponse {
	return TokenResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    t.ExpiresIn,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.mailAwait)
	defer cancel()

	u, err := h.svc.Register(cctx, service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":              "Registration successful. Please check your email for the verification code.",
		"email":                u.Email,
		"requiresVerification": true,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	tokens, err := h.svc.Login(cctx, req.Email, req.Password, req.RememberMe)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	h.setRefreshCookie(ctx, tokens.RefreshToken, tokens.RefreshExpiresAt)
	ctx.JSON(http.StatusOK, tokenResponse(tokens))
}

func (h *AuthHandler) VerifyEmail(ctx *gin.Context) {
	var req VerifyEmailRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	tokens, u, err := h.svc.VerifyEmail(cctx, req.Email, req.Code)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	h.setRefreshCookie(ctx, tokens.RefreshToken, tokens.RefreshExpiresAt)

	resp := tokenResponse(tokens)
	summary := u.Summary()
	resp.User = &summary
	ctx.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) ResendVerification(ctx *gin.Context) {
	var req EmailRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.mailAwait)
	defer cancel()

	if err := h.svc.ResendVerification(cctx, req.Email); err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Verification code sent successfully"})
}

// Me returns the account behind the bearer token. RequireAuth has already
// resolved it.
func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing user in context")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u.Summary()})
}

// Refresh reads the token from the body and falls back to the cookie.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	var req RefreshRequest

	if ctx.Request.ContentLength != 0 {
		if !BindJSON(ctx, &req) {
			return
		}
	}

	raw := req.RefreshToken
	if raw == "" {
		raw, _ = ctx.Cookie(refreshCookieName)
	}
	if raw == "" {
		RespondUnauthorized(ctx, "invalid_refresh", "Missing refresh token")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	tokens, err := h.svc.Refresh(cctx, raw)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			RespondUnauthorized(ctx, "invalid_refresh", "Invalid refresh token")
			return
		}
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, tokenResponse(tokens))
}

// Logout only clears the cookie: refresh tokens are stateless and expire
// on their own.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.clearRefreshCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req EmailRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.mailAwait)
	defer cancel()

	if err := h.svc.ForgotPassword(cctx, req.Email); err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "If an account with that email exists, a password reset code has been sent."})
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	if err := h.svc.ResetPassword(cctx, req.Email, req.ResetCode, req.NewPassword); err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// cookie helpers

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/auth"
)

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		return
	}

	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(refreshCookieName, raw, maxAge, refreshCookiePath, "", h.secure, true)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", h.secure, true)
}
