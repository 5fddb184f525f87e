package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/labsmonitor/internal/auth"
	"github.com/geocoder89/labsmonitor/internal/codes"
	"github.com/geocoder89/labsmonitor/internal/domain/user"
	"github.com/geocoder89/labsmonitor/internal/mail"
	"github.com/geocoder89/labsmonitor/internal/observability"
	"github.com/geocoder89/labsmonitor/internal/security"
)

var (
	ErrInvalidCredentials = auth.ErrInvalidCredentials
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrMailDelivery       = errors.New("mail delivery failed")
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	SetVerificationCode(ctx context.Context, userID, code string, expiresAt time.Time) error
	// MarkEmailVerified and ResetPassword succeed only while code is still the
	// stored one, and return codes.ErrInvalidCode otherwise.
	MarkEmailVerified(ctx context.Context, userID, code string) error
	SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, userID, code, passwordHash string) error
}

type TokenIssuer interface {
	IssueAccessToken(email string) (string, time.Time, error)
	IssueRefreshToken(email string, rememberMe bool) (string, time.Time, error)
	ValidateAccessToken(token string) (string, error)
	ValidateRefreshToken(token string) (string, error)
	AccessTTL() time.Duration
}

type Tokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	ExpiresIn        int // seconds until the access token expires
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	codes  *codes.Manager
	mailer mail.Dispatcher
	prom   *observability.Prom
	log    *slog.Logger
}

func NewAuthService(users UserStore, tokens TokenIssuer, codeManager *codes.Manager, mailer mail.Dispatcher, prom *observability.Prom, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		codes:  codeManager,
		mailer: mailer,
		prom:   prom,
		log:    log,
	}
}

// Register stores an unverified user and mails a verification code. A failed
// mail is logged and swallowed: the account exists and the user can ask for
// another code.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	email := user.NormalizeEmail(in.Email)

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	pending, err := s.codes.Issue()
	if err != nil {
		return user.User{}, fmt.Errorf("issue verification code: %w", err)
	}

	u, err := s.users.Create(ctx, user.User{
		Email:                   email,
		PasswordHash:            hash,
		FirstName:               in.FirstName,
		LastName:                in.LastName,
		Role:                    user.RolePatient,
		IsActive:                true,
		VerificationCode:        &pending.Code,
		VerificationCodeExpires: &pending.ExpiresAt,
	})
	if err != nil {
		s.prom.AuthEvent("register", outcomeOf(err))
		return user.User{}, err
	}
	s.prom.AuthEvent("register", "ok")

	if err := s.sendCode(ctx, mail.KindVerification, u, pending.Code); err != nil {
		s.log.WarnContext(ctx, "register_mail_failed", "user_id", u.ID, "email", u.Email, "err", err)
	}

	return u, nil
}

// Login checks the password before the verified flag so an unverified
// account never leaks to someone without the password.
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool) (Tokens, error) {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.prom.AuthEvent("login", "invalid_credentials")
			return Tokens{}, ErrInvalidCredentials
		}
		return Tokens{}, err
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		if !errors.Is(err, security.ErrPasswordMismatch) {
			s.log.ErrorContext(ctx, "password_check_failed", "user_id", u.ID, "err", err)
		}
		s.prom.AuthEvent("login", "invalid_credentials")
		return Tokens{}, ErrInvalidCredentials
	}

	if !u.IsActive {
		s.prom.AuthEvent("login", "inactive")
		return Tokens{}, ErrInvalidCredentials
	}

	if !u.EmailVerified {
		s.prom.AuthEvent("login", "unverified")
		return Tokens{}, ErrEmailNotVerified
	}

	tokens, err := s.issueTokens(u.Email, rememberMe)
	if err != nil {
		return Tokens{}, err
	}
	s.prom.AuthEvent("login", "ok")
	return tokens, nil
}

// VerifyEmail consumes the pending verification code and logs the user in.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (Tokens, user.User, error) {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return Tokens{}, user.User{}, err
	}

	if u.EmailVerified {
		return Tokens{}, user.User{}, ErrAlreadyVerified
	}

	if !u.IsActive {
		s.prom.AuthEvent("verify_email", "inactive")
		return Tokens{}, user.User{}, ErrInvalidCredentials
	}

	if err := s.codes.Check(u.VerificationCode, u.VerificationCodeExpires, code); err != nil {
		s.prom.AuthEvent("verify_email", outcomeOf(err))
		return Tokens{}, user.User{}, err
	}

	if err := s.users.MarkEmailVerified(ctx, u.ID, code); err != nil {
		s.prom.AuthEvent("verify_email", outcomeOf(err))
		return Tokens{}, user.User{}, fmt.Errorf("mark verified: %w", err)
	}
	u.EmailVerified = true
	u.VerificationCode = nil
	u.VerificationCodeExpires = nil

	tokens, err := s.issueTokens(u.Email, false)
	if err != nil {
		return Tokens{}, user.User{}, err
	}
	s.prom.AuthEvent("verify_email", "ok")
	return tokens, u, nil
}

// ResendVerification replaces any pending code. Unlike Register, a failed
// mail is reported to the caller.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if u.EmailVerified {
		return ErrAlreadyVerified
	}

	pending, err := s.codes.Issue()
	if err != nil {
		return fmt.Errorf("issue verification code: %w", err)
	}
	if err := s.users.SetVerificationCode(ctx, u.ID, pending.Code, pending.ExpiresAt); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}

	if err := s.sendCode(ctx, mail.KindVerification, u, pending.Code); err != nil {
		s.log.ErrorContext(ctx, "resend_verification_mail_failed", "user_id", u.ID, "err", err)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

// Authenticate resolves the user behind an access token. Missing or
// deactivated users are treated like a bad token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (user.User, error) {
	email, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return user.User{}, ErrInvalidCredentials
	}
	return s.activeUser(ctx, email)
}

// Refresh mints a new access token. The refresh token is handed back as is.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	email, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.prom.AuthEvent("refresh", "invalid_token")
		return Tokens{}, ErrInvalidCredentials
	}

	u, err := s.activeUser(ctx, email)
	if err != nil {
		s.prom.AuthEvent("refresh", outcomeOf(err))
		return Tokens{}, err
	}

	access, accessExp, err := s.tokens.IssueAccessToken(u.Email)
	if err != nil {
		return Tokens{}, err
	}
	s.prom.AuthEvent("refresh", "ok")

	return Tokens{
		AccessToken:     access,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExp,
		ExpiresIn:       int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// ForgotPassword answers the same way whether or not the account exists.
// Mail failures for real accounts are surfaced.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.log.DebugContext(ctx, "forgot_password_unknown_email")
			return nil
		}
		return err
	}

	pending, err := s.codes.Issue()
	if err != nil {
		return fmt.Errorf("issue reset code: %w", err)
	}
	if err := s.users.SetResetCode(ctx, u.ID, pending.Code, pending.ExpiresAt); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	if err := s.sendCode(ctx, mail.KindPasswordReset, u, pending.Code); err != nil {
		s.log.ErrorContext(ctx, "password_reset_mail_failed", "user_id", u.ID, "err", err)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return err
	}

	if err := s.codes.Check(u.ResetCode, u.ResetCodeExpires, code); err != nil {
		s.prom.AuthEvent("reset_password", outcomeOf(err))
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.ResetPassword(ctx, u.ID, code, hash); err != nil {
		s.prom.AuthEvent("reset_password", outcomeOf(err))
		return fmt.Errorf("store password: %w", err)
	}
	s.prom.AuthEvent("reset_password", "ok")
	return nil
}

func (s *AuthService) activeUser(ctx context.Context, email string) (user.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, err
	}
	if !u.IsActive {
		return user.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *AuthService) issueTokens(email string, rememberMe bool) (Tokens, error) {
	access, accessExp, err := s.tokens.IssueAccessToken(email)
	if err != nil {
		return Tokens{}, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(email, rememberMe)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		ExpiresIn:        int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *AuthService) sendCode(ctx context.Context, kind mail.Kind, u user.User, code string) error {
	return s.mailer.Send(ctx, mail.Message{
		Kind:           kind,
		To:             u.Email,
		FirstName:      u.FirstName,
		Code:           code,
		CodeTTLMinutes: int(s.codes.TTL().Minutes()),
	})
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, user.ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, codes.ErrCodeExpired):
		return "code_expired"
	case errors.Is(err, codes.ErrInvalidCode):
		return "invalid_code"
	default:
		return "error"
	}
}
