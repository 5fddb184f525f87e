package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidCredentials covers every way a token can fail: bad signature,
// wrong algorithm, expiry, malformed input or the wrong token type.
var ErrInvalidCredentials = errors.New("invalid credentials")

type Claims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RememberMeTTL time.Duration
}

type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	rememberTTL   time.Duration
	now           func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("auth: secrets must not be empty")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.RememberMeTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}

	return &Manager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		rememberTTL:   cfg.RememberMeTTL,
		now:           time.Now,
	}, nil
}

// WithClock swaps the time source. Tests use it to move past expiry.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }

func (m *Manager) IssueAccessToken(email string) (string, time.Time, error) {
	return m.issue(email, TokenTypeAccess, m.accessTTL, m.accessSecret)
}

// IssueRefreshToken picks the long remember-me lifetime when asked to.
func (m *Manager) IssueRefreshToken(email string, rememberMe bool) (string, time.Time, error) {
	ttl := m.refreshTTL
	if rememberMe {
		ttl = m.rememberTTL
	}
	return m.issue(email, TokenTypeRefresh, ttl, m.refreshSecret)
}

func (m *Manager) ValidateAccessToken(tokenStr string) (string, error) {
	return m.validate(tokenStr, TokenTypeAccess, m.accessSecret)
}

func (m *Manager) ValidateRefreshToken(tokenStr string) (string, error) {
	return m.validate(tokenStr, TokenTypeRefresh, m.refreshSecret)
}

func (m *Manager) issue(email, typ string, ttl time.Duration, secret []byte) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(ttl)

	claims := Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return raw, expiresAt, nil
}

func (m *Manager) validate(tokenStr, wantType string, secret []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		// Enforce HS256
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidCredentials
	}

	if claims.TokenType != wantType || claims.Subject == "" {
		return "", ErrInvalidCredentials
	}

	return claims.Subject, nil
}
