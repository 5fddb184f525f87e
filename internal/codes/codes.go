// Package codes issues and checks the short numeric codes mailed out for
// email verification and password reset. Both tracks share this logic; the
// caller decides where a pending code is stored.
package codes

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/geocoder89/labsmonitor/internal/security"
)

const Digits = 6

var (
	ErrInvalidCode = errors.New("invalid code")
	ErrCodeExpired = errors.New("code expired")
)

type Pending struct {
	Code      string
	ExpiresAt time.Time
}

type Manager struct {
	ttl time.Duration
	now func() time.Time
	gen func() (string, error)
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		ttl: ttl,
		now: time.Now,
		gen: func() (string, error) { return security.NumericCode(Digits) },
	}
}

func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// WithGenerator lets tests pin the issued code.
func (m *Manager) WithGenerator(gen func() (string, error)) *Manager {
	m.gen = gen
	return m
}

func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) Issue() (Pending, error) {
	code, err := m.gen()
	if err != nil {
		return Pending{}, err
	}
	return Pending{Code: code, ExpiresAt: m.now().UTC().Add(m.ttl)}, nil
}

// Check compares a supplied code against the stored one. A mismatch wins over
// expiry, so a wrong guess never learns whether a code is still live.
func (m *Manager) Check(stored *string, expiresAt *time.Time, supplied string) error {
	if stored == nil || *stored == "" {
		return ErrInvalidCode
	}
	if subtle.ConstantTimeCompare([]byte(*stored), []byte(supplied)) != 1 {
		return ErrInvalidCode
	}
	if expiresAt == nil || !m.now().Before(*expiresAt) {
		return ErrCodeExpired
	}
	return nil
}
