package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/labsmonitor/internal/codes"
	"github.com/geocoder89/labsmonitor/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo is the in-process user store used by tests and STORE_DRIVER=memory.
type UsersRepo struct {
	mu      sync.RWMutex
	byID    map[string]user.User
	byEmail map[string]string // email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:    make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = user.RolePatient
	}
	u.CreatedAt, u.UpdatedAt = now, now

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[u.Email]; taken {
		return user.User{}, user.ErrEmailTaken
	}
	r.byID[u.ID] = cloneUser(u)
	r.byEmail[u.Email] = u.ID

	return cloneUser(u), nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *UsersRepo) SetVerificationCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	return r.update(userID, func(u *user.User) {
		u.VerificationCode = &code
		u.VerificationCodeExpires = &expiresAt
	})
}

// MarkEmailVerified clears the verification code only if it still equals code.
func (r *UsersRepo) MarkEmailVerified(ctx context.Context, userID, code string) error {
	return r.consume(userID, func(u *user.User) bool {
		if u.VerificationCode == nil || *u.VerificationCode != code {
			return false
		}
		u.EmailVerified = true
		u.VerificationCode = nil
		u.VerificationCodeExpires = nil
		return true
	})
}

func (r *UsersRepo) SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	return r.update(userID, func(u *user.User) {
		u.ResetCode = &code
		u.ResetCodeExpires = &expiresAt
	})
}

func (r *UsersRepo) ResetPassword(ctx context.Context, userID, code, passwordHash string) error {
	return r.consume(userID, func(u *user.User) bool {
		if u.ResetCode == nil || *u.ResetCode != code {
			return false
		}
		u.PasswordHash = passwordHash
		u.ResetCode = nil
		u.ResetCodeExpires = nil
		return true
	})
}

// SetActive is not part of any API flow; tests use it to deactivate accounts.
func (r *UsersRepo) SetActive(userID string, active bool) error {
	return r.update(userID, func(u *user.User) { u.IsActive = active })
}

// consume applies fn under the write lock; fn returning false leaves the user
// untouched and reports codes.ErrInvalidCode.
func (r *UsersRepo) consume(userID string, fn func(u *user.User) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return user.ErrNotFound
	}
	if !fn(&u) {
		return codes.ErrInvalidCode
	}
	u.UpdatedAt = time.Now().UTC()
	r.byID[userID] = cloneUser(u)
	return nil
}

func (r *UsersRepo) update(userID string, fn func(u *user.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return user.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.byID[userID] = cloneUser(u)
	return nil
}

func cloneUser(u user.User) user.User {
	u.VerificationCode = cloneStr(u.VerificationCode)
	u.VerificationCodeExpires = cloneTime(u.VerificationCodeExpires)
	u.ResetCode = cloneStr(u.ResetCode)
	u.ResetCodeExpires = cloneTime(u.ResetCodeExpires)
	return u
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
