package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/labsmonitor/internal/codes"
	"github.com/geocoder89/labsmonitor/internal/domain/user"
	"github.com/geocoder89/labsmonitor/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active,
	email_verified, verification_code, verification_code_expires,
	reset_code, reset_code_expires, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var (
		u    user.User
		role string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&role,
		&u.IsActive,
		&u.EmailVerified,
		&u.VerificationCode,
		&u.VerificationCodeExpires,
		&u.ResetCode,
		&u.ResetCodeExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	u.Role = user.Role(role)
	return u, err
}

// Create inserts a new user. The unique index on email decides races between
// concurrent registrations.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = user.RolePatient
	}
	u.CreatedAt, u.UpdatedAt = now, now

	err := r.prom.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, first_name, last_name, role, is_active,
			                    email_verified, verification_code, verification_code_expires,
			                    reset_code, reset_code_expires, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role), u.IsActive,
			u.EmailVerified, u.VerificationCode, u.VerificationCodeExpires,
			u.ResetCode, u.ResetCodeExpires, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err, usersEmailKey) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) SetVerificationCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	return r.exec(ctx, "users.set_verification_code",
		`UPDATE users SET verification_code = $2, verification_code_expires = $3, updated_at = now()
		 WHERE id = $1`,
		userID, code, expiresAt,
	)
}

// MarkEmailVerified consumes the pending verification code. The row only
// matches while code is still stored, so a code is used at most once; a lost
// race reports codes.ErrInvalidCode.
func (r *UsersRepo) MarkEmailVerified(ctx context.Context, userID, code string) error {
	return r.consume(ctx, "users.mark_email_verified",
		`UPDATE users SET email_verified = TRUE, verification_code = NULL,
		                  verification_code_expires = NULL, updated_at = now()
		 WHERE id = $1 AND verification_code = $2`,
		userID, code,
	)
}

func (r *UsersRepo) SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	return r.exec(ctx, "users.set_reset_code",
		`UPDATE users SET reset_code = $2, reset_code_expires = $3, updated_at = now()
		 WHERE id = $1`,
		userID, code, expiresAt,
	)
}

// ResetPassword stores the new hash and burns the reset code in one
// statement, guarded the same way as MarkEmailVerified.
func (r *UsersRepo) ResetPassword(ctx context.Context, userID, code, passwordHash string) error {
	return r.consume(ctx, "users.reset_password",
		`UPDATE users SET password_hash = $3, reset_code = NULL, reset_code_expires = NULL,
		                  updated_at = now()
		 WHERE id = $1 AND reset_code = $2`,
		userID, code, passwordHash,
	)
}

func (r *UsersRepo) exec(ctx context.Context, op, sql string, args ...any) error {
	return r.update(ctx, op, user.ErrNotFound, sql, args...)
}

func (r *UsersRepo) consume(ctx context.Context, op, sql string, args ...any) error {
	return r.update(ctx, op, codes.ErrInvalidCode, sql, args...)
}

// update runs a single-row UPDATE and reports noMatch when no row matched.
func (r *UsersRepo) update(ctx context.Context, op string, noMatch error, sql string, args ...any) error {
	var rows int64
	err := r.prom.ObserveDB(op, func() error {
		tag, err := r.pool.Exec(ctx, sql, args...)
		rows = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		return noMatch
	}
	return nil
}
