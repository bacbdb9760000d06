package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/dmitrijs2005/lemonauth/internal/dbx"
	"github.com/dmitrijs2005/lemonauth/internal/server/models"
	"github.com/google/uuid"
)

const publicColumns = `id, username, email, role, is_active, email_verified, mfa_enabled, last_login, created_at, updated_at`

const authColumns = publicColumns + `, password_hash, COALESCE(mfa_secret, ''),
	email_verification_token, email_verification_expires, forgot_password_otp, forgot_password_expires`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanPublic(row interface{ Scan(...any) error }, u *models.User, extra ...any) error {
	dest := append([]any{&u.ID, &u.Username, &u.Email, &u.Role, &u.IsActive, &u.EmailVerified,
		&u.MFAEnabled, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt}, extra...)
	return row.Scan(dest...)
}

func (r *PostgresRepository) getAuth(ctx context.Context, where string, arg any) (*models.AuthUser, error) {
	query := `SELECT ` + authColumns + ` FROM users WHERE ` + where

	u := &models.AuthUser{}
	err := scanPublic(r.db.QueryRowContext(ctx, query, arg), &u.User,
		&u.PasswordHash, &u.MFASecret,
		&u.EmailVerificationToken, &u.EmailVerificationExpires,
		&u.ForgotPasswordOTP, &u.ForgotPasswordExpires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM users WHERE username IN ($1, $2) OR email IN ($1, $2))
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Create(ctx context.Context, nu *models.NewUser) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, is_active, email_verified,
			email_verification_token, email_verification_expires)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + publicColumns

	u := &models.User{}
	err := scanPublic(r.db.QueryRowContext(ctx, query,
		uuid.NewString(), nu.Username, nu.Email, nu.PasswordHash, nu.Role, nu.IsActive, nu.EmailVerified,
		nu.EmailVerificationToken, nu.EmailVerificationExpires), u)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + publicColumns + ` FROM users WHERE id = $1`

	u := &models.User{}
	if err := scanPublic(r.db.QueryRowContext(ctx, query, id), u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetAuthByID(ctx context.Context, id string) (*models.AuthUser, error) {
	return r.getAuth(ctx, `id = $1`, id)
}

func (r *PostgresRepository) GetAuthByIdentifier(ctx context.Context, identifier string) (*models.AuthUser, error) {
	return r.getAuth(ctx, `username = $1 OR email = $1 ORDER BY (email = $1) DESC LIMIT 1`, identifier)
}

func (r *PostgresRepository) GetAuthByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	return r.getAuth(ctx, `email = $1`, email)
}

func (r *PostgresRepository) GetAuthByVerificationToken(ctx context.Context, token string) (*models.AuthUser, error) {
	return r.getAuth(ctx, `email_verification_token = $1 AND email_verified = FALSE`, token)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	n, err := dbx.ExecAffected(ctx, r.db, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// execOne treats zero affected rows as a missing user.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	n, err := r.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) SetEmailVerification(ctx context.Context, id, token string, expires time.Time) error {
	query := `
		UPDATE users
		SET email_verification_token = $2, email_verification_expires = $3, updated_at = now()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, token, expires)
}

func (r *PostgresRepository) ConsumeEmailVerification(ctx context.Context, id, token string, now time.Time) (bool, error) {
	query := `
		UPDATE users
		SET email_verified = TRUE, email_verification_token = NULL, email_verification_expires = NULL, updated_at = now()
		WHERE id = $1 AND email_verification_token = $2 AND email_verification_expires > $3 AND email_verified = FALSE
	`
	n, err := r.exec(ctx, query, id, token, now)
	return n == 1, err
}

func (r *PostgresRepository) SetForgotPasswordOTP(ctx context.Context, id, otp string, expires time.Time) error {
	query := `
		UPDATE users
		SET forgot_password_otp = $2, forgot_password_expires = $3, updated_at = now()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, otp, expires)
}

func (r *PostgresRepository) ResetPassword(ctx context.Context, id, otp, passwordHash string, now time.Time) (bool, error) {
	query := `
		UPDATE users
		SET password_hash = $3, forgot_password_otp = NULL, forgot_password_expires = NULL, updated_at = now()
		WHERE id = $1 AND forgot_password_otp = $2 AND forgot_password_expires > $4
	`
	n, err := r.exec(ctx, query, id, otp, passwordHash, now)
	return n == 1, err
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`
	return r.execOne(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) SetMFASecret(ctx context.Context, id, sealedSecret string) error {
	query := `
		UPDATE users SET mfa_secret = $2, mfa_enabled = FALSE, updated_at = now() WHERE id = $1
	`
	return r.execOne(ctx, query, id, sealedSecret)
}

func (r *PostgresRepository) EnableMFA(ctx context.Context, id, sealedSecret string) (bool, error) {
	query := `
		UPDATE users SET mfa_enabled = TRUE, updated_at = now() WHERE id = $1 AND mfa_secret = $2
	`
	n, err := r.exec(ctx, query, id, sealedSecret)
	return n == 1, err
}

func (r *PostgresRepository) DisableMFA(ctx context.Context, id string) error {
	query := `
		UPDATE users SET mfa_secret = NULL, mfa_enabled = FALSE, updated_at = now() WHERE id = $1
	`
	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE users SET last_login = $2 WHERE id = $1
	`
	return r.execOne(ctx, query, id, at)
}
