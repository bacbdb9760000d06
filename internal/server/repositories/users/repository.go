// Package users declares the identity store contract and its PostgreSQL
// implementation.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/server/models"
)

// Repository persists users. Methods returning models.User never expose
// secrets; the GetAuth* methods return the secret-bearing models.AuthUser.
//
// Lookups return common.ErrorNotFound when no row matches. Conditional
// updates report whether a row was changed instead of failing.
type Repository interface {
	// ExistsByUsernameOrEmail reports whether either value is taken as a
	// username or as an email.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// Create inserts a user and returns its public view. Unique violations
	// map to common.ErrDuplicateIdentity.
	Create(ctx context.Context, u *models.NewUser) (*models.User, error)

	GetByID(ctx context.Context, id string) (*models.User, error)
	GetAuthByID(ctx context.Context, id string) (*models.AuthUser, error)
	// GetAuthByIdentifier matches username or email, preferring the email match.
	GetAuthByIdentifier(ctx context.Context, identifier string) (*models.AuthUser, error)
	GetAuthByEmail(ctx context.Context, email string) (*models.AuthUser, error)
	GetAuthByVerificationToken(ctx context.Context, token string) (*models.AuthUser, error)

	// SetEmailVerification stores a pending verification code or link token.
	SetEmailVerification(ctx context.Context, id, token string, expires time.Time) error
	// ConsumeEmailVerification marks the email verified and clears the pending
	// pair only if token is still current, unexpired at now and unverified.
	ConsumeEmailVerification(ctx context.Context, id, token string, now time.Time) (bool, error)

	SetForgotPasswordOTP(ctx context.Context, id, otp string, expires time.Time) error
	// ResetPassword replaces the hash and clears the OTP pair only if otp is
	// still current and unexpired at now.
	ResetPassword(ctx context.Context, id, otp, passwordHash string, now time.Time) (bool, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error

	// SetMFASecret stores a new sealed secret and leaves MFA disabled.
	SetMFASecret(ctx context.Context, id, sealedSecret string) error
	// EnableMFA flips mfa_enabled only if sealedSecret is still the stored one.
	EnableMFA(ctx context.Context, id, sealedSecret string) (bool, error)
	// DisableMFA clears the secret and the enabled flag.
	DisableMFA(ctx context.Context, id string) error

	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
