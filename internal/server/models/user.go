// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role values stored in users.role.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// User is the public view of an identity. It never carries secrets and is
// what default store reads return.
type User struct {
	ID            string
	Username      string
	Email         string
	Role          string
	IsActive      bool
	EmailVerified bool
	MFAEnabled    bool
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AuthUser is the secret-bearing view used only by credential flows.
// Pending-code fields are set and cleared in pairs.
type AuthUser struct {
	User

	PasswordHash string
	// MFASecret is the sealed TOTP secret, empty when MFA was never set up.
	MFASecret string

	EmailVerificationToken   *string
	EmailVerificationExpires *time.Time

	ForgotPasswordOTP     *string
	ForgotPasswordExpires *time.Time
}

// NewUser carries the fields needed to insert a user.
type NewUser struct {
	Username      string
	Email         string
	PasswordHash  string
	Role          string
	IsActive      bool
	EmailVerified bool

	EmailVerificationToken   *string
	EmailVerificationExpires *time.Time
}
