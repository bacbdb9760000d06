package common

import "errors"

// Callers should match these values with errors.Is.
var (
	// Repository-level errors.
	ErrorNotFound        = errors.New("not found")
	ErrDuplicateIdentity = errors.New("username or email already exists")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")

	// Credential errors.
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrDisabledAccount       = errors.New("account is disabled")
	ErrAlreadyVerified       = errors.New("email already verified")
	ErrTokenExpired          = errors.New("token expired")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired refresh token")
	ErrNoPendingCode         = errors.New("no verification code found")
	ErrMfaNotSetup           = errors.New("mfa not set up")

	// Bearer / MFA-challenge token errors.
	ErrInvalidToken = errors.New("invalid token")

	ErrValidationFailed = errors.New("validation failed")
	ErrRateLimited      = errors.New("too many requests")
)

// messageError attaches a client-facing message to a sentinel kind.
type messageError struct {
	kind error
	msg  string
}

func (e *messageError) Error() string { return e.msg }

func (e *messageError) Unwrap() error { return e.kind }

// WithMessage returns an error that matches kind via errors.Is but reports msg.
func WithMessage(kind error, msg string) error {
	return &messageError{kind: kind, msg: msg}
}

// PublicMessage returns the client-facing message of err: the message given
// to WithMessage if present, otherwise the text of kind.
func PublicMessage(err, kind error) string {
	var me *messageError
	if errors.As(err, &me) && errors.Is(me.kind, kind) {
		return me.msg
	}
	return kind.Error()
}
