// Package httpapi is the REST boundary: request decoding, bearer
// authentication, rate limiting and the mapping of service errors to HTTP
// responses.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/logging"
	"github.com/dmitrijs2005/lemonauth/internal/server/models"
	"github.com/dmitrijs2005/lemonauth/internal/server/services"
)

type AuthEngine interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, identifier, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	SendEmailVerification(ctx context.Context, userID string) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerificationCode(ctx context.Context, email string) error
	VerifyEmailWithCode(ctx context.Context, email, code string) error
	ForgotPassword(ctx context.Context, email string) error
	VerifyForgotOTP(ctx context.Context, email, otp string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
}

type MFAEngine interface {
	Setup(ctx context.Context, userID string) (*services.MFASetup, error)
	Verify(ctx context.Context, userID, code string) (bool, error)
	Disable(ctx context.Context, userID, code string) error
	Status(ctx context.Context, userID string) (bool, error)
	VerifyAndIssueTokens(ctx context.Context, userID, code string) (*services.TokenPair, error)
}

type OptionCatalog interface {
	CreateOrUpdate(ctx context.Context, actorID string, in services.OptionInput) (*models.Option, error)
	ListMinimal(ctx context.Context) ([]models.OptionListItem, error)
	ListByType(ctx context.Context, optionType string) ([]models.Option, error)
}

type Handler struct {
	auth      AuthEngine
	mfa       MFAEngine
	options   OptionCatalog
	logger    logging.Logger
	jwtSecret []byte
	started   time.Time
}

func NewHandler(a AuthEngine, m MFAEngine, o OptionCatalog, logger logging.Logger, secretKey string) *Handler {
	return &Handler{
		auth:      a,
		mfa:       m,
		options:   o,
		logger:    logger,
		jwtSecret: []byte(secretKey),
		started:   time.Now(),
	}
}
