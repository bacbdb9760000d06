package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/dmitrijs2005/lemonauth/internal/cryptox"
	"github.com/dmitrijs2005/lemonauth/internal/logging"
	"github.com/dmitrijs2005/lemonauth/internal/server/auth"
	"github.com/dmitrijs2005/lemonauth/internal/server/config"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/repomanager"
)

// MFASetup is returned to the user once per enrollment.
type MFASetup struct {
	Secret string
	QR     string
}

// MFAService drives the per-user TOTP state machine:
// no MFA -> pending (secret stored, disabled) -> enabled, and back to no MFA
// on disable.
type MFAService struct {
	store      repomanager.Store
	issuer     *SessionIssuer
	sealer     *cryptox.Sealer
	logger     logging.Logger
	totpIssuer string
	now        func() time.Time
}

func NewMFAService(store repomanager.Store, issuer *SessionIssuer, sealer *cryptox.Sealer,
	logger logging.Logger, cfg *config.Config) *MFAService {
	return &MFAService{
		store:      store,
		issuer:     issuer,
		sealer:     sealer,
		logger:     logger.With("module", "mfa_service"),
		totpIssuer: cfg.TOTPIssuer,
		now:        time.Now,
	}
}

// Setup generates a fresh secret, replacing any previous enrollment.
func (s *MFAService) Setup(ctx context.Context, userID string) (*MFASetup, error) {
	repo := s.store.Users()

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.WithMessage(common.ErrorNotFound, "user not found")
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	enrollment, err := auth.GenerateTOTP(s.totpIssuer, user.Email)
	if err != nil {
		return nil, err
	}

	sealed, err := s.sealer.Seal(enrollment.Secret)
	if err != nil {
		return nil, fmt.Errorf("error sealing mfa secret: %w", err)
	}
	if err := repo.SetMFASecret(ctx, user.ID, sealed); err != nil {
		return nil, fmt.Errorf("error saving mfa secret: %w", err)
	}

	s.logger.Info(ctx, "mfa enrollment started", "user_id", user.ID)

	return &MFASetup{Secret: enrollment.Secret, QR: enrollment.QR}, nil
}

// checkCode loads the user's secret and validates code against it. It
// returns the sealed secret so callers can make conditional updates.
func (s *MFAService) checkCode(ctx context.Context, userID, code string) (string, bool, error) {
	user, err := s.store.Users().GetAuthByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", false, common.WithMessage(common.ErrorNotFound, "user not found")
		}
		return "", false, fmt.Errorf("error searching user: %w", err)
	}
	if user.MFASecret == "" {
		return "", false, common.ErrMfaNotSetup
	}

	secret, err := s.sealer.Open(user.MFASecret)
	if err != nil {
		return "", false, fmt.Errorf("error opening mfa secret: %w", err)
	}

	return user.MFASecret, auth.ValidateTOTP(secret, code, s.now()), nil
}

// Verify enables MFA when code is valid. An invalid code is reported as
// false, not as an error, and changes nothing.
func (s *MFAService) Verify(ctx context.Context, userID, code string) (bool, error) {
	sealed, ok, err := s.checkCode(ctx, userID, code)
	if err != nil || !ok {
		return false, err
	}

	// A concurrent Setup replaced the secret this code was checked against.
	enabled, err := s.store.Users().EnableMFA(ctx, userID, sealed)
	if err != nil {
		return false, fmt.Errorf("error enabling mfa: %w", err)
	}
	if enabled {
		s.logger.Info(ctx, "mfa enabled", "user_id", userID)
	}
	return enabled, nil
}

// Disable clears the secret. It requires a valid current code.
func (s *MFAService) Disable(ctx context.Context, userID, code string) error {
	_, ok, err := s.checkCode(ctx, userID, code)
	if err != nil {
		return err
	}
	if !ok {
		return common.WithMessage(common.ErrInvalidCredentials, "invalid MFA code")
	}

	if err := s.store.Users().DisableMFA(ctx, userID); err != nil {
		return fmt.Errorf("error disabling mfa: %w", err)
	}

	s.logger.Info(ctx, "mfa disabled", "user_id", userID)
	return nil
}

func (s *MFAService) Status(ctx context.Context, userID string) (bool, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, common.WithMessage(common.ErrorNotFound, "user not found")
		}
		return false, fmt.Errorf("error searching user: %w", err)
	}
	return user.MFAEnabled, nil
}

// VerifyAndIssueTokens completes an MFA login. The caller has already
// validated the MFA-challenge token that names userID.
func (s *MFAService) VerifyAndIssueTokens(ctx context.Context, userID, code string) (*TokenPair, error) {
	_, ok, err := s.checkCode(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.WithMessage(common.ErrInvalidCredentials, "invalid MFA code")
	}

	return s.issuer.Issue(ctx, s.store, userID)
}
