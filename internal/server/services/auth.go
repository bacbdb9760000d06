package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/dmitrijs2005/lemonauth/internal/logging"
	"github.com/dmitrijs2005/lemonauth/internal/server/auth"
	"github.com/dmitrijs2005/lemonauth/internal/server/config"
	"github.com/dmitrijs2005/lemonauth/internal/server/models"
	"github.com/dmitrijs2005/lemonauth/internal/server/notify"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/repomanager"
)

// linkTokenLength is the hex length of auth.LinkToken values.
const linkTokenLength = 48

// LoginResult carries either a token pair or an MFA challenge, never both.
type LoginResult struct {
	Tokens      *TokenPair
	MFARequired bool
	MFAToken    string
}

type AuthService struct {
	store    repomanager.Store
	hasher   *auth.PasswordHasher
	issuer   *SessionIssuer
	notifier notify.Notifier
	logger   logging.Logger

	jwtSecret                        []byte
	mfaTokenValidityDuration         time.Duration
	verificationCodeValidityDuration time.Duration
	passwordResetValidityDuration    time.Duration
	frontendURL                      string

	dummyOnce sync.Once
	dummyHash string

	now func() time.Time
}

func NewAuthService(store repomanager.Store, hasher *auth.PasswordHasher, issuer *SessionIssuer,
	notifier notify.Notifier, logger logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		store:                            store,
		hasher:                           hasher,
		issuer:                           issuer,
		notifier:                         notifier,
		logger:                           logger.With("module", "auth_service"),
		jwtSecret:                        []byte(cfg.SecretKey),
		mfaTokenValidityDuration:         cfg.MFATokenValidityDuration,
		verificationCodeValidityDuration: cfg.VerificationCodeValidityDuration,
		passwordResetValidityDuration:    cfg.PasswordResetValidityDuration,
		frontendURL:                      strings.TrimRight(cfg.FrontendURL, "/"),
		now:                              time.Now,
	}
}

// Register creates an unverified user and emails a verification code.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	repo := s.store.Users()

	exists, err := repo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("error checking existing user: %w", err)
	}
	if exists {
		return nil, common.ErrDuplicateIdentity
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	code, err := auth.VerificationCode()
	if err != nil {
		return nil, fmt.Errorf("error generating verification code: %w", err)
	}
	expires := s.now().Add(s.verificationCodeValidityDuration)

	user, err := repo.Create(ctx, &models.NewUser{
		Username:                 username,
		Email:                    email,
		PasswordHash:             hash,
		Role:                     models.RoleUser,
		IsActive:                 true,
		EmailVerificationToken:   &code,
		EmailVerificationExpires: &expires,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.notifier.Notify(ctx, notify.VerificationCodeMessage(user.Email, code))
	s.logger.Info(ctx, "user registered", "user_id", user.ID)

	return user, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(hex.EncodeToString(common.GenerateRandByteArray(16)))
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// Login checks the password before revealing anything about the account, so
// unknown identifiers and wrong passwords cost the same and look the same.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	repo := s.store.Users()

	user, err := repo.GetAuthByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Verify(password, s.dummy())
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
		return nil, common.ErrInvalidCredentials
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, common.ErrDisabledAccount
	}
	if !user.EmailVerified {
		return nil, common.ErrInvalidCredentials
	}

	s.upgradeHash(ctx, user.ID, password, user.PasswordHash)

	if user.MFAEnabled {
		token, err := auth.GenerateMFAToken(user.ID, s.jwtSecret, s.mfaTokenValidityDuration)
		if err != nil {
			return nil, fmt.Errorf("error generating mfa token: %w", err)
		}
		return &LoginResult{MFARequired: true, MFAToken: token}, nil
	}

	tokens, err := s.issuer.Issue(ctx, s.store, user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Tokens: tokens}, nil
}

// upgradeHash rehashes with current parameters. Failures only get logged.
func (s *AuthService) upgradeHash(ctx context.Context, userID, password, encoded string) {
	if !s.hasher.NeedsUpgrade(encoded) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.store.Users().UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		s.logger.Warn(ctx, "password hash upgrade failed", "user_id", userID, "error", err)
		return
	}
	s.logger.Info(ctx, "password hash upgraded", "user_id", userID)
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token stays valid until it expires or is logged out.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", common.ErrInvalidOrExpiredToken
	}

	session, err := s.store.Sessions().Find(ctx, auth.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidOrExpiredToken
		}
		return "", fmt.Errorf("error searching refresh token: %w", err)
	}

	if !session.Valid(s.now()) {
		return "", common.ErrInvalidOrExpiredToken
	}

	return s.issuer.AccessToken(session.UserID)
}

// Logout deletes the session. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.store.Sessions().Delete(ctx, auth.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// SendEmailVerification emails a verification link to userID.
func (s *AuthService) SendEmailVerification(ctx context.Context, userID string) error {
	repo := s.store.Users()

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.WithMessage(common.ErrorNotFound, "user not found")
		}
		return fmt.Errorf("error searching user: %w", err)
	}
	if user.EmailVerified {
		return common.ErrAlreadyVerified
	}

	token, err := auth.LinkToken()
	if err != nil {
		return fmt.Errorf("error generating verification token: %w", err)
	}
	if err := repo.SetEmailVerification(ctx, user.ID, token, s.now().Add(s.verificationCodeValidityDuration)); err != nil {
		return fmt.Errorf("error saving verification token: %w", err)
	}

	link := s.frontendURL + "/verify-email?token=" + url.QueryEscape(token)
	s.notifier.Notify(ctx, notify.VerificationLinkMessage(user.Email, link))

	return nil
}

// VerifyEmail consumes a link token sent by SendEmailVerification.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	invalid := common.WithMessage(common.ErrInvalidCredentials, "invalid token")
	if len(token) != linkTokenLength {
		return invalid
	}

	repo := s.store.Users()

	user, err := repo.GetAuthByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return invalid
		}
		return fmt.Errorf("error searching verification token: %w", err)
	}
	if user.EmailVerified {
		return common.ErrAlreadyVerified
	}

	now := s.now()
	if user.EmailVerificationExpires == nil || !now.Before(*user.EmailVerificationExpires) {
		return common.ErrTokenExpired
	}

	return s.consumeEmailVerification(ctx, user.ID, token, now)
}

func (s *AuthService) consumeEmailVerification(ctx context.Context, userID, token string, now time.Time) error {
	ok, err := s.store.Users().ConsumeEmailVerification(ctx, userID, token, now)
	if err != nil {
		return fmt.Errorf("error verifying email: %w", err)
	}
	if !ok {
		return common.WithMessage(common.ErrInvalidCredentials, "invalid verification code")
	}
	s.logger.Info(ctx, "email verified", "user_id", userID)
	return nil
}

// ResendVerificationCode replaces any pending code and emails a new one.
func (s *AuthService) ResendVerificationCode(ctx context.Context, email string) error {
	repo := s.store.Users()

	user, err := repo.GetAuthByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.WithMessage(common.ErrorNotFound, "user not found")
		}
		return fmt.Errorf("error searching user: %w", err)
	}
	if user.EmailVerified {
		return common.ErrAlreadyVerified
	}

	code, err := auth.VerificationCode()
	if err != nil {
		return fmt.Errorf("error generating verification code: %w", err)
	}
	if err := repo.SetEmailVerification(ctx, user.ID, code, s.now().Add(s.verificationCodeValidityDuration)); err != nil {
		return fmt.Errorf("error saving verification code: %w", err)
	}

	s.notifier.Notify(ctx, notify.VerificationCodeMessage(user.Email, code))

	return nil
}

// VerifyEmailWithCode marks the email verified when code matches the pending
// one and has not expired.
func (s *AuthService) VerifyEmailWithCode(ctx context.Context, email, code string) error {
	user, err := s.store.Users().GetAuthByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.WithMessage(common.ErrorNotFound, "user not found")
		}
		return fmt.Errorf("error searching user: %w", err)
	}
	if user.EmailVerified {
		return common.ErrAlreadyVerified
	}
	if user.EmailVerificationToken == nil || user.EmailVerificationExpires == nil {
		return common.WithMessage(common.ErrNoPendingCode, "no verification code found, please request a new one")
	}
	if !auth.EqualSecrets(*user.EmailVerificationToken, code) {
		return common.WithMessage(common.ErrInvalidCredentials, "invalid verification code")
	}

	now := s.now()
	if !now.Before(*user.EmailVerificationExpires) {
		return common.WithMessage(common.ErrTokenExpired, "verification code expired")
	}

	return s.consumeEmailVerification(ctx, user.ID, code, now)
}

// ForgotPassword emails a 6-digit reset OTP.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	repo := s.store.Users()

	user, err := repo.GetAuthByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.WithMessage(common.ErrorNotFound, "user not found")
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	otp, err := auth.NumericOTP()
	if err != nil {
		return fmt.Errorf("error generating otp: %w", err)
	}
	if err := repo.SetForgotPasswordOTP(ctx, user.ID, otp, s.now().Add(s.passwordResetValidityDuration)); err != nil {
		return fmt.Errorf("error saving otp: %w", err)
	}

	s.notifier.Notify(ctx, notify.PasswordResetMessage(user.Email, otp))

	return nil
}

func (s *AuthService) checkResetOTP(ctx context.Context, email, otp string) (*models.AuthUser, time.Time, error) {
	invalid := common.WithMessage(common.ErrInvalidCredentials, "invalid OTP")

	user, err := s.store.Users().GetAuthByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, time.Time{}, invalid
		}
		return nil, time.Time{}, fmt.Errorf("error searching user: %w", err)
	}
	if user.ForgotPasswordOTP == nil || user.ForgotPasswordExpires == nil || !auth.EqualSecrets(*user.ForgotPasswordOTP, otp) {
		return nil, time.Time{}, invalid
	}

	now := s.now()
	if !now.Before(*user.ForgotPasswordExpires) {
		return nil, time.Time{}, common.WithMessage(common.ErrTokenExpired, "OTP expired")
	}

	return user, now, nil
}

// VerifyForgotOTP validates the reset OTP without consuming it.
func (s *AuthService) VerifyForgotOTP(ctx context.Context, email, otp string) error {
	_, _, err := s.checkResetOTP(ctx, email, otp)
	return err
}

// ResetPassword sets a new password, clears the OTP and revokes all of the
// user's sessions in one transaction.
func (s *AuthService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, now, err := s.checkResetOTP(ctx, email, otp)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	var revoked int64
	err = s.store.WithinTx(ctx, func(ctx context.Context, st repomanager.Store) error {
		ok, err := st.Users().ResetPassword(ctx, user.ID, otp, hash, now)
		if err != nil {
			return fmt.Errorf("error resetting password: %w", err)
		}
		if !ok {
			return common.WithMessage(common.ErrInvalidCredentials, "invalid OTP")
		}
		revoked, err = st.Sessions().DeleteByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("error revoking sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "password reset", "user_id", user.ID, "sessions_revoked", revoked)
	return nil
}
