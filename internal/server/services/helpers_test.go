package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/cryptox"
	"github.com/dmitrijs2005/lemonauth/internal/logging"
	"github.com/dmitrijs2005/lemonauth/internal/server/auth"
	"github.com/dmitrijs2005/lemonauth/internal/server/config"
	"github.com/dmitrijs2005/lemonauth/internal/server/models"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/storetest"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var testArgon2Params = auth.Argon2Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                        testSecret,
		AccessTokenValidityDuration:      15 * time.Minute,
		RefreshTokenValidityDuration:     30 * 24 * time.Hour,
		MFATokenValidityDuration:         5 * time.Minute,
		VerificationCodeValidityDuration: 15 * time.Minute,
		PasswordResetValidityDuration:    15 * time.Minute,
		TOTPIssuer:                       "LemonApp",
		FrontendURL:                      "https://app.example/",
	}
}

type testEnv struct {
	store    *storetest.Store
	notifier *fakeNotifier
	issuer   *SessionIssuer
	auth     *AuthService
	mfa      *MFAService
	options  *OptionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testConfig()
	store := storetest.New()
	notifier := &fakeNotifier{}
	issuer := NewSessionIssuer(cfg)

	sealer, err := cryptox.NewSealerFromHex("", testSecret)
	require.NoError(t, err)

	return &testEnv{
		store:    store,
		notifier: notifier,
		issuer:   issuer,
		auth:     NewAuthService(store, auth.NewPasswordHasher(testArgon2Params), issuer, notifier, logging.Nop{}, cfg),
		mfa:      NewMFAService(store, issuer, sealer, logging.Nop{}, cfg),
		options:  NewOptionService(store, logging.Nop{}),
	}
}

// registerVerified registers a user and marks the email verified.
func (e *testEnv) registerVerified(t *testing.T, username, email, password string) string {
	t.Helper()

	u, err := e.auth.Register(context.Background(), username, email, password)
	require.NoError(t, err)
	e.store.Mutate(u.ID, func(u *models.AuthUser) {
		u.EmailVerified = true
		u.EmailVerificationToken, u.EmailVerificationExpires = nil, nil
	})
	return u.ID
}

// pendingCode returns the code sent in the latest notification.
func (e *testEnv) pendingCode(t *testing.T, userID string) string {
	t.Helper()

	u := e.store.User(userID)
	require.NotNil(t, u)
	require.NotNil(t, u.EmailVerificationToken)
	return *u.EmailVerificationToken
}
