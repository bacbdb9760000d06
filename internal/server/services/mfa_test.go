package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/dmitrijs2005/lemonauth/internal/server/auth"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestMFA_NotSetUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.registerVerified(t, "alice", "alice@x.com", "secret1")

	_, err := env.mfa.Verify(ctx, id, "123456")
	assert.ErrorIs(t, err, common.ErrMfaNotSetup)

	assert.ErrorIs(t, env.mfa.Disable(ctx, id, "123456"), common.ErrMfaNotSetup)

	_, err = env.mfa.VerifyAndIssueTokens(ctx, id, "123456")
	assert.ErrorIs(t, err, common.ErrMfaNotSetup)

	enabled, err := env.mfa.Status(ctx, id)
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = env.mfa.Setup(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMFA_SetupStoresSealedSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.registerVerified(t, "alice", "alice@x.com", "secret1")

	setup, err := env.mfa.Setup(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.True(t, strings.HasPrefix(setup.QR, "data:image/png;base64,"))

	stored := env.store.User(id)
	assert.NotEmpty(t, stored.MFASecret)
	assert.NotEqual(t, setup.Secret, stored.MFASecret, "secret is sealed at rest")
	assert.False(t, stored.MFAEnabled)
}

func TestMFA_InvalidCodeChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.registerVerified(t, "alice", "alice@x.com", "secret1")

	_, err := env.mfa.Setup(ctx, id)
	require.NoError(t, err)

	ok, err := env.mfa.Verify(ctx, id, "000000")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, env.store.User(id).MFAEnabled)
}

func TestMFA_ReSetupInvalidatesPreviousSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.registerVerified(t, "alice", "alice@x.com", "secret1")

	first, err := env.mfa.Setup(ctx, id)
	require.NoError(t, err)
	second, err := env.mfa.Setup(ctx, id)
	require.NoError(t, err)
	require.NotEqual(t, first.Secret, second.Secret)

	ok, err := env.mfa.Verify(ctx, id, currentCode(t, second.Secret))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMFA_FullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.registerVerified(t, "alice", "alice@x.com", "secret1")

	setup, err := env.mfa.Setup(ctx, id)
	require.NoError(t, err)

	ok, err := env.mfa.Verify(ctx, id, currentCode(t, setup.Secret))
	require.NoError(t, err)
	require.True(t, ok)

	enabled, err := env.mfa.Status(ctx, id)
	require.NoError(t, err)
	assert.True(t, enabled)

	// login now stops at the challenge
	res, err := env.auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	require.True(t, res.MFARequired)
	assert.Nil(t, res.Tokens)

	challengeUser, err := auth.GetUserIDFromMFAToken(res.MFAToken, []byte(testSecret))
	require.NoError(t, err)
	require.Equal(t, id, challengeUser)

	_, err = env.mfa.VerifyAndIssueTokens(ctx, challengeUser, "000000")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Zero(t, env.store.SessionCount(id))

	tokens, err := env.mfa.VerifyAndIssueTokens(ctx, challengeUser, currentCode(t, setup.Secret))
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.Equal(t, 1, env.store.SessionCount(id))

	// disabling requires a valid code
	assert.ErrorIs(t, env.mfa.Disable(ctx, id, "000000"), common.ErrInvalidCredentials)
	require.NoError(t, env.mfa.Disable(ctx, id, currentCode(t, setup.Secret)))

	stored := env.store.User(id)
	assert.False(t, stored.MFAEnabled)
	assert.Empty(t, stored.MFASecret)

	res, err = env.auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.False(t, res.MFARequired)
	assert.NotNil(t, res.Tokens)
}
