package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_OverlaysPrefixedVariables(t *testing.T) {
	t.Setenv(EnvPrefix+"ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv(EnvPrefix+"HTTP_ADDR", ":8088")
	t.Setenv(EnvPrefix+"ACCESS_TOKEN_TTL", "20m")
	t.Setenv(EnvPrefix+"REFRESH_TOKEN_TTL", "7d")
	t.Setenv(EnvPrefix+"RATE_LIMIT_MAX", "42")
	t.Setenv(EnvPrefix+"KAFKA_BROKERS", "a:1, b:2,")
	t.Setenv(EnvPrefix+"SMTP_PORT", "not-a-number")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, ":8088", c.HTTPAddr)
	assert.Equal(t, 20*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, 42, c.RateLimitMax)
	assert.Equal(t, []string{"a:1", "b:2"}, c.KafkaBrokers)
	assert.Equal(t, 587, c.SMTPPort, "malformed values are ignored")
}

func TestParseEnv_ReadsDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LEMONAUTH_TOTP_ISSUER=FromDotEnv\nLEMONAUTH_LOG_FORMAT=text\n"), 0o600))
	t.Setenv(EnvPrefix+"ENV_FILE", path)
	t.Cleanup(func() {
		os.Unsetenv(EnvPrefix + "TOTP_ISSUER")
		os.Unsetenv(EnvPrefix + "LOG_FORMAT")
	})

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "FromDotEnv", c.TOTPIssuer)
	assert.Equal(t, "text", c.LogFormat)
}
