package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseFile_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":                       "www.example:9000",
		"database_dsn":                    "auth.db",
		"secret_key":                      "my_secret_key",
		"access_token_validity_duration":  "1m",
		"refresh_token_validity_duration": "30d",
		"mfa_token_validity_duration":     "2m",
		"cors_origins":                    []string{"https://a.example"},
		"rate_limit_max":                  5,
		"notifier":                        map[string]any{"kind": "kafka", "timeout": "3s"},
		"kafka":                           map[string]any{"brokers": []string{"k1:9092"}, "topic": "mail"},
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg)

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, ":50051", cfg.GRPCAddr, "absent keys keep their value")
		assert.Equal(t, "auth.db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 1*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, 2*time.Minute, cfg.MFATokenValidityDuration)
		assert.Equal(t, []string{"https://a.example"}, cfg.CORSOrigins)
		assert.Equal(t, 5, cfg.RateLimitMax)
		assert.Equal(t, NotifierKafka, cfg.NotifierKind)
		assert.Equal(t, 3*time.Second, cfg.NotifierTimeout)
		assert.Equal(t, []string{"k1:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, "mail", cfg.KafkaTopic)
	})

	t.Run("loads from yaml", func(t *testing.T) {
		path := filepath.Join(dir, "cfg.yaml")
		yml := "http_addr: \":7000\"\nsecret_key: yaml-secret\npassword_reset_validity_duration: 10m\nsmtp:\n  host: mail.example\n  port: 2525\n"
		require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
		os.Args = []string{"testbin", "-c", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg)

		assert.Equal(t, ":7000", cfg.HTTPAddr)
		assert.Equal(t, "yaml-secret", cfg.SecretKey)
		assert.Equal(t, 10*time.Minute, cfg.PasswordResetValidityDuration)
		assert.Equal(t, "mail.example", cfg.SMTPHost)
		assert.Equal(t, 2525, cfg.SMTPPort)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{HTTPAddr: "defaults:1234", SecretKey: "key", AccessTokenValidityDuration: 2 * time.Minute}
		parseFile(cfg)

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 2*time.Minute, cfg.AccessTokenValidityDuration)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}
		require.Panics(t, func() { parseFile(&Config{}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseFile(&Config{}) })
	})
}
