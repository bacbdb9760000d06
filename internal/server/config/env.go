package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/timex"
	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every environment variable read by parseEnv.
const EnvPrefix = "LEMONAUTH_"

// parseEnv loads an optional .env file (path overridable with
// LEMONAUTH_ENV_FILE) and overlays any LEMONAUTH_* variables onto config.
// Variables already present in the process environment win over .env.
// Malformed numeric or duration values are ignored.
func parseEnv(config *Config) {
	envFile := os.Getenv(EnvPrefix + "ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	// a missing .env file is normal in containers
	_ = godotenv.Load(envFile)

	envString(&config.HTTPAddr, "HTTP_ADDR")
	envString(&config.GRPCAddr, "GRPC_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SecretKey, "SECRET_KEY")
	envDuration(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_TTL")
	envDuration(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_TTL")
	envDuration(&config.MFATokenValidityDuration, "MFA_TOKEN_TTL")
	envDuration(&config.VerificationCodeValidityDuration, "VERIFICATION_CODE_TTL")
	envDuration(&config.PasswordResetValidityDuration, "PASSWORD_RESET_TTL")
	envString(&config.TOTPIssuer, "TOTP_ISSUER")
	envString(&config.MFAEncryptionKey, "MFA_ENCRYPTION_KEY")
	envString(&config.FrontendURL, "FRONTEND_URL")
	envList(&config.CORSOrigins, "CORS_ORIGINS")
	envString(&config.RedisAddr, "REDIS_ADDR")
	envString(&config.RedisPassword, "REDIS_PASSWORD")
	envInt(&config.RateLimitMax, "RATE_LIMIT_MAX")
	envDuration(&config.RateLimitWindow, "RATE_LIMIT_WINDOW")
	envString(&config.NotifierKind, "NOTIFIER")
	envDuration(&config.NotifierTimeout, "NOTIFIER_TIMEOUT")
	envInt(&config.NotifierQueueSize, "NOTIFIER_QUEUE_SIZE")
	envString(&config.SMTPHost, "SMTP_HOST")
	envInt(&config.SMTPPort, "SMTP_PORT")
	envString(&config.SMTPUsername, "SMTP_USERNAME")
	envString(&config.SMTPPassword, "SMTP_PASSWORD")
	envString(&config.SMTPFrom, "SMTP_FROM")
	envList(&config.KafkaBrokers, "KAFKA_BROKERS")
	envString(&config.KafkaTopic, "KAFKA_TOPIC")
	envString(&config.LogLevel, "LOG_LEVEL")
	envString(&config.LogFormat, "LOG_FORMAT")
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func envString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v, ok := lookup(key); ok {
		if d, err := timex.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envList(dst *[]string, key string) {
	if v, ok := lookup(key); ok {
		*dst = splitList(v)
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
