package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/flagx"
	"github.com/dmitrijs2005/lemonauth/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. It is decoded from
// JSON or YAML depending on the file extension. Durations use timex.Duration
// so both "15m" / "30d" strings and integer nanoseconds are accepted.
//
// Only fields present in the file override the running Config.
type FileConfig struct {
	HTTPAddr    string `json:"http_addr" yaml:"http_addr"`
	GRPCAddr    string `json:"grpc_addr" yaml:"grpc_addr"`
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn"`
	SecretKey   string `json:"secret_key" yaml:"secret_key"`

	AccessTokenValidityDuration      *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration     *timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	MFATokenValidityDuration         *timex.Duration `json:"mfa_token_validity_duration" yaml:"mfa_token_validity_duration"`
	VerificationCodeValidityDuration *timex.Duration `json:"verification_code_validity_duration" yaml:"verification_code_validity_duration"`
	PasswordResetValidityDuration    *timex.Duration `json:"password_reset_validity_duration" yaml:"password_reset_validity_duration"`

	TOTPIssuer       string   `json:"totp_issuer" yaml:"totp_issuer"`
	MFAEncryptionKey string   `json:"mfa_encryption_key" yaml:"mfa_encryption_key"`
	FrontendURL      string   `json:"frontend_url" yaml:"frontend_url"`
	CORSOrigins      []string `json:"cors_origins" yaml:"cors_origins"`

	RedisAddr       string          `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword   string          `json:"redis_password" yaml:"redis_password"`
	RateLimitMax    int             `json:"rate_limit_max" yaml:"rate_limit_max"`
	RateLimitWindow *timex.Duration `json:"rate_limit_window" yaml:"rate_limit_window"`

	Notifier struct {
		Kind      string          `json:"kind" yaml:"kind"`
		Timeout   *timex.Duration `json:"timeout" yaml:"timeout"`
		QueueSize int             `json:"queue_size" yaml:"queue_size"`
	} `json:"notifier" yaml:"notifier"`

	SMTP struct {
		Host     string `json:"host" yaml:"host"`
		Port     int    `json:"port" yaml:"port"`
		Username string `json:"username" yaml:"username"`
		Password string `json:"password" yaml:"password"`
		From     string `json:"from" yaml:"from"`
	} `json:"smtp" yaml:"smtp"`

	Kafka struct {
		Brokers []string `json:"brokers" yaml:"brokers"`
		Topic   string   `json:"topic" yaml:"topic"`
	} `json:"kafka" yaml:"kafka"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`
}

// parseFile loads the file named by the -c or -config flag into config.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
// If no flag is given nothing happens. Read or decode failures panic.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.MFATokenValidityDuration, c.MFATokenValidityDuration)
	setDuration(&config.VerificationCodeValidityDuration, c.VerificationCodeValidityDuration)
	setDuration(&config.PasswordResetValidityDuration, c.PasswordResetValidityDuration)
	setString(&config.TOTPIssuer, c.TOTPIssuer)
	setString(&config.MFAEncryptionKey, c.MFAEncryptionKey)
	setString(&config.FrontendURL, c.FrontendURL)
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RateLimitMax, c.RateLimitMax)
	setDuration(&config.RateLimitWindow, c.RateLimitWindow)
	setString(&config.NotifierKind, c.Notifier.Kind)
	setDuration(&config.NotifierTimeout, c.Notifier.Timeout)
	setInt(&config.NotifierQueueSize, c.Notifier.QueueSize)
	setString(&config.SMTPHost, c.SMTP.Host)
	setInt(&config.SMTPPort, c.SMTP.Port)
	setString(&config.SMTPUsername, c.SMTP.Username)
	setString(&config.SMTPPassword, c.SMTP.Password)
	setString(&config.SMTPFrom, c.SMTP.From)
	if len(c.Kafka.Brokers) > 0 {
		config.KafkaBrokers = c.Kafka.Brokers
	}
	setString(&config.KafkaTopic, c.Kafka.Topic)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
