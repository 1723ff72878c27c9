package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	MailDriverResend = "resend"
	MailDriverSMTP   = "smtp"
	MailDriverLog    = "log"

	StorageDriverMinio = "minio"
	StorageDriverLocal = "local"

	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	StoreDriver string `mapstructure:"STORE_DRIVER"`

	AccessTokenKey       string        `mapstructure:"ACCESS_TOKEN_KEY"`
	RefreshTokenKey      string        `mapstructure:"REFRESH_TOKEN_KEY"`
	JWTIssuer            string        `mapstructure:"JWT_ISSUER"`
	BaseURL              string        `mapstructure:"BASE_URL"`
	AccessTokenTTL       time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL      time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	VerificationTokenTTL time.Duration `mapstructure:"VERIFICATION_TOKEN_TTL"`
	ResetTokenTTL        time.Duration `mapstructure:"RESET_TOKEN_TTL"`
	ExposeResetLink      bool          `mapstructure:"EXPOSE_RESET_LINK"`

	MailDriver     string `mapstructure:"MAIL_DRIVER"`
	ResendAPIKey   string `mapstructure:"RESEND_API_KEY"`
	MailFrom       string `mapstructure:"MAIL_FROM"`
	SMTPHost       string `mapstructure:"SMTP_HOST"`
	SMTPPort       int    `mapstructure:"SMTP_PORT"`
	SMTPUsername   string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword   string `mapstructure:"SMTP_PASSWORD"`
	SMTPEncryption string `mapstructure:"SMTP_ENCRYPTION"`

	StorageDriver  string `mapstructure:"STORAGE_DRIVER"`
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`
	MinioPublicURL string `mapstructure:"MINIO_PUBLIC_URL"`
	UploadDir      string `mapstructure:"UPLOAD_DIR"`

	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	NATSURL        string `mapstructure:"NATS_URL"`
	MigrateOnStart bool   `mapstructure:"MIGRATE_ON_START"`
}

var defaults = map[string]any{
	"HTTP_ADDR":              ":8080",
	"DATABASE_URL":           "",
	"LOG_LEVEL":              "info",
	"STORE_DRIVER":           StoreDriverPostgres,
	"ACCESS_TOKEN_KEY":       "",
	"REFRESH_TOKEN_KEY":      "",
	"JWT_ISSUER":             "useraccount",
	"BASE_URL":               "http://localhost:8080",
	"ACCESS_TOKEN_TTL":       24 * time.Hour,
	"REFRESH_TOKEN_TTL":      48 * time.Hour,
	"VERIFICATION_TOKEN_TTL": 24 * time.Hour,
	"RESET_TOKEN_TTL":        time.Hour,
	"EXPOSE_RESET_LINK":      false,
	"MAIL_DRIVER":            MailDriverLog,
	"RESEND_API_KEY":         "",
	"MAIL_FROM":              "",
	"SMTP_HOST":              "",
	"SMTP_PORT":              587,
	"SMTP_USERNAME":          "",
	"SMTP_PASSWORD":          "",
	"SMTP_ENCRYPTION":        "starttls",
	"STORAGE_DRIVER":         StorageDriverLocal,
	"MINIO_ENDPOINT":         "",
	"MINIO_ACCESS_KEY":       "",
	"MINIO_SECRET_KEY":       "",
	"MINIO_BUCKET":           "profile-photos",
	"MINIO_USE_SSL":          false,
	"MINIO_PUBLIC_URL":       "",
	"UPLOAD_DIR":             "./uploads",
	"REDIS_ADDR":             "",
	"REDIS_PASSWORD":         "",
	"NATS_URL":               "",
	"MIGRATE_ON_START":       true,
}

// Load reads envFile (when present) into the environment and builds the
// configuration from environment variables over the defaults.
func Load(envFile string, logger logrus.FieldLogger) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && logger != nil {
			logger.WithError(err).Debug("env file not loaded")
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.AccessTokenKey) == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_KEY is required"))
	}
	if strings.TrimSpace(c.RefreshTokenKey) == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_KEY is required"))
	}
	if c.AccessTokenKey != "" && c.AccessTokenKey == c.RefreshTokenKey {
		errs = append(errs, errors.New("ACCESS_TOKEN_KEY and REFRESH_TOKEN_KEY must differ"))
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.MailDriver {
	case MailDriverResend:
		if c.ResendAPIKey == "" || c.MailFrom == "" {
			errs = append(errs, errors.New("RESEND_API_KEY and MAIL_FROM are required for the resend mail driver"))
		}
	case MailDriverSMTP:
		if c.SMTPHost == "" || c.MailFrom == "" {
			errs = append(errs, errors.New("SMTP_HOST and MAIL_FROM are required for the smtp mail driver"))
		}
	case MailDriverLog:
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_DRIVER %q", c.MailDriver))
	}

	switch c.StorageDriver {
	case StorageDriverMinio:
		if c.MinioEndpoint == "" || c.MinioBucket == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required for the minio storage driver"))
		}
	case StorageDriverLocal:
		if c.UploadDir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR is required for the local storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	if c.ResetTokenTTL <= 0 || c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.VerificationTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
