package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration, parsed once at startup and
// passed down by value. Token secrets are deliberately separate so that
// compromise of one kind cannot forge another.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Origin string `env:"CORS_ORIGIN" envDefault:"*"`

	DatabaseURL        string        `env:"DATABASE_URL,required"`
	DBMaxOpenConns     int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns     int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime  time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBConnMaxIdleTime  time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"10m"`

	SentryDSN string `env:"SENTRY_DSN"`

	Tokens TokenConfig

	OTPTTL       time.Duration `env:"OTP_TTL" envDefault:"5m"`
	LockDuration time.Duration `env:"OTP_LOCK_DURATION" envDefault:"60m"`

	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"465"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	CronSecret           string        `env:"CRON_SECRET"`
	CleanupLockRetention time.Duration `env:"AUTH_LOCK_RETENTION" envDefault:"720h"`
}

// TokenConfig carries one secret and TTL per token kind.
type TokenConfig struct {
	VerifySecret  string        `env:"JWT_VERIFY_TOKEN_SECRET,required"`
	VerifyTTL     time.Duration `env:"VERIFY_TOKEN_TTL" envDefault:"7m"`
	ResendSecret  string        `env:"JWT_RESEND_OTP_TOKEN_SECRET,required"`
	ResendTTL     time.Duration `env:"RESEND_TOKEN_TTL" envDefault:"22m"`
	AccessSecret  string        `env:"JWT_SECRET,required"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshSecret string        `env:"JWT_REFRESH_TOKEN_SECRET,required"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"360h"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
