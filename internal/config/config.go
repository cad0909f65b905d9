package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port               string   `env:"PORT" envDefault:"8080"`
	GinMode            string   `env:"GIN_MODE" envDefault:"debug"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000,http://localhost:5173" envSeparator:","`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info"`
	Timezone           string   `env:"APP_TIMEZONE" envDefault:"Local"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBUser      string `env:"DB_USER" envDefault:"postgres"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME" envDefault:"returnremind"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBSSLMode   string `env:"DB_SSL_MODE" envDefault:"disable"`

	EmailEnabled   bool          `env:"EMAIL_ENABLED" envDefault:"false"`
	EmailFrom      string        `env:"EMAIL_FROM" envDefault:"noreply@returnremind.com"`
	EmailFromName  string        `env:"SENDGRID_FROM_NAME" envDefault:"ReturnRemind"`
	SendGridAPIKey string        `env:"SENDGRID_API_KEY"`
	EmailTimeout   time.Duration `env:"EMAIL_TIMEOUT" envDefault:"10s"`

	ReminderSweepInterval    time.Duration `env:"REMINDER_SWEEP_INTERVAL" envDefault:"60s"`
	ReminderSweepConcurrency int           `env:"REMINDER_SWEEP_CONCURRENCY" envDefault:"4"`
	ArchiveSweepSchedule     string        `env:"ARCHIVE_SWEEP_SCHEDULE" envDefault:"0 2 * * *"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	SweepLockTTL  time.Duration `env:"SWEEP_LOCK_TTL" envDefault:"5m"`
}

// Load parses the environment into a Config and validates it.
// Callers load any .env file beforehand.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.StoreDriver))
	}
	if c.EmailEnabled && strings.TrimSpace(c.SendGridAPIKey) == "" {
		errs = append(errs, errors.New("SENDGRID_API_KEY is required when EMAIL_ENABLED=true"))
	}
	if c.ReminderSweepInterval <= 0 {
		errs = append(errs, errors.New("REMINDER_SWEEP_INTERVAL must be positive"))
	}
	if c.ReminderSweepConcurrency < 1 {
		errs = append(errs, errors.New("REMINDER_SWEEP_CONCURRENCY must be at least 1"))
	}
	if c.SweepLockTTL <= 0 {
		errs = append(errs, errors.New("SWEEP_LOCK_TTL must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the DB_* variables
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC connect_timeout=10",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// Location resolves APP_TIMEZONE, the zone in which calendar days begin
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	return loc, nil
}
