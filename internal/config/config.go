// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env  string `envconfig:"APP_ENV" default:"dev"`    // application environment (dev, test, production)
	Port string `envconfig:"APP_PORT" default:"8080"` // HTTP port to listen on

	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite3"` // mysql | sqlite3 | memory
	DBUser      string `envconfig:"DB_USER" default:"root"`
	DBPass      string `envconfig:"DB_PASS"` // empty allowed
	DBHost      string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBPort      string `envconfig:"DB_PORT" default:"3306"`
	DBName      string `envconfig:"DB_NAME" default:"reservas"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"reservas.db"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`

	RabbitURL      string `envconfig:"RABBITMQ_URL"` // events are disabled when empty
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"reservations"`
	AuditQueue     string `envconfig:"AUDIT_QUEUE" default:"reservations.audit"`
	AuditLogPath   string `envconfig:"AUDIT_LOG_PATH" default:"logs/reservations.log"`
	AuditConsumer  bool   `envconfig:"AUDIT_CONSUMER" default:"false"`

	LockTTL        time.Duration `envconfig:"LOCK_TTL" default:"10s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`

	Redis     RedisConfig     `ignored:"true"`
	Cache     CacheConfig     `ignored:"true"`
	RateLimit RateLimitConfig `ignored:"true"`
}

// Load reads .env (when present) and then the process environment, which
// takes precedence.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	for _, spec := range []interface{}{&cfg, &cfg.Redis, &cfg.Cache, &cfg.RateLimit} {
		if err := envconfig.Process("", spec); err != nil {
			return Config{}, fmt.Errorf("process env: %w", err)
		}
	}
	switch cfg.DBDriver {
	case "mysql", "sqlite3", "memory":
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be mysql, sqlite3 or memory, got %q", cfg.DBDriver)
	}
	cfg.Cache.normalize()
	cfg.RateLimit.normalize()
	return cfg, nil
}

func (c Config) Production() bool { return c.Env == "production" }
