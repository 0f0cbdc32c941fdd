package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App    AppConfig
	HTTP   HTTPConfig
	DB     DBConfig
	Redis  RedisConfig
	Stripe StripeConfig
	Auth   AuthConfig
	Portal PortalConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOG_WARN_STACK" default:"false"`
}

type HTTPConfig struct {
	Host              string        `envconfig:"HOST" default:"0.0.0.0"`
	Port              int           `envconfig:"PORT" default:"8004"`
	ReadHeaderTimeout time.Duration `envconfig:"HTTP_READ_HEADER_TIMEOUT" default:"10s"`
	ShutdownTimeout   time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

// Addr returns the host:port pair the API listens on.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

type DBConfig struct {
	Driver string `envconfig:"DB_DRIVER" default:"sqlite"`
	Path   string `envconfig:"DB_PATH" default:"/data/billing/billing.db"`
	DSN    string `envconfig:"DB_DSN"`

	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
}

// IsSQLite reports whether the subscriber table lives in a local SQLite file.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

func (db *DBConfig) validate() error {
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	switch db.Driver {
	case DBDriverSQLite:
		if strings.TrimSpace(db.Path) == "" {
			return fmt.Errorf("%s is required for the sqlite driver", EnvDBPath)
		}
	case DBDriverPostgres:
		if strings.TrimSpace(db.DSN) == "" {
			return fmt.Errorf("%s is required for the postgres driver", EnvDBDSN)
		}
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvDBDriver, DBDriverSQLite, DBDriverPostgres, db.Driver)
	}
	return nil
}

type RedisConfig struct {
	URL            string        `envconfig:"REDIS_URL"`
	PoolSize       int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout    time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout   time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
	IdempotencyTTL time.Duration `envconfig:"WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

// Enabled reports whether webhook event de-duplication should use Redis.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type StripeConfig struct {
	APIKey        string `envconfig:"STRIPE_API_KEY" required:"true"`
	WebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	Env           string `envconfig:"STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type AuthConfig struct {
	InternalAPIKey string `envconfig:"INTERNAL_API_KEY" required:"true"`
}

type PortalConfig struct {
	ReturnURL string `envconfig:"PORTAL_RETURN_URL" default:"https://t.me"`
}
