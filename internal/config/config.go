package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	HTTP         HTTPConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name    string `envconfig:"APP_NAME" default:"safetrack-api"`
	Env     string `envconfig:"APP_ENV" default:"development"`
	Host    string `envconfig:"APP_HOST" default:"0.0.0.0"`
	Port    string `envconfig:"PORT" default:"4000"`
	Version string `envconfig:"APP_VERSION" default:"dev"`
}

// HTTPConfig holds edge middleware settings.
type HTTPConfig struct {
	CORSOrigin            string        `envconfig:"CORS_ORIGIN" default:"http://localhost:5173"`
	RateLimitMax          int           `envconfig:"RATE_LIMIT_MAX" default:"100"`
	RateLimitWindow       time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	RequestTimeoutSeconds int           `envconfig:"HTTP_REQUEST_TIMEOUT_SECONDS" default:"30"`
	BodyLimitBytes        int           `envconfig:"HTTP_BODY_LIMIT_BYTES" default:"1048576"`
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN            string `envconfig:"POSTGRES_DSN"`
	Password       string `envconfig:"POSTGRES_PASSWORD"`
	MaxConns       int32  `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
	MinConns       int32  `envconfig:"POSTGRES_MIN_CONNS" default:"2"`
	RunMigrations  bool   `envconfig:"POSTGRES_RUN_MIGRATIONS" default:"true"`
	ConnMaxIdleSec int32  `envconfig:"POSTGRES_CONN_MAX_IDLE_SECONDS" default:"30"`
	ConnMaxLifeSec int32  `envconfig:"POSTGRES_CONN_MAX_LIFE_SECONDS" default:"300"`
}

// RedisConfig holds Redis connection values. An empty address keeps rate
// limit counters in process memory.
type RedisConfig struct {
	Addr      string `envconfig:"REDIS_ADDR"`
	Password  string `envconfig:"REDIS_PASSWORD"`
	DB        int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"safetrack:ratelimit:"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// NotificationConfig controls ticket event fan-out. Events are only logged
// when AMQPURL is empty.
type NotificationConfig struct {
	AMQPURL  string `envconfig:"AMQP_URL"`
	Exchange string `envconfig:"AMQP_EXCHANGE" default:"safetrack.events"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	groups := []any{&cfg.App, &cfg.HTTP, &cfg.Postgres, &cfg.Redis, &cfg.Logger, &cfg.Notification}
	for _, group := range groups {
		if err := envconfig.Process("", group); err != nil {
			return nil, fmt.Errorf("process env: %w", err)
		}
	}
	if cfg.HTTP.RateLimitMax < 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_MAX: %d", cfg.HTTP.RateLimitMax)
	}
	return &cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (h HTTPConfig) RequestTimeout() time.Duration {
	if h.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(h.RequestTimeoutSeconds) * time.Second
}

// InMemory reports whether no database is configured.
func (p PostgresConfig) InMemory() bool {
	return p.DSN == ""
}
