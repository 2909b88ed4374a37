package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/spec-kit/wiki-moderation/internal/domain"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Tracing      TracingConfig
	Moderation   ModerationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"wiki-moderation"`
	Env                   string `env:"APP_ENV" envDefault:"development"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"8080"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

// StorageConfig selects the change-request and entity store backend.
type StorageConfig struct {
	Driver     string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/wiki.db"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS" envDefault:"true"`
	MigrationsDir  string `env:"POSTGRES_MIGRATIONS_DIR" envDefault:"migrations"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr            string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password        string `env:"REDIS_PASSWORD"`
	DB              int    `env:"REDIS_DB" envDefault:"0"`
	Enabled         bool   `env:"REDIS_ENABLED" envDefault:"true"`
	CacheTTLSeconds int    `env:"REDIS_CACHE_TTL_SECONDS" envDefault:"60"`
	EventsChannel   string `env:"REDIS_EVENTS_CHANNEL" envDefault:"wiki:change-requests"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string `env:"AUTH_JWT_SECRET" envDefault:"dev-secret"`
	AccessTokenTTLMinutes int    `env:"AUTH_ACCESS_TOKEN_TTL_MINUTES" envDefault:"60"`
	// Accounts is a comma separated list of name:role:bcrypt-hash entries.
	Accounts []string `env:"AUTH_ACCOUNTS" envSeparator:","`
	// BcryptMinCost is the lowest bcrypt cost accepted for account hashes.
	BcryptMinCost int `env:"AUTH_BCRYPT_MIN_COST" envDefault:"10"`
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string `env:"NOTIFY_EMAIL_FROM" envDefault:"noreply@example.com"`
	WebhookURL string `env:"NOTIFY_WEBHOOK_URL"`
}

// TracingConfig enables OTLP trace export when an endpoint is set.
type TracingConfig struct {
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLE_RATIO" envDefault:"1"`
}

// ModerationConfig restricts which fields may receive change requests.
// An empty list accepts any field name for that kind.
type ModerationConfig struct {
	CharacterFields []string `env:"MODERATION_CHARACTER_FIELDS" envSeparator:"," envDefault:"name,bio,affiliations,relationships,socials,aliases,status"`
	MemberFields    []string `env:"MODERATION_MEMBER_FIELDS" envSeparator:"," envDefault:"name,bio,roles,affiliations,socials"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.Storage.Driver {
	case DriverPostgres:
		if cfg.Postgres.DSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required for storage driver %q", DriverPostgres)
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns the change-request list cache lifetime.
func (r RedisConfig) CacheTTL() time.Duration {
	if r.CacheTTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// FieldAllowed reports whether change requests may target the field of the given kind.
func (m ModerationConfig) FieldAllowed(kind domain.EntityType, field string) bool {
	var allowed []string
	switch kind {
	case domain.EntityCharacter:
		allowed = m.CharacterFields
	case domain.EntityMember:
		allowed = m.MemberFields
	}
	if len(allowed) == 0 {
		return true
	}
	field = strings.TrimSpace(field)
	for _, name := range allowed {
		if strings.TrimSpace(name) == field {
			return true
		}
	}
	return false
}

// ParseAccounts decodes AUTH_ACCOUNTS entries.
func (a AuthConfig) ParseAccounts() ([]domain.Account, error) {
	accounts := make([]domain.Account, 0, len(a.Accounts))
	for _, entry := range a.Accounts {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid AUTH_ACCOUNTS entry %q: want name:role:hash", entry)
		}
		role := domain.Role(parts[1])
		if !role.IsValid() {
			return nil, fmt.Errorf("invalid role %q for account %q", parts[1], parts[0])
		}
		accounts = append(accounts, domain.Account{Name: parts[0], Role: role, PasswordHash: parts[2]})
	}
	return accounts, nil
}
