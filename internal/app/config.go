package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
)

type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	LogMode      string `env:"LOG_MODE" envDefault:"development"`
	LogLevel     string `env:"LOG_LEVEL"`
	LogRedaction bool   `env:"LOG_REDACTION_ENABLED" envDefault:"true"`
	LogHashSalt  string `env:"LOG_HASH_SALT"`

	JWTSecretKey   string        `env:"JWT_SECRET_KEY" envDefault:"defaultsecret"`
	JWTIssuer      string        `env:"JWT_ISSUER"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`

	PostgresDSN          string `env:"POSTGRES_DSN"`
	PostgresHost         string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort         string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser         string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword     string `env:"POSTGRES_PASSWORD"`
	PostgresName         string `env:"POSTGRES_NAME" envDefault:"truequecito"`
	PostgresSSLMode      string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	PostgresMaxOpenConns int    `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"20"`
	PostgresMaxIdleConns int    `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPrefix     string        `env:"REDIS_PREFIX" envDefault:"truequecito"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`

	ReceiptMaxBytes int64 `env:"RECEIPT_MAX_BYTES" envDefault:"10485760"`

	ObjectStorageMode   string `env:"OBJECT_STORAGE_MODE"`
	StorageEmulatorHost string `env:"STORAGE_EMULATOR_HOST"`
	ReceiptBucket       string `env:"RECEIPT_GCS_BUCKET_NAME"`
	ReceiptCDNDomain    string `env:"RECEIPT_CDN_DOMAIN"`
	PublicBaseURL       string `env:"OBJECT_STORAGE_PUBLIC_BASE_URL"`
	GCPCredentials      string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	GCPCredentialsJSON  string `env:"GOOGLE_APPLICATION_CREDENTIALS_JSON"`

	ExchangeAdminRole       string   `env:"EXCHANGE_ADMIN_ROLE"`
	ExchangeAdminUserIDs    []string `env:"EXCHANGE_ADMIN_USER_IDS" envSeparator:","`
	ExchangeVerifyOwnership bool     `env:"EXCHANGE_VERIFY_OWNERSHIP" envDefault:"true"`
	NotificationCatalog     string   `env:"NOTIFICATION_CATALOG_PATH"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	MetricsEnabled bool   `env:"METRICS_ENABLED"`
	MetricsAddr    string `env:"METRICS_ADDR" envDefault:":9090"`

	OtelEnabled     bool    `env:"OTEL_ENABLED"`
	OtelServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"truequecito-backend"`
	OtelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelHeaders     string  `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	OtelInsecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	OtelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
	Environment     string  `env:"APP_ENV" envDefault:"development"`
	Version         string  `env:"APP_VERSION"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ReceiptMaxBytes <= 0 {
		return Config{}, fmt.Errorf("RECEIPT_MAX_BYTES must be positive")
	}
	if _, err := cfg.AdminUserIDs(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AdminUserIDs parses EXCHANGE_ADMIN_USER_IDS, skipping blanks.
func (c Config) AdminUserIDs() ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(c.ExchangeAdminUserIDs))
	for _, raw := range c.ExchangeAdminUserIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("EXCHANGE_ADMIN_USER_IDS: invalid id %q: %w", raw, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func (c Config) Credentials() string {
	if v := strings.TrimSpace(c.GCPCredentialsJSON); v != "" {
		return v
	}
	return strings.TrimSpace(c.GCPCredentials)
}
