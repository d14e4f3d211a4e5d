// Package config loads every service setting from SELLGRID_-prefixed
// environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "SELLGRID"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SELLGRID_DB_DSN"
	EnvDBHost = "SELLGRID_DB_HOST"
	EnvDBUser = "SELLGRID_DB_USER"
	EnvDBName = "SELLGRID_DB_NAME"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Stripe        StripeConfig
	Outbox        OutboxConfig
	Chat          ChatConfig
}

// Load reads the full configuration from the environment. A missing DB DSN
// is assembled from the individual SELLGRID_DB_* variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SELLGRID_APP_ENV" required:"true"`
	Port         string `envconfig:"SELLGRID_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SELLGRID_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SELLGRID_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SELLGRID_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SELLGRID_DB_DSN"`
	Driver string `envconfig:"SELLGRID_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SELLGRID_DB_HOST"`
	LegacyPort     int    `envconfig:"SELLGRID_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SELLGRID_DB_USER"`
	LegacyPassword string `envconfig:"SELLGRID_DB_PASSWORD"`
	LegacyName     string `envconfig:"SELLGRID_DB_NAME"`
	LegacySSLMode  string `envconfig:"SELLGRID_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SELLGRID_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SELLGRID_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SELLGRID_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SELLGRID_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SELLGRID_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SELLGRID_REDIS_ADDR"`
	Password     string        `envconfig:"SELLGRID_REDIS_PASSWORD"`
	DB           int           `envconfig:"SELLGRID_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SELLGRID_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SELLGRID_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SELLGRID_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SELLGRID_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SELLGRID_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SELLGRID_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SELLGRID_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SELLGRID_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SELLGRID_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SELLGRID_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SELLGRID_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SELLGRID_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SELLGRID_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SELLGRID_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SELLGRID_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SELLGRID_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SELLGRID_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SELLGRID_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SELLGRID_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SELLGRID_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SELLGRID_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SELLGRID_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"SELLGRID_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SELLGRID_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SELLGRID_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SELLGRID_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic               string `envconfig:"SELLGRID_PUBSUB_ORDERS_TOPIC" required:"true"`
	NotificationsSubscription string `envconfig:"SELLGRID_PUBSUB_NOTIFICATIONS_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription     string `envconfig:"SELLGRID_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"SELLGRID_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"SELLGRID_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"SELLGRID_STRIPE_ENV" default:"test"`
	SuccessURL    string `envconfig:"SELLGRID_STRIPE_SUCCESS_URL" default:"https://sellgrid.app/checkout/success"`
	CancelURL     string `envconfig:"SELLGRID_STRIPE_CANCEL_URL" default:"https://sellgrid.app/checkout/cancel"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SELLGRID_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SELLGRID_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SELLGRID_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type ChatConfig struct {
	HistoryPageSize int           `envconfig:"SELLGRID_CHAT_HISTORY_PAGE_SIZE" default:"50"`
	WriteTimeout    time.Duration `envconfig:"SELLGRID_CHAT_WRITE_TIMEOUT" default:"10s"`
	PingInterval    time.Duration `envconfig:"SELLGRID_CHAT_PING_INTERVAL" default:"30s"`
}

// ensureDSN builds a postgres URL from the individual DB variables when no
// DSN was set directly.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for _, field := range []struct {
		env   string
		value string
	}{
		{EnvDBHost, db.LegacyHost},
		{EnvDBUser, db.LegacyUser},
		{EnvDBName, db.LegacyName},
	} {
		if field.value == "" {
			missing = append(missing, field.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
