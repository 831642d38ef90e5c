package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Kafka         KafkaConfig
	Outbox        OutboxConfig
	Marketplace   MarketplaceConfig
	Settlement    SettlementConfig
	Payout        PayoutConfig
	Stripe        StripeConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Payout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"BAZAAR_APP_ENV" required:"true"`
	Port         string   `envconfig:"BAZAAR_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"BAZAAR_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"BAZAAR_LOG_FORMAT"`
	LogWarnStack bool     `envconfig:"BAZAAR_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"BAZAAR_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BAZAAR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BAZAAR_DB_DSN"`
	Driver string `envconfig:"BAZAAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAZAAR_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZAAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZAAR_DB_USER"`
	LegacyPassword string `envconfig:"BAZAAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZAAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZAAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZAAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"BAZAAR_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZAAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAZAAR_REDIS_ADDR"`
	Password     string        `envconfig:"BAZAAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZAAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZAAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZAAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZAAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZAAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZAAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BAZAAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAZAAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BAZAAR_JWT_EXPIRATION_MINUTES" required:"true"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BAZAAR_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BAZAAR_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BAZAAR_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BAZAAR_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BAZAAR_ARGON_KEY_LEN" default:"32"`
}

// RateLimitConfig holds the windows and per-subject caps of every throttled surface.
type RateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BAZAAR_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BAZAAR_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BAZAAR_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BAZAAR_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BAZAAR_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BAZAAR_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	BargainWindow      time.Duration `envconfig:"BAZAAR_RATE_LIMIT_BARGAIN_WINDOW" default:"1h"`
	BargainUserLimit   int           `envconfig:"BAZAAR_RATE_LIMIT_BARGAIN_USER_LIMIT" default:"30"`
	MessageUserLimit   int           `envconfig:"BAZAAR_RATE_LIMIT_MESSAGE_USER_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BAZAAR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BAZAAR_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BAZAAR_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BAZAAR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BAZAAR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"BAZAAR_PUBSUB_DOMAIN_TOPIC" default:"bz-domain-events"`
	OrdersTopic        string `envconfig:"BAZAAR_PUBSUB_ORDERS_TOPIC" default:"bz-order-events"`
	BargainsTopic      string `envconfig:"BAZAAR_PUBSUB_BARGAINS_TOPIC" default:"bz-bargain-events"`
	SettlementTopic    string `envconfig:"BAZAAR_PUBSUB_SETTLEMENT_TOPIC" default:"bz-settlement-events"`
	OrderedDelivery    bool   `envconfig:"BAZAAR_PUBSUB_ORDERED_DELIVERY" default:"true"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"BAZAAR_KAFKA_BROKERS" default:"localhost:9092"`
	TopicPrefix  string        `envconfig:"BAZAAR_KAFKA_TOPIC_PREFIX" default:"bazaar"`
	BatchTimeout time.Duration `envconfig:"BAZAAR_KAFKA_BATCH_TIMEOUT" default:"10ms"`
}

type OutboxConfig struct {
	Broker         string `envconfig:"BAZAAR_OUTBOX_BROKER" default:"pubsub"`
	BatchSize      int    `envconfig:"BAZAAR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"BAZAAR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"BAZAAR_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MaxBackoffMS   int    `envconfig:"BAZAAR_OUTBOX_MAX_BACKOFF_MS" default:"10000"`
	MetricsAddr    string `envconfig:"BAZAAR_OUTBOX_METRICS_ADDR" default:":9103"`
}

func (o OutboxConfig) validate() error {
	switch strings.ToLower(o.Broker) {
	case OutboxBrokerPubSub, OutboxBrokerKafka:
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvOutboxBroker, o.Broker)
	}
}

// MarketplaceConfig carries the pricing and workflow knobs of the bargain and order flows.
type MarketplaceConfig struct {
	Currency              string          `envconfig:"BAZAAR_CURRENCY" default:"INR"`
	PlatformFeePercent    decimal.Decimal `envconfig:"BAZAAR_PLATFORM_FEE_PERCENT" default:"5"`
	FreeDeliveryThreshold decimal.Decimal `envconfig:"BAZAAR_FREE_DELIVERY_THRESHOLD" default:"500"`
	DeliveryFee           decimal.Decimal `envconfig:"BAZAAR_DELIVERY_FEE" default:"50"`
	BargainExpiryHours    int             `envconfig:"BAZAAR_BARGAIN_EXPIRY_HOURS" default:"24"`
	BargainMaxCounters    int             `envconfig:"BAZAAR_BARGAIN_MAX_COUNTERS" default:"3"`
	CancelWindow          time.Duration   `envconfig:"BAZAAR_CANCEL_WINDOW" default:"1h"`
	ReturnWindowDays      int             `envconfig:"BAZAAR_RETURN_WINDOW_DAYS" default:"7"`
}

func (m MarketplaceConfig) BargainTTL() time.Duration {
	if m.BargainExpiryHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(m.BargainExpiryHours) * time.Hour
}

func (m MarketplaceConfig) ReturnWindow() time.Duration {
	if m.ReturnWindowDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(m.ReturnWindowDays) * 24 * time.Hour
}

type SettlementConfig struct {
	HoldHours int `envconfig:"BAZAAR_SETTLEMENT_HOLD_HOURS" default:"24"`
	BatchSize int `envconfig:"BAZAAR_SETTLEMENT_BATCH_SIZE" default:"100"`
}

func (s SettlementConfig) HoldWindow() time.Duration {
	if s.HoldHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.HoldHours) * time.Hour
}

type PayoutConfig struct {
	Provider    string        `envconfig:"BAZAAR_PAYOUT_PROVIDER" default:"mock"`
	HTTPBaseURL string        `envconfig:"BAZAAR_PAYOUT_HTTP_BASE_URL"`
	HTTPAPIKey  string        `envconfig:"BAZAAR_PAYOUT_HTTP_API_KEY"`
	HTTPTimeout time.Duration `envconfig:"BAZAAR_PAYOUT_HTTP_TIMEOUT" default:"10s"`
}

func (p PayoutConfig) validate() error {
	switch strings.ToLower(p.Provider) {
	case PayoutProviderMock, PayoutProviderStripe:
		return nil
	case PayoutProviderHTTP:
		if strings.TrimSpace(p.HTTPBaseURL) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvPayoutHTTPBaseURL, EnvPayoutProvider, PayoutProviderHTTP)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvPayoutProvider, p.Provider)
	}
}

type StripeConfig struct {
	APIKey string `envconfig:"BAZAAR_STRIPE_API_KEY"`
	Env    string `envconfig:"BAZAAR_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CronConfig struct {
	ExpiryInterval     time.Duration `envconfig:"BAZAAR_CRON_EXPIRY_INTERVAL" default:"15m"`
	SettlementInterval time.Duration `envconfig:"BAZAAR_CRON_SETTLEMENT_INTERVAL" default:"24h"`
	MetricsAddr        string        `envconfig:"BAZAAR_CRON_METRICS_ADDR" default:":9102"`

	NotificationRetention time.Duration `envconfig:"BAZAAR_NOTIFICATION_RETENTION" default:"720h"`
	OutboxRetention       time.Duration `envconfig:"BAZAAR_OUTBOX_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:bazaar.db?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
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
