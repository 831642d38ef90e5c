package config

const EnvPrefix = "BAZAAR"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	OutboxBrokerPubSub = "pubsub"
	OutboxBrokerKafka  = "kafka"
)

const (
	PayoutProviderMock   = "mock"
	PayoutProviderStripe = "stripe"
	PayoutProviderHTTP   = "http"
)

const (
	EnvAppEnv     = "BAZAAR_APP_ENV"
	EnvPort       = "BAZAAR_APP_PORT"
	EnvLogLevel   = "BAZAAR_LOG_LEVEL"
	EnvDBDSN      = "BAZAAR_DB_DSN"
	EnvDBHost     = "BAZAAR_DB_HOST"
	EnvDBUser     = "BAZAAR_DB_USER"
	EnvDBName     = "BAZAAR_DB_NAME"
	EnvUseSQLite  = "BAZAAR_USE_SQLITE"
	EnvRedisURL   = "BAZAAR_REDIS_URL"
	EnvJWTSecret  = "BAZAAR_JWT_SECRET"
	EnvJWTIssuer  = "BAZAAR_JWT_ISSUER"
	EnvJWTExpMins = "BAZAAR_JWT_EXPIRATION_MINUTES"

	EnvOutboxBroker       = "BAZAAR_OUTBOX_BROKER"
	EnvKafkaBrokers       = "BAZAAR_KAFKA_BROKERS"
	EnvPlatformFeePercent = "BAZAAR_PLATFORM_FEE_PERCENT"
	EnvBargainMaxCounters = "BAZAAR_BARGAIN_MAX_COUNTERS"
	EnvSettlementHold     = "BAZAAR_SETTLEMENT_HOLD_HOURS"
	EnvPayoutProvider     = "BAZAAR_PAYOUT_PROVIDER"
	EnvPayoutHTTPBaseURL  = "BAZAAR_PAYOUT_HTTP_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
