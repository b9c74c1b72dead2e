package config

const EnvPrefix = "FARMMARKET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	PaymentProviderLocal    = "local"
	PaymentProviderRazorpay = "razorpay"
)

const (
	EnvAppEnv   = "FARMMARKET_APP_ENV"
	EnvPort     = "FARMMARKET_APP_PORT"
	EnvLogLevel = "FARMMARKET_LOG_LEVEL"

	EnvDBDSN  = "FARMMARKET_DB_DSN"
	EnvDBHost = "FARMMARKET_DB_HOST"
	EnvDBUser = "FARMMARKET_DB_USER"
	EnvDBName = "FARMMARKET_DB_NAME"

	EnvRedisURL = "FARMMARKET_REDIS_URL"

	EnvJWTSecret               = "FARMMARKET_JWT_SECRET"
	EnvJWTIssuer               = "FARMMARKET_JWT_ISSUER"
	EnvJWTExpMins              = "FARMMARKET_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "FARMMARKET_REFRESH_TOKEN_TTL_MINUTES"
	EnvAutoMigrate             = "FARMMARKET_AUTO_MIGRATE"
	EnvCatalogRadiusKm         = "FARMMARKET_CATALOG_RADIUS_KM"
	EnvPaymentProvider         = "FARMMARKET_PAYMENT_PROVIDER"
	EnvPaymentKeyID            = "FARMMARKET_PAYMENT_KEY_ID"
	EnvPaymentKeySecret        = "FARMMARKET_PAYMENT_KEY_SECRET"
	EnvGCPProjectID            = "FARMMARKET_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic       = "FARMMARKET_PUBSUB_ORDERS_TOPIC"
	EnvPubSubAccountsTopic     = "FARMMARKET_PUBSUB_ACCOUNTS_TOPIC"
	EnvRegionMinLat            = "FARMMARKET_REGION_MIN_LAT"
	EnvRegionMaxLat            = "FARMMARKET_REGION_MAX_LAT"
	EnvRegionMinLng            = "FARMMARKET_REGION_MIN_LNG"
	EnvRegionMaxLng            = "FARMMARKET_REGION_MAX_LNG"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
