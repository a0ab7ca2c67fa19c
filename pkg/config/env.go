package config

const (
	EnvPrefix = "DELIVERYCART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "DELIVERYCART_APP_ENV"
	EnvPort       = "DELIVERYCART_APP_PORT"
	EnvDBDSN      = "DELIVERYCART_DB_DSN"
	EnvDBHost     = "DELIVERYCART_DB_HOST"
	EnvDBUser     = "DELIVERYCART_DB_USER"
	EnvDBName     = "DELIVERYCART_DB_NAME"
	EnvUseSQLite  = "DELIVERYCART_USE_SQLITE"
	EnvRedisURL   = "DELIVERYCART_REDIS_URL"
	EnvJWTSecret  = "DELIVERYCART_JWT_SECRET"
	EnvJWTIssuer  = "DELIVERYCART_JWT_ISSUER"
	EnvOrdersURL  = "DELIVERYCART_ORDERS_API_URL"
	EnvFeePolicy  = "DELIVERYCART_DELIVERY_FEE_POLICY"
	EnvFloorFee   = "DELIVERYCART_DELIVERY_FLOOR_FEE"
	EnvRatePerKm  = "DELIVERYCART_DELIVERY_RATE_PER_KM"
	EnvCartTTL    = "DELIVERYCART_SESSION_CART_TTL"
	EnvCheckoutPS = "DELIVERYCART_PUBSUB_CHECKOUT_TOPIC"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:deliverycart.db?cache=shared&_fk=1"
)

var dbComponentEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
