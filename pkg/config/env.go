package config

const (
	EnvPrefix = "RERAEASY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv   = "RERAEASY_APP_ENV"
	EnvPort     = "RERAEASY_APP_PORT"
	EnvLogLevel = "RERAEASY_LOG_LEVEL"

	EnvDBDSN    = "RERAEASY_DB_DSN"
	EnvDBDriver = "RERAEASY_DB_DRIVER"
	EnvDBHost   = "RERAEASY_DB_HOST"
	EnvDBUser   = "RERAEASY_DB_USER"
	EnvDBName   = "RERAEASY_DB_NAME"

	EnvRedisURL = "RERAEASY_REDIS_URL"

	EnvJWTSecret = "RERAEASY_JWT_SECRET"
	EnvJWTIssuer = "RERAEASY_JWT_ISSUER"

	EnvUpstreamBaseURL = "RERAEASY_UPSTREAM_BASE_URL"
	EnvUpstreamTimeout = "RERAEASY_UPSTREAM_TIMEOUT"

	EnvPricingCacheTTL       = "RERAEASY_PRICING_CACHE_TTL"
	EnvPackageFallbackPrices = "RERAEASY_PACKAGE_FALLBACK_PRICES"

	EnvPricingRateLimitWindow = "RERAEASY_PRICING_RATE_LIMIT_WINDOW"
	EnvPricingIPRateLimit     = "RERAEASY_PRICING_IP_RATE_LIMIT"
	EnvPricingUserRateLimit   = "RERAEASY_PRICING_USER_RATE_LIMIT"

	EnvCORSAllowedOrigins = "RERAEASY_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
