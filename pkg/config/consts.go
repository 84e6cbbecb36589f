package config

// EnvPrefix namespaces every environment variable the backend reads.
const EnvPrefix = "STUDYLOOP"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names, exported so tests and tooling reference one
// source of truth.
const (
	EnvAppEnv   = "STUDYLOOP_APP_ENV"
	EnvPort     = "STUDYLOOP_APP_PORT"
	EnvLogLevel = "STUDYLOOP_LOG_LEVEL"

	EnvDBDSN      = "STUDYLOOP_DB_DSN"
	EnvDBHost     = "STUDYLOOP_DB_HOST"
	EnvDBUser     = "STUDYLOOP_DB_USER"
	EnvDBName     = "STUDYLOOP_DB_NAME"
	EnvDBPassword = "STUDYLOOP_DB_PASSWORD"

	EnvRedisURL = "STUDYLOOP_REDIS_URL"

	EnvJWTSecret              = "STUDYLOOP_JWT_SECRET"
	EnvJWTIssuer              = "STUDYLOOP_JWT_ISSUER"
	EnvJWTExpMins             = "STUDYLOOP_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STUDYLOOP_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
