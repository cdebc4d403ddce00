package config

const EnvPrefix = "SHIPCONSOLE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:shipconsole.db?_foreign_keys=on"
)

const (
	EnvAppEnv      = "SHIPCONSOLE_APP_ENV"
	EnvPort        = "SHIPCONSOLE_APP_PORT"
	EnvLogLevel    = "SHIPCONSOLE_LOG_LEVEL"
	EnvDBDSN       = "SHIPCONSOLE_DB_DSN"
	EnvDBDriver    = "SHIPCONSOLE_DB_DRIVER"
	EnvDBHost      = "SHIPCONSOLE_DB_HOST"
	EnvDBUser      = "SHIPCONSOLE_DB_USER"
	EnvDBName      = "SHIPCONSOLE_DB_NAME"
	EnvDBPassword  = "SHIPCONSOLE_DB_PASSWORD"
	EnvRedisURL    = "SHIPCONSOLE_REDIS_URL"
	EnvJWTSecret   = "SHIPCONSOLE_JWT_SECRET"
	EnvJWTIssuer   = "SHIPCONSOLE_JWT_ISSUER"
	EnvUseSQLite   = "SHIPCONSOLE_USE_SQLITE"
	EnvGCPProject  = "SHIPCONSOLE_GCP_PROJECT_ID"
	EnvShipTopic   = "SHIPCONSOLE_PUBSUB_SHIPMENTS_TOPIC"
	EnvSessionTTL  = "SHIPCONSOLE_CONSOLE_SESSION_TTL"
	EnvSearchDays  = "SHIPCONSOLE_CONSOLE_SEARCH_WINDOW_DAYS"
	EnvOutboxBatch = "SHIPCONSOLE_OUTBOX_PUBLISH_BATCH_SIZE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
