package config

const EnvPrefix = "METALERIA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv    = "METALERIA_APP_ENV"
	EnvLogLevel  = "METALERIA_LOG_LEVEL"
	EnvDBDSN     = "METALERIA_DB_DSN"
	EnvDBDriver  = "METALERIA_DB_DRIVER"
	EnvDBHost    = "METALERIA_DB_HOST"
	EnvDBPort    = "METALERIA_DB_PORT"
	EnvDBUser    = "METALERIA_DB_USER"
	EnvDBPass    = "METALERIA_DB_PASSWORD"
	EnvDBName    = "METALERIA_DB_NAME"
	EnvDBSSLMode = "METALERIA_DB_SSLMODE"
	EnvRedisURL  = "METALERIA_REDIS_URL"

	EnvGCPProjectID       = "METALERIA_GCP_PROJECT_ID"
	EnvPubSubNotesTopic   = "METALERIA_PUBSUB_NOTES_TOPIC"
	EnvPubSubPricingTopic = "METALERIA_PUBSUB_PRICING_TOPIC"
	EnvOutboxMaxAttempts  = "METALERIA_OUTBOX_MAX_ATTEMPTS"
	EnvCronInterval       = "METALERIA_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
