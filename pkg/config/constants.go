package config

const (
	EnvPrefix = "MARCOPOS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "MARCOPOS_APP_ENV"
	EnvPort     = "MARCOPOS_APP_PORT"
	EnvLogLevel = "MARCOPOS_LOG_LEVEL"

	EnvTerminalID       = "MARCOPOS_TERMINAL_ID"
	EnvTerminalLocation = "MARCOPOS_TERMINAL_LOCATION"
	EnvDefaultCashier   = "MARCOPOS_DEFAULT_CASHIER"
	EnvTaxRate          = "MARCOPOS_TAX_RATE"

	EnvDBDSN = "MARCOPOS_DB_DSN"

	EnvRedisURL = "MARCOPOS_REDIS_URL"

	EnvLocalStoreDriver = "MARCOPOS_LOCAL_STORE_DRIVER"
	EnvLocalStorePath   = "MARCOPOS_LOCAL_STORE_PATH"
	EnvLocalStoreKey    = "MARCOPOS_LOCAL_STORE_KEY"

	EnvSinkDriver       = "MARCOPOS_SINK_DRIVER"
	EnvSinkWriteTimeout = "MARCOPOS_SINK_WRITE_TIMEOUT"

	EnvProbeURL      = "MARCOPOS_CONNECTIVITY_PROBE_URL"
	EnvProbeTimeout  = "MARCOPOS_CONNECTIVITY_PROBE_TIMEOUT"
	EnvProbeInterval = "MARCOPOS_CONNECTIVITY_PROBE_INTERVAL"

	EnvQueueMaxAttempts   = "MARCOPOS_QUEUE_MAX_ATTEMPTS"
	EnvQueueSweepInterval = "MARCOPOS_QUEUE_SWEEP_INTERVAL"

	EnvJWTSecret  = "MARCOPOS_JWT_SECRET"
	EnvJWTIssuer  = "MARCOPOS_JWT_ISSUER"
	EnvJWTExpMins = "MARCOPOS_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID            = "MARCOPOS_GCP_PROJECT_ID"
	EnvPubSubTransactionsTopic = "MARCOPOS_PUBSUB_TRANSACTIONS_TOPIC"

	EnvAutoMigrate = "MARCOPOS_AUTO_MIGRATE"
)

const (
	LocalStoreBolt   = "bolt"
	LocalStoreSQLite = "sqlite"
	LocalStoreRedis  = "redis"
	LocalStoreMemory = "memory"

	SinkPostgres = "postgres"
	SinkPubSub   = "pubsub"
)
