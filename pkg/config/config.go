package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Terminal     TerminalConfig
	DB           DBConfig
	Redis        RedisConfig
	LocalStore   LocalStoreConfig
	Sink         SinkConfig
	Connectivity ConnectivityConfig
	Queue        QueueConfig
	JWT          JWTConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARCOPOS_APP_ENV" required:"true"`
	Port         string `envconfig:"MARCOPOS_APP_PORT" default:"8085"`
	LogLevel     string `envconfig:"MARCOPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARCOPOS_LOG_WARN_STACK" default:"false"`

	// CORSAllowedOrigins lists the cashier UI origins allowed to call the terminal API.
	CORSAllowedOrigins []string `envconfig:"MARCOPOS_CORS_ALLOWED_ORIGINS" default:"http://localhost:8080"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// TerminalConfig identifies the till and the defaults stamped on every sale it records.
type TerminalConfig struct {
	ID             string  `envconfig:"MARCOPOS_TERMINAL_ID"`
	Location       string  `envconfig:"MARCOPOS_TERMINAL_LOCATION" default:"Ela Beach Market"`
	DefaultCashier string  `envconfig:"MARCOPOS_DEFAULT_CASHIER" default:"demo@marco-pos.app"`
	TaxRate        float64 `envconfig:"MARCOPOS_TAX_RATE" default:"0.10"`
}

type DBConfig struct {
	DSN             string        `envconfig:"MARCOPOS_DB_DSN"`
	MaxOpenConns    int           `envconfig:"MARCOPOS_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"MARCOPOS_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"MARCOPOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARCOPOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARCOPOS_REDIS_URL"`
	Address      string        `envconfig:"MARCOPOS_REDIS_ADDR"`
	Password     string        `envconfig:"MARCOPOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARCOPOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARCOPOS_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"MARCOPOS_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"MARCOPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARCOPOS_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"MARCOPOS_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// LocalStoreConfig selects where the offline queue is persisted on the terminal.
type LocalStoreConfig struct {
	Driver string `envconfig:"MARCOPOS_LOCAL_STORE_DRIVER" default:"bolt"`
	Path   string `envconfig:"MARCOPOS_LOCAL_STORE_PATH" default:"marco-pos.db"`
	Key    string `envconfig:"MARCOPOS_LOCAL_STORE_KEY" default:"marco-pos-offline-queue"`
}

type SinkConfig struct {
	Driver       string        `envconfig:"MARCOPOS_SINK_DRIVER" default:"postgres"`
	WriteTimeout time.Duration `envconfig:"MARCOPOS_SINK_WRITE_TIMEOUT" default:"10s"`
}

type ConnectivityConfig struct {
	ProbeURL      string        `envconfig:"MARCOPOS_CONNECTIVITY_PROBE_URL" default:"https://www.gstatic.com/generate_204"`
	ProbeTimeout  time.Duration `envconfig:"MARCOPOS_CONNECTIVITY_PROBE_TIMEOUT" default:"3s"`
	ProbeInterval time.Duration `envconfig:"MARCOPOS_CONNECTIVITY_PROBE_INTERVAL" default:"15s"`
}

type QueueConfig struct {
	MaxAttempts   int           `envconfig:"MARCOPOS_QUEUE_MAX_ATTEMPTS" default:"10"`
	SweepInterval time.Duration `envconfig:"MARCOPOS_QUEUE_SWEEP_INTERVAL" default:"2m"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MARCOPOS_JWT_SECRET"`
	Issuer            string `envconfig:"MARCOPOS_JWT_ISSUER" default:"marco-pos"`
	ExpirationMinutes int    `envconfig:"MARCOPOS_JWT_EXPIRATION_MINUTES" default:"720"`
}

// Enabled reports whether bearer tokens are required on the terminal API.
func (j JWTConfig) Enabled() bool {
	return strings.TrimSpace(j.Secret) != ""
}

type GCPConfig struct {
	ProjectID string `envconfig:"MARCOPOS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	TransactionsTopic string `envconfig:"MARCOPOS_PUBSUB_TRANSACTIONS_TOPIC" default:"pos-transactions"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MARCOPOS_AUTO_MIGRATE" default:"false"`
}

func (c *Config) validate() error {
	if c.Terminal.TaxRate < 0 || c.Terminal.TaxRate > 1 {
		return fmt.Errorf("%s must be between 0 and 1", EnvTaxRate)
	}

	switch strings.ToLower(strings.TrimSpace(c.LocalStore.Driver)) {
	case LocalStoreBolt, LocalStoreSQLite:
		if strings.TrimSpace(c.LocalStore.Path) == "" {
			return fmt.Errorf("%s is required for the %s store", EnvLocalStorePath, c.LocalStore.Driver)
		}
	case LocalStoreRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("%s is required for the redis store", EnvRedisURL)
		}
	case LocalStoreMemory:
		if c.App.IsProd() {
			return fmt.Errorf("memory store would lose pending sales; not allowed in %s", AppEnvProd)
		}
	default:
		return fmt.Errorf("unknown %s %q", EnvLocalStoreDriver, c.LocalStore.Driver)
	}
	if strings.TrimSpace(c.LocalStore.Key) == "" {
		return fmt.Errorf("%s is required", EnvLocalStoreKey)
	}

	switch strings.ToLower(strings.TrimSpace(c.Sink.Driver)) {
	case SinkPostgres:
		if strings.TrimSpace(c.DB.DSN) == "" {
			return fmt.Errorf("%s is required for the postgres sink", EnvDBDSN)
		}
	case SinkPubSub:
		if strings.TrimSpace(c.GCP.ProjectID) == "" {
			return fmt.Errorf("%s is required for the pubsub sink", EnvGCPProjectID)
		}
		if strings.TrimSpace(c.PubSub.TransactionsTopic) == "" {
			return fmt.Errorf("%s is required for the pubsub sink", EnvPubSubTransactionsTopic)
		}
	default:
		return fmt.Errorf("unknown %s %q", EnvSinkDriver, c.Sink.Driver)
	}

	if c.Sink.WriteTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvSinkWriteTimeout)
	}
	if c.Connectivity.ProbeTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvProbeTimeout)
	}
	if c.Queue.MaxAttempts < 0 {
		return fmt.Errorf("%s must not be negative", EnvQueueMaxAttempts)
	}
	return nil
}
