package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Console      ConsoleConfig
	Cron         CronConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHIPCONSOLE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHIPCONSOLE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHIPCONSOLE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHIPCONSOLE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SHIPCONSOLE_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHIPCONSOLE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHIPCONSOLE_DB_DSN"`
	Driver string `envconfig:"SHIPCONSOLE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHIPCONSOLE_DB_HOST"`
	LegacyPort     int    `envconfig:"SHIPCONSOLE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHIPCONSOLE_DB_USER"`
	LegacyPassword string `envconfig:"SHIPCONSOLE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHIPCONSOLE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHIPCONSOLE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHIPCONSOLE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHIPCONSOLE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHIPCONSOLE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHIPCONSOLE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery logs statements slower than this at warn. Zero disables it.
	SlowQuery time.Duration `envconfig:"SHIPCONSOLE_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the local sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"SHIPCONSOLE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHIPCONSOLE_REDIS_ADDR"`
	Password     string        `envconfig:"SHIPCONSOLE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHIPCONSOLE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHIPCONSOLE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHIPCONSOLE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHIPCONSOLE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHIPCONSOLE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHIPCONSOLE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig validates operator access tokens minted by the identity service.
type JWTConfig struct {
	Secret string `envconfig:"SHIPCONSOLE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"SHIPCONSOLE_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHIPCONSOLE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHIPCONSOLE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SHIPCONSOLE_EVENTING_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SHIPCONSOLE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SHIPCONSOLE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SHIPCONSOLE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ShipmentsTopic        string `envconfig:"SHIPCONSOLE_PUBSUB_SHIPMENTS_TOPIC" default:"shipment-events"`
	WarehouseSubscription string `envconfig:"SHIPCONSOLE_PUBSUB_WAREHOUSE_SUBSCRIPTION" default:"shipment-events-warehouse"`
}

// BigQueryConfig names the warehouse tables shipment events land in.
type BigQueryConfig struct {
	Dataset            string `envconfig:"SHIPCONSOLE_BIGQUERY_DATASET" default:"shipments"`
	ShipmentFactsTable string `envconfig:"SHIPCONSOLE_BIGQUERY_SHIPMENT_FACTS_TABLE" default:"shipment_facts"`
	ShipmentLotsTable  string `envconfig:"SHIPCONSOLE_BIGQUERY_SHIPMENT_LOTS_TABLE" default:"shipment_lot_facts"`
	BatchSize          int    `envconfig:"SHIPCONSOLE_BIGQUERY_BATCH_SIZE" default:"1"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SHIPCONSOLE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SHIPCONSOLE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SHIPCONSOLE_OUTBOX_MAX_ATTEMPTS" default:"10"`

	// RetentionDays keeps delivered events; DLQRetentionDays keeps dead letters.
	RetentionDays    int `envconfig:"SHIPCONSOLE_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays int `envconfig:"SHIPCONSOLE_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SHIPCONSOLE_CRON_INTERVAL" default:"6h"`
	LockTTL  time.Duration `envconfig:"SHIPCONSOLE_CRON_LOCK_TTL" default:"2h"`
}

// ConsoleConfig tunes the operator sessions.
type ConsoleConfig struct {
	SessionTTL       time.Duration `envconfig:"SHIPCONSOLE_CONSOLE_SESSION_TTL" default:"2h"`
	SweepInterval    time.Duration `envconfig:"SHIPCONSOLE_CONSOLE_SWEEP_INTERVAL" default:"5m"`
	SearchWindowDays int           `envconfig:"SHIPCONSOLE_CONSOLE_SEARCH_WINDOW_DAYS" default:"30"`
}

// HTTPConfig covers the API edge: browser origins and the per-operator
// throttle on confirm and cancel.
type HTTPConfig struct {
	CORSOrigins         []string      `envconfig:"SHIPCONSOLE_CORS_ORIGINS" default:"http://localhost:3000"`
	MutationRateWindow  time.Duration `envconfig:"SHIPCONSOLE_MUTATION_RATE_WINDOW" default:"1m"`
	MutationRateLimit   int           `envconfig:"SHIPCONSOLE_MUTATION_RATE_LIMIT" default:"30"`
	ShutdownGracePeriod time.Duration `envconfig:"SHIPCONSOLE_SHUTDOWN_GRACE_PERIOD" default:"15s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
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
