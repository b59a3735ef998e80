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
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"METALERIA_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"METALERIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"METALERIA_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"METALERIA_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"METALERIA_SERVICE_KIND" default:"core"`
}

type DBConfig struct {
	DSN    string `envconfig:"METALERIA_DB_DSN"`
	Driver string `envconfig:"METALERIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"METALERIA_DB_HOST"`
	LegacyPort     int    `envconfig:"METALERIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"METALERIA_DB_USER"`
	LegacyPassword string `envconfig:"METALERIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"METALERIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"METALERIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"METALERIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"METALERIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"METALERIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"METALERIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"METALERIA_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite engine.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"METALERIA_REDIS_URL"`
	Address      string        `envconfig:"METALERIA_REDIS_ADDR"`
	Password     string        `envconfig:"METALERIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"METALERIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"METALERIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"METALERIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"METALERIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"METALERIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"METALERIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"METALERIA_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	PaymentIdempotencyTTL time.Duration `envconfig:"METALERIA_PAYMENT_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"METALERIA_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"METALERIA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotesTopic   string `envconfig:"METALERIA_PUBSUB_NOTES_TOPIC" default:"metaleria-notes"`
	PricingTopic string `envconfig:"METALERIA_PUBSUB_PRICING_TOPIC" default:"metaleria-pricing"`
	// BatchDelay bounds how long a publisher buffers messages before sending.
	BatchDelay time.Duration `envconfig:"METALERIA_PUBSUB_BATCH_DELAY" default:"10ms"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"METALERIA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"METALERIA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"METALERIA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"METALERIA_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"METALERIA_CRON_INTERVAL" default:"1h"`
	LockTTL    time.Duration `envconfig:"METALERIA_CRON_LOCK_TTL" default:"55m"`
	// JobTimeout bounds a single job run; it should stay below LockTTL.
	JobTimeout time.Duration `envconfig:"METALERIA_CRON_JOB_TIMEOUT" default:"20m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
