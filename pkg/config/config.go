package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Identity IdentityConfig
	Cache    CacheConfig
	Outbox   OutboxConfig
	Cron     CronConfig
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
	Env          string `envconfig:"PORTFOLIO_APP_ENV" required:"true"`
	Port         string `envconfig:"PORTFOLIO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PORTFOLIO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PORTFOLIO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PORTFOLIO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PORTFOLIO_DB_DSN"`
	Driver string `envconfig:"PORTFOLIO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PORTFOLIO_DB_HOST"`
	LegacyPort     int    `envconfig:"PORTFOLIO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PORTFOLIO_DB_USER"`
	LegacyPassword string `envconfig:"PORTFOLIO_DB_PASSWORD"`
	LegacyName     string `envconfig:"PORTFOLIO_DB_NAME"`
	LegacySSLMode  string `envconfig:"PORTFOLIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PORTFOLIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PORTFOLIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PORTFOLIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PORTFOLIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"PORTFOLIO_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PORTFOLIO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PORTFOLIO_REDIS_ADDR"`
	Password     string        `envconfig:"PORTFOLIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"PORTFOLIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PORTFOLIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PORTFOLIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PORTFOLIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PORTFOLIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PORTFOLIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig validates tokens minted by the external identity provider.
type JWTConfig struct {
	Secret string `envconfig:"PORTFOLIO_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"PORTFOLIO_JWT_ISSUER" required:"true"`
}

// IdentityConfig points at the external identity provider's admin API.
type IdentityConfig struct {
	BaseURL       string        `envconfig:"PORTFOLIO_IDENTITY_BASE_URL"`
	Realm         string        `envconfig:"PORTFOLIO_IDENTITY_REALM" default:"portfolio"`
	AdminClientID string        `envconfig:"PORTFOLIO_IDENTITY_ADMIN_CLIENT_ID"`
	AdminSecret   string        `envconfig:"PORTFOLIO_IDENTITY_ADMIN_SECRET"`
	Timeout       time.Duration `envconfig:"PORTFOLIO_IDENTITY_TIMEOUT" default:"10s"`
}

type CacheConfig struct {
	DefaultTTL time.Duration `envconfig:"PORTFOLIO_CACHE_DEFAULT_TTL" default:"1m"`
}

type OutboxConfig struct {
	IntervalInSeconds int `envconfig:"PORTFOLIO_OUTBOX_INTERVAL_SECONDS" default:"10"`
	BatchSize         int `envconfig:"PORTFOLIO_OUTBOX_BATCH_SIZE" default:"20"`
	RetentionDays     int `envconfig:"PORTFOLIO_OUTBOX_RETENTION_DAYS" default:"30"`
}

// Interval converts the configured seconds into a duration for the dispatcher loop.
func (o OutboxConfig) Interval() time.Duration {
	if o.IntervalInSeconds <= 0 {
		return 0
	}
	return time.Duration(o.IntervalInSeconds) * time.Second
}

type CronConfig struct {
	Interval time.Duration `envconfig:"PORTFOLIO_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"PORTFOLIO_CRON_LOCK_TTL" default:"25h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
