package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const EnvPrefix = "VAULTYIELD"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Ledger       LedgerConfig
	Accrual      AccrualConfig
	Approvals    ApprovalsConfig
	AdminLease   AdminLeaseConfig
	Notify       NotifyConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"VAULTYIELD_APP_ENV" required:"true"`
	Port         string `envconfig:"VAULTYIELD_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"VAULTYIELD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VAULTYIELD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VAULTYIELD_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VAULTYIELD_DB_DSN"`
	Driver string `envconfig:"VAULTYIELD_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"VAULTYIELD_DB_HOST"`
	Port     int    `envconfig:"VAULTYIELD_DB_PORT" default:"5432"`
	User     string `envconfig:"VAULTYIELD_DB_USER"`
	Password string `envconfig:"VAULTYIELD_DB_PASSWORD"`
	Name     string `envconfig:"VAULTYIELD_DB_NAME"`
	SSLMode  string `envconfig:"VAULTYIELD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VAULTYIELD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VAULTYIELD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VAULTYIELD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VAULTYIELD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VAULTYIELD_REDIS_URL"`
	Address      string        `envconfig:"VAULTYIELD_REDIS_ADDR"`
	Password     string        `envconfig:"VAULTYIELD_REDIS_PASSWORD"`
	DB           int           `envconfig:"VAULTYIELD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VAULTYIELD_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"VAULTYIELD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VAULTYIELD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VAULTYIELD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// LedgerConfig bounds the retry loop around contended store transactions.
type LedgerConfig struct {
	RetryAttempts int           `envconfig:"VAULTYIELD_LEDGER_RETRY_ATTEMPTS" default:"5"`
	RetryBase     time.Duration `envconfig:"VAULTYIELD_LEDGER_RETRY_BASE" default:"25ms"`
}

// AccrualConfig anchors the daily accrual cadence.
type AccrualConfig struct {
	AnchorHourUTC int           `envconfig:"VAULTYIELD_ACCRUAL_ANCHOR_HOUR" default:"0"`
	Interval      time.Duration `envconfig:"VAULTYIELD_ACCRUAL_INTERVAL" default:"24h"`
	LockTTL       time.Duration `envconfig:"VAULTYIELD_ACCRUAL_LOCK_TTL" default:"23h"`
}

type ApprovalsConfig struct {
	MinDeposit    decimal.Decimal `envconfig:"VAULTYIELD_MIN_DEPOSIT" default:"10"`
	MinWithdrawal decimal.Decimal `envconfig:"VAULTYIELD_MIN_WITHDRAWAL" default:"10"`
	WithdrawalFee decimal.Decimal `envconfig:"VAULTYIELD_WITHDRAWAL_FEE" default:"2"`
}

type AdminLeaseConfig struct {
	Secret string        `envconfig:"VAULTYIELD_ADMIN_LEASE_SECRET" required:"true"`
	TTL    time.Duration `envconfig:"VAULTYIELD_ADMIN_LEASE_TTL" default:"30m"`
}

type NotifyConfig struct {
	QueueSize int `envconfig:"VAULTYIELD_NOTIFY_QUEUE_SIZE" default:"256"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VAULTYIELD_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VAULTYIELD_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, "sqlite") {
		db.DSN = "file::memory:?cache=shared"
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"VAULTYIELD_DB_HOST": db.Host,
		"VAULTYIELD_DB_USER": db.User,
		"VAULTYIELD_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either VAULTYIELD_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
