package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Password   PasswordConfig
	Dispatcher DispatcherConfig
	RateLimit  RateLimitConfig
	Flags      FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FASTWORK_APP_ENV" default:"dev"`
	Port         string `envconfig:"FASTWORK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FASTWORK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FASTWORK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"FASTWORK_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"FASTWORK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FASTWORK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FASTWORK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FASTWORK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FASTWORK_REDIS_URL"`
	Address      string        `envconfig:"FASTWORK_REDIS_ADDR"`
	Password     string        `envconfig:"FASTWORK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FASTWORK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FASTWORK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FASTWORK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FASTWORK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FASTWORK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FASTWORK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FASTWORK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FASTWORK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FASTWORK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FASTWORK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FASTWORK_ARGON_KEY_LEN" default:"32"`
}

// DispatcherConfig tunes the outbox-to-notifications worker.
type DispatcherConfig struct {
	PollInterval time.Duration `envconfig:"FASTWORK_DISPATCHER_POLL_INTERVAL" default:"2s"`
	BatchSize    int           `envconfig:"FASTWORK_DISPATCHER_BATCH_SIZE" default:"50"`
}

// RateLimitConfig throttles mutating requests. Zero limits disable the
// middleware.
type RateLimitConfig struct {
	WriteWindow    time.Duration `envconfig:"FASTWORK_RATE_LIMIT_WRITE_WINDOW" default:"1m"`
	WriteIPLimit   int           `envconfig:"FASTWORK_RATE_LIMIT_WRITE_IP_LIMIT" default:"120"`
	WriteUserLimit int           `envconfig:"FASTWORK_RATE_LIMIT_WRITE_USER_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FASTWORK_AUTO_MIGRATE" default:"false"`
}
