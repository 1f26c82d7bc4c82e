package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "github.com/md-rashed-zaman/spacebook/libs/config"
	otelx "github.com/md-rashed-zaman/spacebook/libs/otel"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/availability"
)

type Config struct {
	Env         string       `yaml:"env" env:"APP_ENV" env-default:"prod"`
	ServiceName string       `yaml:"service_name" env:"SERVICE_NAME" env-default:"booking-service"`
	HTTP        HTTP         `yaml:"http"`
	Database    Database     `yaml:"database"`
	Redis       Redis        `yaml:"redis"`
	RateLimit   RateLimit    `yaml:"rate_limit"`
	Kafka       Kafka        `yaml:"kafka"`
	Auth        Auth         `yaml:"auth"`
	Schedule    Schedule     `yaml:"schedule"`
	Tracing     otelx.Config `yaml:"tracing"`
}

type HTTP struct {
	Port             string        `yaml:"port" env:"PORT" env-default:"8083"`
	GRPCPort         string        `yaml:"grpc_port" env:"GRPC_PORT" env-default:"9083"`
	BodyLimitBytes   int64         `yaml:"body_limit_bytes" env:"REQUEST_BODY_LIMIT_BYTES" env-default:"1048576"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"15s"`
	CORSAllowOrigins []string      `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

type Database struct {
	URL     string `yaml:"url" env:"DATABASE_URL" env-required:"true"`
	Migrate bool   `yaml:"migrate" env:"DB_MIGRATE" env-default:"true"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type RateLimit struct {
	PerMinute int  `yaml:"per_minute" env:"RATE_LIMIT_PER_MINUTE" env-default:"120"`
	Burst     int  `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"20"`
	FailOpen  bool `yaml:"fail_open" env:"RATE_LIMIT_FAIL_OPEN" env-default:"true"`
}

type Kafka struct {
	Brokers         string        `yaml:"brokers" env:"KAFKA_BROKERS"`
	OutboxPollEvery time.Duration `yaml:"outbox_poll_interval" env:"OUTBOX_POLL_INTERVAL" env-default:"2s"`
	OutboxBatchSize int           `yaml:"outbox_batch_size" env:"OUTBOX_BATCH_SIZE" env-default:"50"`
}

type Auth struct {
	JWTSecret    string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	JWKSURL      string        `yaml:"jwks_url" env:"JWKS_URL"`
	JWKSCacheTTL time.Duration `yaml:"jwks_cache_ttl" env:"JWKS_CACHE_TTL" env-default:"10m"`
}

// Schedule is the bookable operating window, in wall-clock time of Timezone.
type Schedule struct {
	Timezone      string        `yaml:"timezone" env:"SCHEDULE_TIMEZONE" env-default:"UTC"`
	Open          string        `yaml:"open" env:"SCHEDULE_OPEN" env-default:"09:00"`
	Close         string        `yaml:"close" env:"SCHEDULE_CLOSE" env-default:"21:00"`
	Step          time.Duration `yaml:"step" env:"SCHEDULE_STEP" env-default:"1h"`
	DefaultSpaces []string      `yaml:"default_spaces" env:"DEFAULT_SPACES" env-separator:","`
}

// Load reads the config from CONFIG_PATH (when set) and the environment, then validates it.
func Load(path string) (Config, error) {
	var cfg Config
	if err := libconfig.Load(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if err := libconfig.ValidatePort("PORT", c.HTTP.Port); err != nil {
		errs = append(errs, err)
	}
	if err := libconfig.ValidatePort("GRPC_PORT", c.HTTP.GRPCPort); err != nil {
		errs = append(errs, err)
	}
	if c.HTTP.BodyLimitBytes <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_BODY_LIMIT_BYTES must be positive (got %d)", c.HTTP.BodyLimitBytes))
	}
	if c.RateLimit.PerMinute <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive (got %d)", c.RateLimit.PerMinute))
	}
	if _, err := c.Window(); err != nil {
		errs = append(errs, fmt.Errorf("schedule: %w", err))
	}
	return errors.Join(errs...)
}

// Window builds the operating window used for slots.
func (c Config) Window() (availability.Window, error) {
	return availability.NewWindow(c.Schedule.Open, c.Schedule.Close, c.Schedule.Step, c.Schedule.Timezone)
}
