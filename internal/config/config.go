package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	App     AppConfig
	Log     LogConfig
	DB      DBConfig
	Redis   RedisConfig
	GRPC    GRPCConfig
	Metrics MetricsConfig
	AMQP    AMQPConfig
	Auth    AuthConfig
	Roles   RolesConfig
}

type AppConfig struct {
	ENV string `env:"APP_ENV"`
}

type LogConfig struct {
	Level     string `env:"LOG_LEVEL, default=info"`
	Format    string `env:"LOG_FORMAT, default=text"`
	Component string `env:"LOG_COMPONENT, default=grpc_server"`
	Source    bool   `env:"LOG_SOURCE, default=false"`
}

type DBConfig struct {
	DSN      string `env:"MYSQL_DSN"`
	Host     string `env:"DB_HOST, default=localhost"`
	Port     string `env:"DB_PORT, default=3306"`
	User     string `env:"DB_USER, default=root"`
	Password string `env:"DB_PASSWORD, default=root"`
	Name     string `env:"DB_NAME, default=codev"`
	LogSQL   bool   `env:"DB_LOG_SQL, default=false"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR, default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB, default=0"`
	LockTTL  time.Duration `env:"REDIS_LOCK_TTL, default=5s"`
}

type GRPCConfig struct {
	Host string `env:"GRPC_HOST, default=127.0.0.1"`
	Port string `env:"GRPC_PORT, default=50051"`
}

type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED, default=true"`
	Addr    string `env:"METRICS_ADDR, default=:9090"`
}

type AMQPConfig struct {
	URL         string        `env:"RABBITMQ_URL"`
	Exchange    string        `env:"AMQP_EXCHANGE, default=codev.events"`
	DialTimeout time.Duration `env:"AMQP_DIAL_TIMEOUT, default=2s"`
	RetryAfter  time.Duration `env:"AMQP_RETRY_AFTER, default=10s"`
}

// devSecret signs tokens in development when JWT_SECRET is unset. It is
// refused everywhere else.
const devSecret = "change-me"

var ErrInsecureSecret = errors.New("JWT_SECRET must be set to a non-default value outside development")

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TTL, default=24h"`
}

// RolesConfig names the role rows resolved at startup.
type RolesConfig struct {
	User  string `env:"ROLE_USER, default=USER"`
	Admin string `env:"ROLE_ADMIN, default=ADMIN"`
}

// New loads .env (when present) and the process environment into a Config.
// It panics on malformed values, like an invalid duration, and on a missing
// JWT secret outside development.
func New() *Config {
	_ = godotenv.Load()

	cfg, err := Load(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// Load builds a Config from the given lookuper. Tests use envconfig.MapLookuper.
// APP_ENV is empty unless set, so seeding and the development JWT secret
// are opt-in.
func Load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: l,
	}); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.DB.DSN) == "" {
		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	if cfg.AMQP.URL == "" {
		if url, ok := l.Lookup("AMQP_URL"); ok {
			cfg.AMQP.URL = url
		}
	}

	secret := strings.TrimSpace(cfg.Auth.JWTSecret)
	switch {
	case cfg.IsDevelopment() && secret == "":
		cfg.Auth.JWTSecret = devSecret
	case !cfg.IsDevelopment() && (secret == "" || secret == devSecret):
		return nil, ErrInsecureSecret
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.ENV, "development")
}
