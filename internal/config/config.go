package config

import (
	"errors"
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig marks configuration that must stop the process at startup.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig `envPrefix:"POSTGRES_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Logger   LoggerConfig
	Auth     AuthConfig `envPrefix:"AUTH_"`
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name           string        `env:"APP_NAME"             envDefault:"auth-service"`
	Env            string        `env:"APP_ENV"              envDefault:"development"`
	Host           string        `env:"APP_HOST"             envDefault:"0.0.0.0"`
	Port           string        `env:"APP_PORT"             envDefault:"8080"`
	Version        string        `env:"APP_VERSION"          envDefault:"dev"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN           string        `env:"DSN"`
	MaxConns      int32         `env:"MAX_CONNS"      envDefault:"10"`
	MinConns      int32         `env:"MIN_CONNS"      envDefault:"2"`
	RunMigrations bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdle   time.Duration `env:"CONN_MAX_IDLE"  envDefault:"30s"`
	ConnMaxLife   time.Duration `env:"CONN_MAX_LIFE"  envDefault:"5m"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr         string        `env:"ADDR"          envDefault:"127.0.0.1:6379"`
	Password     string        `env:"PASSWORD"`
	DB           int           `env:"DB"            envDefault:"0"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT"  envDefault:"3s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT"  envDefault:"1s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"1s"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	// Encoding is json or console.
	Encoding string `env:"LOG_ENCODING" envDefault:"json"`
}

// AuthConfig defines authentication parameters. JWTSecret is base64 encoded and
// decoded by the token codec at startup.
type AuthConfig struct {
	JWTSecret           string        `env:"JWT_SECRET,required"`
	AccessTokenTTL      time.Duration `env:"ACCESS_TOKEN_TTL"      envDefault:"24h"`
	RefreshTokenTTL     time.Duration `env:"REFRESH_TOKEN_TTL"     envDefault:"168h"`
	BcryptCost          int           `env:"BCRYPT_COST"           envDefault:"10"`
	RotateRefreshTokens bool          `env:"ROTATE_REFRESH_TOKENS" envDefault:"false"`
	LoginMaxAttempts    int           `env:"LOGIN_MAX_ATTEMPTS"    envDefault:"5"`
	LoginAttemptWindow  time.Duration `env:"LOGIN_ATTEMPT_WINDOW"  envDefault:"15m"`
	PublicPaths         []string      `env:"PUBLIC_PATHS"          envSeparator:","`
}

// DefaultPublicPaths are reachable without running token checks.
var DefaultPublicPaths = []string{
	"/api/v1/auth/**",
	"/v2/api-docs",
	"/v3/api-docs",
	"/v3/api-docs/**",
	"/swagger-resources",
	"/swagger-resources/**",
	"/configuration/ui",
	"/configuration/security",
	"/swagger-ui/**",
	"/webjars/**",
	"/swagger-ui.html",
	"/health/**",
	"/metrics",
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(cfg.Auth.PublicPaths) == 0 {
		cfg.Auth.PublicPaths = append([]string(nil), DefaultPublicPaths...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the auth core cannot start with. Decoding the
// signing secret itself is checked when the token codec is built.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: AUTH_JWT_SECRET is required", ErrInvalidConfig)
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("%w: AUTH_ACCESS_TOKEN_TTL must be positive", ErrInvalidConfig)
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		return fmt.Errorf("%w: AUTH_REFRESH_TOKEN_TTL must exceed AUTH_ACCESS_TOKEN_TTL", ErrInvalidConfig)
	}
	if c.Auth.LoginMaxAttempts < 0 {
		return fmt.Errorf("%w: AUTH_LOGIN_MAX_ATTEMPTS must not be negative", ErrInvalidConfig)
	}
	if c.Auth.LoginMaxAttempts > 0 && c.Auth.LoginAttemptWindow <= 0 {
		return fmt.Errorf("%w: AUTH_LOGIN_ATTEMPT_WINDOW must be positive", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}
