package config

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

// APIConfig configures cmd/api.
type APIConfig struct {
	Port      string `env:"API_PORT,   default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	JWTSecret string `env:"JWT_SECRET, required"`

	Cookie CookieConfig
	Admin  AdminConfig
	SMS    SMSConfig
	Mongo  MongoConfig
	Redis  RedisConfig
}

type CookieConfig struct {
	Name     string        `env:"SESSION_COOKIE,  default=session"`
	Secure   bool          `env:"COOKIE_SECURE,   default=false"`
	TokenTTL time.Duration `env:"SESSION_TTL,     default=168h"`
}

// AdminConfig seeds the first administrator. Both fields empty disables bootstrap.
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

type SMSConfig struct {
	Sender  string `env:"SMS_SENDER,  default=console"`
	Workers int    `env:"SMS_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=youth_admin"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// ConsoleConfig configures cmd/console.
type ConsoleConfig struct {
	Port       string `env:"CONSOLE_PORT, default=3000"`
	Env        string `env:"ENV,          default=development"`
	LogLevel   string `env:"LOG_LEVEL,    default=info"`
	APIBaseURL string `env:"API_BASE_URL, default=http://localhost:8080"`

	CookieName   string        `env:"CONSOLE_COOKIE,       default=console_session"`
	CookieSecure bool          `env:"COOKIE_SECURE,        default=false"`
	IdleTimeout  time.Duration `env:"CONSOLE_IDLE_TIMEOUT, default=2h"`
	CacheTTL     time.Duration `env:"CACHE_TTL,            default=30s"`
	StoreDir     string        `env:"LOCAL_STORE_DIR,      default=./data/local"`
}

// IsDevelopment reports whether pretty logs should be used.
func (c *APIConfig) IsDevelopment() bool { return c.Env == "development" }

func (c *ConsoleConfig) IsDevelopment() bool { return c.Env == "development" }

// LoadAPI reads .env (when present) and the environment into an APIConfig.
func LoadAPI(logger zerolog.Logger) *APIConfig {
	var cfg APIConfig
	load(logger, &cfg)
	return &cfg
}

// LoadConsole reads .env (when present) and the environment into a ConsoleConfig.
func LoadConsole(logger zerolog.Logger) *ConsoleConfig {
	var cfg ConsoleConfig
	load(logger, &cfg)
	return &cfg
}

func load(logger zerolog.Logger, cfg any) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Msg("failed to read .env file")
	}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		logger.Error().Err(err).Msg("failed to load configuration")
		panic(err)
	}
}
