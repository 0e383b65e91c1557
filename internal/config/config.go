package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Store engines understood by STORE_ENGINE.
const (
	EngineFile     = "file"
	EngineRedis    = "redis"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
	EngineR2       = "r2"
)

var engines = []string{EngineFile, EngineRedis, EnginePostgres, EngineSQLite, EngineR2}

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Gemini   GeminiConfig
	Store    StoreConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	SQLite   SQLiteConfig
	R2       R2Config
	Notify   NotifyConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT"                    env-default:"8080"`
	FrontendURL     string        `env:"FRONTEND_URL"            env-default:"http://localhost:5173"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES"        env-default:"67108864"`
}

type LogConfig struct {
	Mode string `env:"LOG_MODE" env-default:"dev"`
}

type GeminiConfig struct {
	APIKey string `env:"GEMINI_API_KEY"`
	Model  string `env:"GEMINI_MODEL" env-default:"gemini-2.0-flash"`
}

type StoreConfig struct {
	Engine string `env:"STORE_ENGINE" env-default:"file"`
	Dir    string `env:"STORE_DIR"    env-default:"./data"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"     env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"       env-default:"0"`
	Prefix   string `env:"REDIS_PREFIX"   env-default:"studybuddy:"`
}

type PostgresConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" env-default:"./data/studybuddy.db"`
}

type R2Config struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	BucketName      string `env:"R2_BUCKET_NAME"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	Prefix          string `env:"R2_PREFIX" env-default:"studybuddy/"`
}

type NotifyConfig struct {
	WebhookURL       string        `env:"NOTIFY_WEBHOOK_URL"`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL"  env-default:"6h"`
	ReminderWindow   time.Duration `env:"REMINDER_WINDOW"    env-default:"72h"`
}

// Load reads an optional .env file (path from ENV_FILE, default ".env") and then the
// process environment. Variables already set in the environment win over the file.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	cfg.Store.Engine = strings.ToLower(strings.TrimSpace(cfg.Store.Engine))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the selected store engine has what it needs.
func (c *Config) Validate() error {
	if !slices.Contains(engines, c.Store.Engine) {
		return fmt.Errorf("unsupported STORE_ENGINE %q (want one of %s)", c.Store.Engine, strings.Join(engines, ", "))
	}
	switch c.Store.Engine {
	case EnginePostgres:
		if c.Postgres.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case EngineR2:
		if c.R2.AccountID == "" || c.R2.BucketName == "" || c.R2.AccessKeyID == "" || c.R2.SecretAccessKey == "" {
			return errors.New("CLOUDFLARE_ACCOUNT_ID, R2_BUCKET_NAME, R2_ACCESS_KEY_ID and R2_SECRET_ACCESS_KEY are required for the r2 store")
		}
	case EngineFile:
		if c.Store.Dir == "" {
			return errors.New("STORE_DIR must not be empty")
		}
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}
