package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string `env:"ADDR" envDefault:":8080"`
	DBPath         string `env:"DB_PATH" envDefault:"file:cryptogram.db"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"INFO"`
	UserID         string `env:"USER_ID" envDefault:"local"`
	MaxMistakes    int    `env:"MAX_MISTAKES" envDefault:"0"`
	RandomSeed     int64  `env:"RANDOM_SEED" envDefault:"0"`
	WriteQueueSize int    `env:"WRITE_QUEUE_SIZE" envDefault:"16"`
	SeedQuotes     bool   `env:"SEED_QUOTES" envDefault:"true"`
	DailySalt      string `env:"DAILY_SALT" envDefault:"cryptogram"`
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying defaults when values are missing. A value that cannot be parsed is
// an error; nothing falls back silently.
func Load() (Config, error) {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}
	return cfg, nil
}

// Defaults returns the configuration used when no environment is set.
func Defaults() Config {
	var cfg Config
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "ADDR cannot be empty")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		problems = append(problems, "DB_PATH cannot be empty")
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be DEBUG, INFO, WARN or ERROR, got %q", c.LogLevel))
	}
	if strings.TrimSpace(c.UserID) == "" {
		problems = append(problems, "USER_ID cannot be empty")
	}
	if c.MaxMistakes < 0 {
		problems = append(problems, fmt.Sprintf("MAX_MISTAKES cannot be negative, got %d", c.MaxMistakes))
	}
	if c.WriteQueueSize <= 0 {
		problems = append(problems, fmt.Sprintf("WRITE_QUEUE_SIZE must be positive, got %d", c.WriteQueueSize))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
