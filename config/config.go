package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the chat service.
type Config struct {
	// HTTP server
	HTTPHost        string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort        int           `env:"PORT" envDefault:"8000"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	// Redis
	RedisURL         string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPoolSize    int           `env:"REDIS_POOL_SIZE" envDefault:"50"`
	RedisDialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`

	// Chat
	MaxMessageLength          int           `env:"MAX_MESSAGE_LENGTH" envDefault:"1000"`
	MessageHistoryLimit       int           `env:"MESSAGE_HISTORY_LIMIT" envDefault:"50"`
	MessageTTL                time.Duration `env:"MESSAGE_TTL" envDefault:"720h"`
	PresenceTTL               time.Duration `env:"PRESENCE_TTL" envDefault:"1h"`
	PresenceRefreshOnActivity bool          `env:"PRESENCE_REFRESH_ON_ACTIVITY" envDefault:"true"`
	MaxUsersPerRoom           int           `env:"MAX_USERS_PER_ROOM" envDefault:"100"`
	WSWriteTimeout            time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file and parses environment variables into Config.
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be in 1..65535, got %d", c.HTTPPort))
	}
	if strings.TrimSpace(c.RedisURL) == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLength))
	}
	if c.MessageHistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("MESSAGE_HISTORY_LIMIT must be positive, got %d", c.MessageHistoryLimit))
	}
	if c.MessageTTL <= 0 {
		errs = append(errs, errors.New("MESSAGE_TTL must be positive"))
	}
	if c.PresenceTTL < time.Second {
		errs = append(errs, errors.New("PRESENCE_TTL must be at least 1s"))
	}
	if c.MaxUsersPerRoom <= 0 {
		errs = append(errs, fmt.Errorf("MAX_USERS_PER_ROOM must be positive, got %d", c.MaxUsersPerRoom))
	}
	switch strings.ToLower(c.LogLevel) {
	case "info", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be info or error, got %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}
