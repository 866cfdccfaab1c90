package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	LadderAPIURL        string        `env:"LADDER_API_URL"`
	DBPath              string        `env:"DB_PATH" envDefault:"console.db"`
	ServerPort          string        `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	SessionValidity     time.Duration `env:"SESSION_VALIDITY" envDefault:"1h"`
	SessionPollInterval time.Duration `env:"SESSION_POLL_INTERVAL" envDefault:"60s"`
	RecentMatchLimit    int           `env:"RECENT_MATCH_LIMIT" envDefault:"50"`
	AssetBasePath       string        `env:"ASSET_BASE_PATH" envDefault:"/static/characters"`
	CORSOrigins         []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("ladder_api_url", cfg.LadderAPIURL).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("session_validity", cfg.SessionValidity).
		Dur("session_poll_interval", cfg.SessionPollInterval).
		Int("recent_match_limit", cfg.RecentMatchLimit).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) validate() error {
	c.LadderAPIURL = strings.TrimRight(strings.TrimSpace(c.LadderAPIURL), "/")
	if c.LadderAPIURL == "" {
		return fmt.Errorf("LADDER_API_URL is required")
	}
	if c.SessionValidity <= 0 {
		return fmt.Errorf("SESSION_VALIDITY must be positive, got %s", c.SessionValidity)
	}
	if c.SessionPollInterval <= 0 {
		return fmt.Errorf("SESSION_POLL_INTERVAL must be positive, got %s", c.SessionPollInterval)
	}
	if c.RecentMatchLimit <= 0 {
		return fmt.Errorf("RECENT_MATCH_LIMIT must be positive, got %d", c.RecentMatchLimit)
	}
	c.AssetBasePath = strings.TrimRight(c.AssetBasePath, "/")
	return nil
}

var Module = fx.Provide(Load)
