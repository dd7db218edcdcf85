// Package config loads server configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port   string `env:"COURTSIDE_PORT" envDefault:"8080"`
	DBPath string `env:"COURTSIDE_DB_PATH" envDefault:"courtside.db"`

	// BaseURL is the public origin used in emailed links.
	BaseURL string `env:"COURTSIDE_BASE_URL" envDefault:"http://localhost:8080"`

	LogLevel  string `env:"COURTSIDE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"COURTSIDE_LOG_FORMAT" envDefault:"text"`

	PostmarkToken string `env:"COURTSIDE_POSTMARK_TOKEN"`
	FromEmail     string `env:"COURTSIDE_FROM_EMAIL" envDefault:"noreply@courtside.app"`

	VAPIDPublicKey  string `env:"COURTSIDE_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"COURTSIDE_VAPID_PRIVATE_KEY"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
