// Package config loads client configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config covers both the terminal and web clients.
type Config struct {
	// APIBaseURL is the backend origin; request paths go under /api.
	APIBaseURL string `env:"LIMITED_API_URL" envDefault:"http://localhost:8000"`
	// StatePath locates the credential database. Defaults under the
	// user config dir when unset.
	StatePath string `env:"LIMITED_STATE_PATH"`
	// HTTPTimeout bounds individual backend calls.
	HTTPTimeout time.Duration `env:"LIMITED_HTTP_TIMEOUT" envDefault:"15s"`
	// WebAddr is the listen address of the web client.
	WebAddr string `env:"LIMITED_WEB_ADDR" envDefault:":3000"`
	// RedirectDelay is how long the investment success message stays on
	// screen before the portfolio hand-off.
	RedirectDelay time.Duration `env:"LIMITED_REDIRECT_DELAY" envDefault:"3s"`
	LogLevel      string        `env:"LIMITED_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and fills in the state-path default.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.StatePath == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve config dir: %w", err)
		}
		cfg.StatePath = filepath.Join(base, "limited", "credentials.db")
	}
	return cfg, nil
}
