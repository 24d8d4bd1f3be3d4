package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_URL points at a running chat server; the suite is skipped when empty
	ServerURL string `envconfig:"E2E_SERVER_URL"`
	// E2E_EVICTION_WAIT must exceed the server's INACTIVITY_THRESHOLD plus one SWEEP_INTERVAL
	EvictionWait time.Duration `envconfig:"E2E_EVICTION_WAIT" default:"30s"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
