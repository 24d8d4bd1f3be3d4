package internal

import (
	"chat-presence/errors"
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	Host                string        `env:"HOST,default=0.0.0.0"`
	Port                int           `env:"PORT,default=5000"`
	LogLevel            string        `env:"LOG_LEVEL,default=INFO"`
	AccessLog           bool          `env:"ACCESS_LOG,default=true"`
	StoreDriver         string        `env:"STORE_DRIVER,default=badger"`
	BadgerFilepath      string        `env:"BADGER_FILEPATH,default=./data/badger"`
	SQLiteFilepath      string        `env:"SQLITE_FILEPATH,default=./data/chat.db"`
	SweepInterval       time.Duration `env:"SWEEP_INTERVAL,default=15s"`
	InactivityThreshold time.Duration `env:"INACTIVITY_THRESHOLD,default=10s"`
	RestartInterval     time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s"`
	DebugPort           int           `env:"DEBUG_PORT,default=0"`
	IncludeSentMessages bool          `env:"INCLUDE_SENT_MESSAGES,default=false"`
}

// LoadConfig reads an optional .env file then the process environment.
func LoadConfig(envFiles ...string) (Config, error) {
	// A missing .env is the normal case outside development
	_ = godotenv.Load(envFiles...)

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverBadger, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownDriver, c.StoreDriver)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.InactivityThreshold <= 0 {
		return fmt.Errorf("INACTIVITY_THRESHOLD must be positive, got %s", c.InactivityThreshold)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
