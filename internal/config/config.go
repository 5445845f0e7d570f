// Package config loads peer settings from environment variables, with an
// optional .env file in the working directory. Every knob has a default
// that works for a local two-player session.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the complete runtime configuration. Values are fixed at load
// time; nothing reads the environment afterwards.
type Config struct {
	// Network.
	ListenHost string `env:"POKEWIRE_HOST"        envDefault:"127.0.0.1"`
	ListenPort int    `env:"POKEWIRE_PORT"        envDefault:"5000"`
	BufferSize int    `env:"POKEWIRE_BUFFER_SIZE" envDefault:"4096"`

	// Reliability tuning.
	AckTimeout      time.Duration `env:"POKEWIRE_ACK_TIMEOUT"      envDefault:"2s"`
	RetransmitEvery time.Duration `env:"POKEWIRE_RETRANSMIT_EVERY" envDefault:"500ms"`
	MaxRetries      int           `env:"POKEWIRE_MAX_RETRIES"      envDefault:"5"`
	DedupBound      int           `env:"POKEWIRE_DEDUP_BOUND"      envDefault:"5000"`

	// How long one Receive poll blocks before rechecking for shutdown.
	ReceiveTimeout time.Duration `env:"POKEWIRE_RECEIVE_TIMEOUT" envDefault:"1s"`

	// Pokémon database.
	DataPath string `env:"POKEWIRE_DATA" envDefault:"data/pokemon.csv"`
}

// Load reads .env (if present) and the environment. Validation failures
// are errors; a missing .env file is not.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("config: port %d out of range", c.ListenPort)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("config: buffer size must be positive")
	}
	if c.AckTimeout <= 0 || c.RetransmitEvery <= 0 {
		return fmt.Errorf("config: timeouts must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: max retries must not be negative")
	}
	return nil
}

// ListenAddr is the host:port the transport binds to.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}
