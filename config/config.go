package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// AuthConfig holds the tunable knobs of the PIN and token flows. The
// derived durations are computed in Load and ignored by the YAML parser.
type AuthConfig struct {
	MaxPinAttempts         int `yaml:"max_pin_attempts"`
	AttemptWindowSeconds   int `yaml:"attempt_window_seconds"`
	PinValidityMinutes     int `yaml:"pin_validity_minutes"`
	PairingTokenTTLSeconds int `yaml:"pairing_token_ttl_seconds"`
	GuestSessionTTLSeconds int `yaml:"guest_session_ttl_seconds"`

	AttemptWindow   time.Duration `yaml:"-"`
	PinValidity     time.Duration `yaml:"-"`
	PairingTokenTTL time.Duration `yaml:"-"`
	GuestSessionTTL time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LoggingConfig holds the logger configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default creates a configuration with all defaults applied, used by
// tests that do not read a file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Auth.MaxPinAttempts <= 0 {
		cfg.Auth.MaxPinAttempts = 5
	}
	if cfg.Auth.AttemptWindowSeconds <= 0 {
		cfg.Auth.AttemptWindowSeconds = 3600
	}
	if cfg.Auth.PinValidityMinutes <= 0 {
		cfg.Auth.PinValidityMinutes = 60
	}
	if cfg.Auth.PairingTokenTTLSeconds <= 0 {
		cfg.Auth.PairingTokenTTLSeconds = 300
	}
	if cfg.Auth.GuestSessionTTLSeconds <= 0 {
		cfg.Auth.GuestSessionTTLSeconds = 3600
	}
	cfg.Auth.AttemptWindow = time.Duration(cfg.Auth.AttemptWindowSeconds) * time.Second
	cfg.Auth.PinValidity = time.Duration(cfg.Auth.PinValidityMinutes) * time.Minute
	cfg.Auth.PairingTokenTTL = time.Duration(cfg.Auth.PairingTokenTTLSeconds) * time.Second
	cfg.Auth.GuestSessionTTL = time.Duration(cfg.Auth.GuestSessionTTLSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
