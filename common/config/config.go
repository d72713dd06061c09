// Package config loads configuration for the signedmsg tools.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full configuration shared by every signedmsg command.
type Config struct {
	NATS       NATSConfig     `mapstructure:"nats"`
	Fetch      FetchConfig    `mapstructure:"fetch"`
	Validation ValidateConfig `mapstructure:"validate"`
	Signing    SigningConfig  `mapstructure:"signing"`
	Logging    LoggingConfig  `mapstructure:"logging"`
}

// NATSConfig holds NATS message broker configuration
type NATSConfig struct {
	URL               string        `mapstructure:"url"`
	Name              string        `mapstructure:"name"`
	Subject           string        `mapstructure:"subject"`
	ConnectAttempts   int           `mapstructure:"connect_attempts"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
}

// FetchConfig holds fetcher settings
type FetchConfig struct {
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
	MetricsFile string        `mapstructure:"metrics_file"`
}

// ValidateConfig holds the event kind expectations checked by the validator
type ValidateConfig struct {
	KindPrefix         string   `mapstructure:"kind_prefix"`
	AdapterIdentifiers []string `mapstructure:"adapter_identifiers"`
}

// SigningConfig holds the ed25519 seed used by the publisher.
// An empty seed selects the deterministic test key.
type SigningConfig struct {
	SeedHex string `mapstructure:"seed_hex"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from configPath, or from config.yaml in
// $SIGNEDMSG_CONFIG_DIR when no path is given, and SIGNEDMSG_* env vars.
// No other location is searched: a config.yaml that happens to sit in the
// working or home directory is never picked up. A missing file in
// $SIGNEDMSG_CONFIG_DIR is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Environment variables override (SIGNEDMSG_NATS_URL, etc.)
	v.SetEnvPrefix("SIGNEDMSG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	dir := os.Getenv("SIGNEDMSG_CONFIG_DIR")
	switch {
	case configPath != "":
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	case dir != "":
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or env overrides exist.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate rejects settings the tools cannot run with.
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url must not be empty")
	}
	if c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject must not be empty")
	}
	if c.NATS.ConnectAttempts < 1 {
		return fmt.Errorf("nats.connect_attempts must be at least 1, got %d", c.NATS.ConnectAttempts)
	}
	if c.NATS.ConnectRetryDelay < 0 {
		return fmt.Errorf("nats.connect_retry_delay must not be negative")
	}
	if c.Fetch.WaitTimeout <= 0 {
		return fmt.Errorf("fetch.wait_timeout must be positive")
	}
	if len(c.Validation.AdapterIdentifiers) == 0 {
		return fmt.Errorf("validate.adapter_identifiers must not be empty")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// NATS defaults
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.name", "signedmsg")
	v.SetDefault("nats.subject", "domain.events")
	v.SetDefault("nats.connect_attempts", 8)
	v.SetDefault("nats.connect_retry_delay", "1s")
	v.SetDefault("nats.connect_timeout", "2s")

	// Fetch defaults
	v.SetDefault("fetch.wait_timeout", "30s")
	v.SetDefault("fetch.metrics_file", "")

	// Validate defaults
	v.SetDefault("validate.kind_prefix", "adapters.")
	v.SetDefault("validate.adapter_identifiers", []string{"inmemory-discord", "discord"})

	v.SetDefault("signing.seed_hex", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
