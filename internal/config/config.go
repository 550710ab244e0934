// Package config provides configuration management for the gateway.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const (
	// defaultPort is used when server.port is unset
	defaultPort = 3000
	// defaultShutdownTimeout bounds graceful shutdown on SIGTERM
	defaultShutdownTimeout = 10 * time.Second
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Server      ServerConfig      `yaml:"server"`
	Broker      BrokerConfig      `yaml:"broker"`
	Market      MarketConfig      `yaml:"market"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	Mode     string `yaml:"mode"`      // development | production
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// ServerConfig defines the HTTP listener settings.
type ServerConfig struct {
	Port            int    `yaml:"port"`
	CORSOrigin      string `yaml:"cors_origin"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// BrokerConfig defines upstream SmartAPI settings.
type BrokerConfig struct {
	BaseURL string `yaml:"base_url"`
	// Client identity headers the upstream expects on every call.
	LocalIP    string `yaml:"local_ip"`
	PublicIP   string `yaml:"public_ip"`
	MACAddress string `yaml:"mac_address"`
	// CircuitBreaker toggles the upstream circuit breaker wrapper.
	CircuitBreaker bool `yaml:"circuit_breaker"`
}

// MarketConfig defines instrument lookup settings.
type MarketConfig struct {
	// InstrumentTokens extends or overrides the built-in symbol→token table.
	InstrumentTokens map[string]string `yaml:"instrument_tokens"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	// Environment validation
	if c.Environment.Mode != "development" && c.Environment.Mode != "production" {
		return fmt.Errorf("environment.mode must be 'development' or 'production'")
	}
	switch c.Environment.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}

	// Server validation
	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout != "" {
		if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
			return fmt.Errorf("server.shutdown_timeout invalid: %w", err)
		}
	}

	// Market validation: tokens must be non-empty when given
	for sym, token := range c.Market.InstrumentTokens {
		if strings.TrimSpace(sym) == "" || strings.TrimSpace(token) == "" {
			return fmt.Errorf("market.instrument_tokens entries must have non-empty symbol and token")
		}
	}

	return nil
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment.Mode == "production"
}

// GetPort returns the configured listener port, falling back to the default.
func (c *Config) GetPort() int {
	if c.Server.Port == 0 {
		return defaultPort
	}
	return c.Server.Port
}

// GetShutdownTimeout returns the configured graceful shutdown window.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil || d <= 0 {
		return defaultShutdownTimeout
	}
	return d
}
