// Package runtimeconfig loads the ambient configuration for the contract
// runtime daemon: guard mode, contract directory, regression baseline
// path, and the observability/OTel toggles, from a single YAML file in
// the teacher's config-loading idiom.
package runtimeconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GuardConfig selects the runtime boundary guard's mode.
type GuardConfig struct {
	Mode string `yaml:"mode"`
}

// ContractsConfig locates and caches context propagation contracts.
type ContractsConfig struct {
	Directory string        `yaml:"directory"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// RegressionConfig locates the regression gate's baseline document.
type RegressionConfig struct {
	BaselinePath string `yaml:"baseline_path"`
}

// ObservabilityConfig toggles the alert evaluator's side channels.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `yaml:"metrics_enabled"`
	OTelEnabled     bool   `yaml:"otel_enabled"`
	SlackWebhookURL string `yaml:"slack_webhook_url"`
}

// LoggingConfig configures the zap-backed structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the read-only ops HTTP surface.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// Config is the contract runtime daemon's full ambient configuration.
type Config struct {
	Guard         GuardConfig         `yaml:"guard"`
	Contracts     ContractsConfig     `yaml:"contracts"`
	Regression    RegressionConfig    `yaml:"regression"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
	Server        ServerConfig        `yaml:"server"`
}

// Load reads and parses path, applying defaults for any field the file
// leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Guard.Mode == "" {
		c.Guard.Mode = "strict"
	}
	if c.Contracts.Directory == "" {
		c.Contracts.Directory = "./contracts"
	}
	if c.Contracts.CacheTTL == 0 {
		c.Contracts.CacheTTL = 5 * time.Minute
	}
	if c.Server.Port == "" {
		c.Server.Port = "8090"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate rejects a config with an unrecognized guard mode.
func (c *Config) Validate() error {
	switch c.Guard.Mode {
	case "strict", "permissive", "audit":
		return nil
	default:
		return fmt.Errorf("invalid guard mode %q: must be one of strict, permissive, audit", c.Guard.Mode)
	}
}
