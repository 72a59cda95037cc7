// Package config provides configuration loading for sentineld.
//
// Configuration is read from a YAML file and overridden by environment
// variables, with hardcoded defaults below both.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mukhil0212/Sentinel-RAG/internal/logging"
)

// Config holds the complete sentineld configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Sandbox  SandboxConfig  `koanf:"sandbox"`
	Scanners ScannersConfig `koanf:"scanners"`
	Store    StoreConfig    `koanf:"store"`
	Planner  PlannerConfig  `koanf:"planner"`
	Logging  logging.Config `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SandboxConfig holds sandbox manager configuration.
type SandboxConfig struct {
	// Root is the directory under which session sandboxes are created.
	Root string `koanf:"root"`

	// Seed optionally names a project directory copied into every new
	// sandbox.
	Seed string `koanf:"seed"`
}

// ScannersConfig holds scanner adapter configuration.
type ScannersConfig struct {
	// CheckovBin and TFLintBin override tool resolution, taking precedence
	// over PATH lookup.
	CheckovBin string `koanf:"checkov_bin"`
	TFLintBin  string `koanf:"tflint_bin"`

	// Timeout bounds each adapter subprocess.
	Timeout time.Duration `koanf:"timeout"`

	// Gitleaks toggles the in-process secrets scanner.
	Gitleaks bool `koanf:"gitleaks"`
}

// StoreConfig holds session persistence configuration.
type StoreConfig struct {
	// Path is the SQLite database file. Empty disables persistence.
	Path string `koanf:"path"`
}

// PlannerConfig selects the planner implementation.
type PlannerConfig struct {
	// Mode is the planner wiring. Only "demo" (scripted) ships here;
	// production deployments plug a real planner in at build time.
	Mode string `koanf:"mode"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8787,
			ShutdownTimeout: 10 * time.Second,
		},
		Sandbox: SandboxConfig{
			Root: "/tmp/sentinel-sandboxes",
		},
		Scanners: ScannersConfig{
			Timeout:  120 * time.Second,
			Gitleaks: true,
		},
		Planner: PlannerConfig{
			Mode: "demo",
		},
		Logging: *logging.NewDefaultConfig(),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Sandbox.Root == "" {
		return errors.New("sandbox root is required")
	}
	if c.Scanners.Timeout <= 0 {
		return errors.New("scanner timeout must be positive")
	}
	if c.Planner.Mode != "demo" {
		return fmt.Errorf("unknown planner mode %q", c.Planner.Mode)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
