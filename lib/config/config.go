// Package config loads toolkit settings from an optional YAML file with an
// environment overlay (.env supported), so the server can be configured
// both by checked-in files and by deployment environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full toolkit configuration.
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	Output   OutputConfig   `yaml:"output"`
	Launch   LaunchConfig   `yaml:"launch"`
	Web      WebConfig      `yaml:"web"`
}

// EndpointConfig locates the Logic automation socket.
type EndpointConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the dial/command timeout.
func (e EndpointConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// OutputConfig controls where capture artifacts land.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// LaunchConfig controls launching the desktop application when the
// endpoint is unreachable.
type LaunchConfig struct {
	Disabled     bool `yaml:"disabled"`
	Attempts     int  `yaml:"attempts"`
	DelaySeconds int  `yaml:"delay_seconds"`
}

// Delay returns the pause between connection attempts.
func (l LaunchConfig) Delay() time.Duration {
	return time.Duration(l.DelaySeconds) * time.Second
}

// WebConfig configures the web UI server.
type WebConfig struct {
	Address string `yaml:"address"`
	Port    string `yaml:"port"`
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), overlays environment variables, applies defaults and
// validates the result. A .env file in the working directory is honored.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Config file is optional.
		default:
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment is
// present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	// Missing .env is fine; explicit environment always wins over files.
	_ = godotenv.Load()

	if v := os.Getenv("LOGIC2_HOST"); v != "" {
		c.Endpoint.Host = v
	}
	if v := os.Getenv("LOGIC2_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Endpoint.Port = port
		}
	}
	if v := os.Getenv("LOGIC2_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("LOGIC2_NO_LAUNCH"); v == "1" || v == "true" || v == "yes" {
		c.Launch.Disabled = true
	}
}

func (c *Config) applyDefaults() {
	if c.Endpoint.Host == "" {
		c.Endpoint.Host = "127.0.0.1"
	}
	if c.Endpoint.Port == 0 {
		c.Endpoint.Port = 10430
	}
	if c.Endpoint.TimeoutSeconds == 0 {
		c.Endpoint.TimeoutSeconds = 5
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "captures"
	}
	if c.Launch.Attempts == 0 {
		c.Launch.Attempts = 3
	}
	if c.Launch.DelaySeconds == 0 {
		c.Launch.DelaySeconds = 2
	}
	if c.Web.Address == "" {
		c.Web.Address = "localhost"
	}
	if c.Web.Port == "" {
		c.Web.Port = "8080"
	}
}

func (c *Config) validate() error {
	if c.Endpoint.Port < 1 || c.Endpoint.Port > 65535 {
		return fmt.Errorf("endpoint port %d out of range", c.Endpoint.Port)
	}
	if c.Endpoint.TimeoutSeconds < 0 {
		return fmt.Errorf("endpoint timeout must not be negative")
	}
	if c.Launch.Attempts < 1 {
		return fmt.Errorf("launch attempts must be at least 1")
	}
	return nil
}
