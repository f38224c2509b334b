// Package config loads and validates the optional .driftscan YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the scan root.
const FileName = ".driftscan"

// Default values.
const (
	DefaultConcurrency = 4
	DefaultMarker      = ".hcl"
)

// Config holds the parsed .driftscan configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version        int    `yaml:"version"`
	RawTimeout     string `yaml:"timeout"`     // per unit, e.g. "10m"; empty means none
	RawMaxOutput   int    `yaml:"max_output"`  // bytes kept per stream; 0 keeps all
	RawConcurrency int    `yaml:"concurrency"` // units planned at once
	RawMarker      string `yaml:"marker"`      // file-name suffix marking a unit
	Dedupe         bool   `yaml:"dedupe"`      // plan each directory once
}

// Timeout returns the configured per-unit timeout, or zero for none.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// MaxOutputBytes returns the configured per-stream output cap, or zero for
// unlimited capture.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return 0
}

// Concurrency returns the configured concurrency ceiling or the default.
func (c *Config) Concurrency() int {
	if c.RawConcurrency > 0 {
		return c.RawConcurrency
	}
	return DefaultConcurrency
}

// Marker returns the configured marker suffix or the default.
func (c *Config) Marker() string {
	if c.RawMarker != "" {
		return c.RawMarker
	}
	return DefaultMarker
}

// Load reads the .driftscan file from root. If no file exists, a default
// Config is returned.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}
	return Parse(data)
}

// Parse validates and decodes a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return cfg, nil
}
