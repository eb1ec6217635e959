// Package config loads optional YAML server configuration. Command-line
// flags take precedence over file values, which take precedence over the
// defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/garderoba/internal/swap"
)

// Duration wraps time.Duration so YAML values can be written as "36h" or
// "15m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds server settings.
type Config struct {
	Addr         string   `yaml:"addr"`
	DBPath       string   `yaml:"db_path"`
	LogFile      string   `yaml:"log_file"`
	Debug        bool     `yaml:"debug"`
	SwapTTL      Duration `yaml:"swap_ttl"`
	ReapInterval Duration `yaml:"reap_interval"`
	SignupBonus  int      `yaml:"signup_bonus"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:         ":8080",
		DBPath:       "garderoba.db",
		SwapTTL:      Duration(swap.DefaultTTL),
		ReapInterval: Duration(time.Hour),
		SignupBonus:  100,
	}
}

// Load reads a YAML config file over the defaults. Fields missing from the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.SwapTTL <= 0 {
		return fmt.Errorf("swap_ttl must be positive")
	}
	if c.ReapInterval <= 0 {
		return fmt.Errorf("reap_interval must be positive")
	}
	if c.SignupBonus < 0 {
		return fmt.Errorf("signup_bonus must not be negative")
	}
	return nil
}
