package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
addr: ":9000"
swap_ttl: 48h
signup_bonus: 50
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("expected addr :9000, got %q", cfg.Addr)
	}
	if cfg.SwapTTL.Std() != 48*time.Hour {
		t.Errorf("expected 48h TTL, got %v", cfg.SwapTTL.Std())
	}
	if cfg.SignupBonus != 50 {
		t.Errorf("expected signup bonus 50, got %d", cfg.SignupBonus)
	}

	// Untouched fields keep their defaults.
	def := Default()
	if cfg.DBPath != def.DBPath {
		t.Errorf("expected default db path %q, got %q", def.DBPath, cfg.DBPath)
	}
	if cfg.ReapInterval != def.ReapInterval {
		t.Errorf("expected default reap interval, got %v", cfg.ReapInterval.Std())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "addr: [not a scalar\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := writeConfig(t, "swap_ttl: sometime next week\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"zero ttl", func(c *Config) { c.SwapTTL = 0 }},
		{"zero reap interval", func(c *Config) { c.ReapInterval = 0 }},
		{"negative bonus", func(c *Config) { c.SignupBonus = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}
