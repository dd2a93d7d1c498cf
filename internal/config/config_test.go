package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestParseProfile(t *testing.T) {
	tests := []struct {
		in      string
		want    Profile
		wantErr bool
	}{
		{"", Development, false},
		{"development", Development, false},
		{"staging", Staging, false},
		{"production", Production, false},
		{"prod", "", true},
		{"test", "", true},
	}
	for _, tt := range tests {
		got, err := ParseProfile(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseProfile(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseProfile(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProfile(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultsDevelopment(t *testing.T) {
	cfg := Defaults(Development)
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.DatabaseDriver)
	}
	if cfg.JWTSecret == "" {
		t.Error("development must carry a built-in secret")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Errorf("token ttl = %v, want 12h", cfg.TokenTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("development defaults must validate: %v", err)
	}
}

func TestDefaultsProduction(t *testing.T) {
	cfg := Defaults(Production)
	if cfg.DatabaseDriver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.DatabaseDriver)
	}
	if cfg.JWTSecret != "" {
		t.Error("production must not carry a built-in secret")
	}
	if cfg.CORSOrigins != nil {
		t.Error("production must not default to permissive CORS")
	}
	// Raw production defaults are intentionally incomplete.
	if err := cfg.Validate(); err == nil {
		t.Error("production defaults must not validate without explicit settings")
	}
}

func TestLoadOverlays(t *testing.T) {
	v := viper.New()
	v.Set("profile", "development")
	v.Set("server.port", 9000)
	v.Set("auth.token_ttl_hours", 2)
	v.Set("rate_limit.auth_per_minute", 5)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Port)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("token ttl = %v, want 2h", cfg.TokenTTL)
	}
	if cfg.RateLimitAuth != 5 {
		t.Errorf("auth rate limit = %d, want 5", cfg.RateLimitAuth)
	}
	// Untouched values keep their defaults.
	if cfg.RateLimitAPI != 100 {
		t.Errorf("api rate limit = %d, want 100", cfg.RateLimitAPI)
	}
}

func TestLoadUnknownProfile(t *testing.T) {
	v := viper.New()
	v.Set("profile", "qa")
	if _, err := Load(v); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestValidateRejections(t *testing.T) {
	base := func() Config {
		cfg := Defaults(Production)
		cfg.DatabaseDSN = "postgres://localhost/tasker"
		cfg.JWTSecret = "explicit-production-secret"
		cfg.CORSOrigins = []string{"https://app.example.com"}
		return cfg
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("baseline must validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.DatabaseDriver = "oracle" }},
		{"postgres without dsn", func(c *Config) { c.DatabaseDSN = "" }},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }},
		{"dev secret outside development", func(c *Config) { c.JWTSecret = devSecret }},
		{"no cors origins", func(c *Config) { c.CORSOrigins = nil }},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }},
		{"bad port", func(c *Config) { c.Port = 0 }},
	}
	for _, tt := range tests {
		cfg := base()
		tt.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}
