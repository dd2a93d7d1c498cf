package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Profile names a deployment environment. It replaces environment-driven
// subclassing of settings with a plain enumerated type resolved once at
// startup.
type Profile string

const (
	Development Profile = "development"
	Staging     Profile = "staging"
	Production  Profile = "production"
)

// ParseProfile maps an environment name to a Profile. Unknown names are an
// error, not a silent fallback. The empty string means Development.
func ParseProfile(name string) (Profile, error) {
	switch Profile(name) {
	case "":
		return Development, nil
	case Development, Staging, Production:
		return Profile(name), nil
	}
	return "", fmt.Errorf("unknown profile %q (want development, staging, or production)", name)
}

// Config holds every runtime setting. It is constructed once in the serve
// command and passed by reference into the server, store, and auth service;
// nothing reads ambient global state.
type Config struct {
	Profile Profile

	Host string
	Port int

	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // data dir for sqlite, connection URL for postgres

	JWTSecret string
	TokenTTL  time.Duration

	CORSOrigins          []string
	CORSAllowCredentials bool

	RateLimitAuth int // requests per minute per IP on auth endpoints
	RateLimitAPI  int // requests per minute per IP on everything else

	MaxBodySize     int64
	ShutdownTimeout time.Duration
	LogLevel        string
}

// devSecret is the development-only signing secret. Validate rejects it
// outside the development profile.
const devSecret = "tasker-dev-secret-change-me"

// Defaults returns the baseline configuration for a profile. It is a pure
// mapping; reading flags, env, or files is the caller's job.
func Defaults(p Profile) Config {
	cfg := Config{
		Profile:              p,
		Host:                 "0.0.0.0",
		Port:                 8000,
		DatabaseDriver:       "sqlite",
		DatabaseDSN:          "",
		JWTSecret:            "",
		TokenTTL:             12 * time.Hour,
		CORSOrigins:          []string{"*"},
		CORSAllowCredentials: true,
		RateLimitAuth:        10,
		RateLimitAPI:         100,
		MaxBodySize:          1 << 20, // 1MB
		ShutdownTimeout:      30 * time.Second,
		LogLevel:             "info",
	}
	switch p {
	case Development:
		cfg.JWTSecret = devSecret
		cfg.LogLevel = "debug"
	case Staging, Production:
		cfg.DatabaseDriver = "postgres"
		cfg.CORSOrigins = nil // must be set explicitly
	}
	return cfg
}

// Load resolves the profile from v, applies its defaults, and overlays any
// values present in v (config file, TASKER_* env vars, bound flags).
func Load(v *viper.Viper) (Config, error) {
	profile, err := ParseProfile(v.GetString("profile"))
	if err != nil {
		return Config{}, err
	}
	cfg := Defaults(profile)

	if v.IsSet("server.host") {
		cfg.Host = v.GetString("server.host")
	}
	if v.IsSet("server.port") {
		cfg.Port = v.GetInt("server.port")
	}
	if v.IsSet("server.max_body_size") {
		cfg.MaxBodySize = v.GetInt64("server.max_body_size")
	}
	if v.IsSet("database.driver") {
		cfg.DatabaseDriver = v.GetString("database.driver")
	}
	if v.IsSet("database.dsn") {
		cfg.DatabaseDSN = v.GetString("database.dsn")
	}
	if v.IsSet("auth.jwt_secret") {
		cfg.JWTSecret = v.GetString("auth.jwt_secret")
	}
	if v.IsSet("auth.token_ttl_hours") {
		cfg.TokenTTL = time.Duration(v.GetInt("auth.token_ttl_hours")) * time.Hour
	}
	if v.IsSet("cors.origins") {
		cfg.CORSOrigins = v.GetStringSlice("cors.origins")
	}
	if v.IsSet("cors.allow_credentials") {
		cfg.CORSAllowCredentials = v.GetBool("cors.allow_credentials")
	}
	if v.IsSet("rate_limit.auth_per_minute") {
		cfg.RateLimitAuth = v.GetInt("rate_limit.auth_per_minute")
	}
	if v.IsSet("rate_limit.api_per_minute") {
		cfg.RateLimitAPI = v.GetInt("rate_limit.api_per_minute")
	}
	if v.IsSet("log.level") {
		cfg.LogLevel = v.GetString("log.level")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fails fast on configurations that would only blow up later.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return fmt.Errorf("database.dsn is required for the postgres driver")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set TASKER_AUTH_JWT_SECRET)")
	}
	if c.Profile != Development && c.JWTSecret == devSecret {
		return fmt.Errorf("the development jwt secret cannot be used in %s", c.Profile)
	}
	if c.Profile != Development && len(c.CORSOrigins) == 0 {
		return fmt.Errorf("cors.origins must be set explicitly in %s", c.Profile)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}
