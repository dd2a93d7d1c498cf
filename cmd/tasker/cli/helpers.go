package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/taskerhq/tasker/internal/auth"
	"github.com/taskerhq/tasker/internal/config"
	"github.com/taskerhq/tasker/internal/service"
	"github.com/taskerhq/tasker/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// TASKER_DATA_DIR env var, or ~/.tasker as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("TASKER_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.tasker"
}

// loadConfig resolves the effective configuration from the profile defaults,
// the config file, and TASKER_* environment variables.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, err
	}
	if cfg.DatabaseDriver == store.DriverSQLite && cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = resolveDataDir()
	}
	return cfg, nil
}

// openStore opens the database named by the effective configuration.
func openStore(cfg config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// newAuthService builds the auth service the CLI commands share with the
// server: same store, same signing secret.
func newAuthService(cfg config.Config, st *store.Store) *service.AuthService {
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	return service.NewAuthService(st, tokens)
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
