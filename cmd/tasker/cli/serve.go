package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taskerhq/tasker/internal/config"
	"github.com/taskerhq/tasker/internal/server"
)

const banner = `
 _____ _   ___ _  _____ ___
|_   _/ \ / __| |/ / __| _ \
  | |/ _ \\__ \ ' <| _||   /
  |_/_/ \_\___/_|\_\___|_|_\
`

func newServeCmd() *cobra.Command {
	var (
		port    int
		host    string
		profile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Tasker API server",
		Long:  "Start the HTTP server that exposes the task, category, and authentication APIs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(profile)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8000, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().StringVar(&profile, "profile", "", "Deployment profile: development, staging, or production")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("profile", cmd.Flags().Lookup("profile"))

	return cmd
}

func runServe(profile string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("store opened", "driver", cfg.DatabaseDriver)

	authSvc := newAuthService(cfg, st)

	srv := server.New(cfg, st, authSvc, logger)

	fmt.Print(banner)
	fmt.Println()
	fmt.Printf("→ Tasker %s (%s)\n", versionString(), cfg.Profile)
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Host, cfg.Port)
	fmt.Printf("→ API root:  http://%s:%d/api/v1\n", cfg.Host, cfg.Port)
	fmt.Printf("→ Health:    http://%s:%d/healthz\n", cfg.Host, cfg.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

// newLogger builds the process logger. Production gets JSON for log
// shippers; everything else gets human-readable text.
func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Profile == config.Production {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
