package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/voclinx/linkarr/internal/config"
	"github.com/voclinx/linkarr/internal/logger"
	"github.com/voclinx/linkarr/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("linkarr failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkarr",
		Short: "Browse a media library and hard-link files into it",
		Long: `linkarr serves a small HTTP API for browsing the server's filesystem and a
websocket endpoint that hard-links files and whole directory trees into a
destination, streaming progress as it goes.

Configuration is read from an optional TOML file, then LINKARR_* environment
variables, then the flags below.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	cmd.Flags().String("config", "", "path to a TOML config file (default $LINKARR_CONFIG)")
	cmd.Flags().String("listen", "", "listen address (host:port)")
	cmd.Flags().String("log-level", "", "log level ("+strings.Join(logger.Levels, ", ")+")")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config") //nolint:errcheck // flag name is hardcoded

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return err
	}

	log := logger.Setup(cfg.LogLevel, os.Stdout)
	log.Info("linkarr starting",
		"listen_addr", cfg.ListenAddr,
		"default_dir", cfg.DefaultDir,
		"static_dir", cfg.StaticDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go reloadOnHangup(ctx, path, log)

	if err := server.New(cfg, log).Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	log.Info("Shutdown complete")
	return nil
}

// applyFlags overrides cfg with the flags set on the command line and
// validates the result again.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("listen") {
		cfg.ListenAddr, _ = flags.GetString("listen") //nolint:errcheck // flag name is hardcoded
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level") //nolint:errcheck // flag name is hardcoded
	}
	return config.Validate(cfg)
}

// reloadOnHangup re-reads the configuration on SIGHUP and applies its log
// level. Other settings need a restart.
func reloadOnHangup(ctx context.Context, path string, log *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load(path)
			if err != nil {
				log.Warn("Config reload failed", "error", err)
				continue
			}
			if err := logger.SetLevel(cfg.LogLevel); err != nil {
				log.Warn("Config reload failed", "error", err)
			}
		}
	}
}
