package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/security/secrets"
	"mercator-hq/relay/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	noWatch       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay server",
	Long: `Start the relay server with the specified configuration.

The server listens on the configured address, answers chat completion
requests from the response cache when it can, and routes the rest across
the configured providers.

The configuration file is watched while the server runs. Changes to the
routing strategy, retry policy, orchestrator deadlines and default cache TTL
apply immediately; other changes are logged and need a restart.

Examples:
  # Start with default config
  relay run

  # Start with custom config
  relay run --config /etc/relay/config.yaml

  # Override listen address
  relay run --listen 0.0.0.0:8080

  # Validate config without starting server
  relay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "do not reload the config file on change")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	applyFlagOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	if err := resolveSecrets(cmd.Context(), cfg); err != nil {
		return cli.NewConfigError("providers", err.Error())
	}

	logger, err := logging.Setup(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	printBanner(out, cfg)

	a, err := newApp(cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Error("shutdown cleanup failed", "error", err)
		}
	}()
	fmt.Fprintf(out, "✓ Providers initialized (%d providers)\n", a.providers.ProviderCount())

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	if err := a.start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	if !runFlags.noWatch {
		watcher, err := config.NewWatcher(cfgFile, 0, logger)
		if err != nil {
			logger.Warn("config watcher unavailable, hot reload disabled", "error", err)
		} else {
			defer watcher.Stop()
			go func() {
				err := watcher.Watch(ctx, func(next *config.Config) {
					applyFlagOverrides(next)
					if err := resolveSecrets(ctx, next); err != nil {
						logger.Error("reloaded config not applied", "error", err)
						return
					}
					a.applyConfig(next)
				})
				if err != nil {
					logger.Error("config watcher exited", "error", err)
				}
			}()
		}
	}

	ln, err := net.Listen("tcp", cfg.Server.ListenAddress)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "✓ Server listening on %s\n", ln.Addr())
	fmt.Fprintf(out, "✓ Health endpoint: http://%s/health\n", ln.Addr())
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", ln.Addr(), cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := a.server.Serve(ctx, ln); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// applyFlagOverrides applies command-line overrides on top of a loaded
// configuration. It runs again on every reload so that the overrides
// survive.
func applyFlagOverrides(cfg *config.Config) {
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	switch {
	case runFlags.logLevel != "":
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	case verbose:
		cfg.Telemetry.Logging.Level = "debug"
	}
}

// resolveSecrets replaces ${secret:name} references in provider API keys.
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	sm, err := secrets.FromConfig(cfg.Secrets)
	if err != nil {
		return err
	}
	return sm.ResolveProviderKeys(ctx, cfg)
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Mercator Relay v%s\n", Version)
	fmt.Fprintf(w, "Loading configuration from: %s\n", cfgFile)
	fmt.Fprintln(w, "✓ Configuration loaded")

	slog.Debug("providers configured", "count", len(cfg.Providers), "ids", sortedKeys(cfg.Providers))
	slog.Debug("routing configured", "strategy", cfg.Routing.Strategy)
	if cfg.Cache.Enabled {
		slog.Debug("cache enabled",
			"shared_backend", cfg.Cache.Shared.Backend,
			"default_ttl", cfg.Cache.DefaultTTL.String(),
		)
	}
}
