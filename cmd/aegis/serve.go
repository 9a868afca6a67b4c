package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"promptstudio/aegis/pkg/cli"
	"promptstudio/aegis/pkg/config"
	"promptstudio/aegis/pkg/server"
)

var serveFlags struct {
	listenAddress string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP safety service",
	Long: `Start the HTTP safety service with the specified configuration.

Endpoints:
  POST /v1/safety/check      run a safety check
  POST /v1/safety/sanitize   check and sanitize, writing the text back
  GET  /v1/safety/patterns   list the active patterns
  GET  /health /ready /version /metrics

Examples:
  # Start with built-in defaults
  aegis serve

  # Start with a config file
  aegis serve --config /etc/aegis/aegis.yaml

  # Override listen address
  aegis serve --listen 0.0.0.0:8420

  # Validate config without starting the server
  aegis serve --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
		if err := config.Validate(cfg); err != nil {
			return cli.NewConfigError("server.listen_address", err.Error())
		}
	}

	out := cmd.OutOrStdout()
	if serveFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	svc, err := newService(cfg, os.Stderr, false)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := svc.Close(shutdownCtx); err != nil {
			slog.Error("service shutdown failed", "error", err)
		}
	}()

	if err := svc.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}

	printBanner(cmd, cfg, svc.Engine.Registry().Len())

	srv := server.NewServer(svc)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

func printBanner(cmd *cobra.Command, cfg *config.Config, patterns int) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Aegis v%s\n", Version)
	fmt.Fprintf(out, "✓ %d patterns loaded\n", patterns)
	if cfg.Audit.Enabled {
		fmt.Fprintf(out, "✓ Audit store: %s\n", cfg.Audit.Backend)
	}
	fmt.Fprintf(out, "✓ Listening on %s\n", cfg.Server.ListenAddress)
	if cfg.Server.Auth.Enabled {
		fmt.Fprintf(out, "✓ API key auth: %d keys\n", len(cfg.Server.Auth.Keys))
	}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		fmt.Fprintf(out, "✓ Rate limit: %g req/s per client (burst %d)\n", rl.RequestsPerSecond, rl.Burst)
	}
	if cfg.Telemetry.Health.Enabled {
		fmt.Fprintf(out, "✓ Health endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	}
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
