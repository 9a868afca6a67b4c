package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"promptstudio/aegis/pkg/cli"
	"promptstudio/aegis/pkg/mcpserver"
)

var mcpFlags struct {
	transport   string
	httpAddress string
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the safety tools over the Model Context Protocol",
	Long: `Serve safety_check, sanitize and list_patterns as MCP tools.

The stdio transport (default) is for agents and editors that launch aegis
as a subprocess. Logs go to stderr so stdout carries only the protocol.

Examples:
  # stdio, e.g. from an MCP client config
  aegis mcp

  # streamable HTTP
  aegis mcp --transport http --http-address 127.0.0.1:8421`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().StringVar(&mcpFlags.transport, "transport", "", "override transport (stdio, http)")
	mcpCmd.Flags().StringVar(&mcpFlags.httpAddress, "http-address", "", "override the http transport listen address")
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if mcpFlags.transport != "" {
		cfg.MCP.Transport = mcpFlags.transport
	}
	if mcpFlags.httpAddress != "" {
		cfg.MCP.HTTPAddress = mcpFlags.httpAddress
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
		return cli.NewCommandError("mcp", err)
	}
	if err := mcpserver.New(svc).Run(ctx); err != nil && ctx.Err() == nil {
		return cli.NewCommandError("mcp", err)
	}
	return nil
}
