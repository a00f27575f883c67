package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/spacebridge-io/spacebridge-mcp/internal/compat"
	"github.com/spacebridge-io/spacebridge-mcp/internal/config"
	sbserver "github.com/spacebridge-io/spacebridge-mcp/internal/server"
)

const versionCheckTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	Long: `Start the MCP server on stdin/stdout. Logs go to stderr.

Settings resolve in this order: command-line flag, environment variable,
.env file in the working directory, git remote (org and project only).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	config.RegisterFlags(serveCmd.Flags())
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	// stdout carries the MCP transport; everything else goes to stderr.
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	srv, err := sbserver.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.SkipVersionCheck {
		if err := checkVersion(ctx, srv, cfg); err != nil {
			return err
		}
	}

	logger.Info("serving MCP over stdio", "version", sbserver.Version, "tracker", srv.Tracker.BaseURL())
	return server.ServeStdio(srv.MCP, server.WithErrorLogger(slog.NewLogLogger(handler, slog.LevelError)))
}

// checkVersion runs the startup compatibility handshake. Only a client
// older than the server's minimum is fatal.
func checkVersion(ctx context.Context, srv *sbserver.Server, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
	defer cancel()

	warn := color.New(color.FgYellow)
	result, err := compat.Check(ctx, srv.Tracker, sbserver.Version, cfg.Scope())
	if err != nil {
		warn.Fprintf(os.Stderr, "\n  ⚠ Could not verify server compatibility: %v\n    Continuing anyway.\n\n", err)
		return nil
	}

	if !result.Compatible {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr,
			"\n  ✖ spacebridge-mcp v%s is too old for this server (v%s).\n"+
				"    Minimum supported client version: v%s\n\n",
			result.ClientVersion, result.ServerVersion, result.MinClientVersion,
		)
		return fmt.Errorf("client version %s is below the minimum %s required by the server", result.ClientVersion, result.MinClientVersion)
	}

	if result.UpgradeRecommended {
		warn.Fprintf(os.Stderr,
			"\n  📦 Update recommended: v%s → v%s\n\n",
			result.ClientVersion, result.MaxClientVersion,
		)
	}
	return nil
}
