package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/tinystore/dashboard"
	"github.com/jpalmerr/tinystore/internal/inspect"
)

// serveCmd starts the inspector server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inspector server",
	Long: `Start the tinystore inspector.

The server will:
  - Load configuration from the specified YAML file
  - Build the store and dispatch the config script as seed data
  - Serve the inspector API on the configured port

Endpoints:
  GET  /api/state    current state snapshot
  POST /api/actions  dispatch a JSON action, e.g. {"type":"bugs/inc"}
  GET  /api/sse      Server-Sent Events stream of snapshots

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  tinystore serve -c config.yaml
  tinystore serve --config /etc/tinystore/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := cfg.Logger(os.Stderr)
	logger.Info("config loaded",
		"counters", len(cfg.Counters),
		"script", len(cfg.Script),
	)

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}

	// attach before seeding so the first snapshots are counted
	hub := inspect.NewHub[map[string]any](store)
	defer hub.Close()

	applied, malformed := runScript(store, cfg.Actions())
	logger.Info("script dispatched", "applied", applied, "malformed", malformed)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := inspect.NewServer(hub, store, cfg.Port, dashboard.Assets, cfg.Title, logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("inspector available", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))

	<-ctx.Done()

	// give in-flight requests the configured grace period
	timeout := cfg.ShutdownTimeout.Duration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case <-srv.Done():
		logger.Info("shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out",
			"timeout", timeout.String(),
			"action", "forcing exit",
		)
	}
	return nil
}
