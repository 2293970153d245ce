package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/renovatehq/sowgen/internal/config"
	"github.com/renovatehq/sowgen/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the generation engine behind an HTTP API.

The configured user config file is watched; edits to retry or rate
settings take effect for jobs started after the reload.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&agentCatalogFile, "agents", "", "YAML agent catalog merged over the built-in agents")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	manager, err := buildManager(cfg)
	if err != nil {
		return err
	}
	defer manager.Wait()

	// Hot reload is observational for a running server: jobs in flight keep
	// their settings, later commands pick up the new file on Load.
	if err := config.Watch(config.GetUserConfigPath(), func(updated *config.Config) {
		log.Printf("[serve] config updated; new jobs use the reloaded settings after restart")
	}); err != nil {
		log.Printf("[serve] config watch disabled: %v", err)
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.New(manager).ListenAndServe(ctx, addr)
}
