package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sheet-agent/web"
	"sheet-agent/web/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web interface",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if cmd.Flags().Changed("port") {
			cfg.WebPort = servePort
		}
		if err := os.MkdirAll(cfg.WorkspaceDir, 0o755); err != nil {
			return fmt.Errorf("create workspace dir: %w", err)
		}

		analysisAgent, closeExecutor := buildAgent(ctx)
		defer closeExecutor()

		store, err := services.NewSessionStore(cfg.MaxSessions, cfg.WorkspaceDir, analysisAgent, logger)
		if err != nil {
			return fmt.Errorf("create session store: %w", err)
		}
		defer store.Purge()

		if cfg.CleanupEnabled {
			cleanup := web.NewCleanupService(store, cfg.WorkspaceDir, logger)
			go cleanup.Start(ctx, cfg.CleanupInterval, cfg.SessionRetentionAge)
		}

		server := web.NewServer(analysisAgent, store, logger, cfg)
		addr := fmt.Sprintf(":%d", cfg.WebPort)
		if err := server.Start(ctx, addr); err != nil {
			logger.Error("Web server stopped with error", zap.Error(err))
			return err
		}
		logger.Info("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides WEB_PORT)")
	rootCmd.AddCommand(serveCmd)
}
