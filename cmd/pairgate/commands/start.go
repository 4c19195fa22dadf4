package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cypherx/pairgate/internal/logger"
	"github.com/cypherx/pairgate/pkg/api"
	"github.com/cypherx/pairgate/pkg/api/handlers"
	"github.com/cypherx/pairgate/pkg/config"
	"github.com/cypherx/pairgate/pkg/credstore"
	credbadger "github.com/cypherx/pairgate/pkg/credstore/badger"
	credfs "github.com/cypherx/pairgate/pkg/credstore/fs"
	"github.com/cypherx/pairgate/pkg/metrics"
	"github.com/cypherx/pairgate/pkg/protocol/loopback"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pairgate server",
	Long: `Start the pairgate provisioning server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/pairgate/config.yaml.

Examples:
  # Start with default config location
  pairgate start

  # Start with custom config file
  pairgate start --config /etc/pairgate/config.yaml

  # Start with environment variable overrides
  PAIRGATE_LOGGING_LEVEL=DEBUG pairgate start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	// Initialize metrics (if enabled)
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}
	sessionMetrics := metrics.NewSessionMetrics()

	// Initialize the credential store backend
	store, err := newStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("credential store close error", "error", err)
		}
	}()
	logger.Info("Credential store initialized", "backend", cfg.Store.Backend, "path", cfg.Store.Path)

	// The loopback dialer simulates the remote messaging service in
	// process; a production transport implements protocol.Dialer and
	// replaces it here.
	dialer := loopback.NewDialer(loopback.Config{})

	pair := handlers.NewPairHandler(store, dialer, cfg.Provision.SessionConfig(sessionMetrics))
	apiServer := api.NewServer(cfg.API, pair)
	logger.Info("API server configured", "port", apiServer.Port(), "scheme", cfg.Provision.Scheme)

	// Start servers in background
	serverDone := make(chan error, 2)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()
	if metricsServer := metrics.NewServer(cfg.Metrics); metricsServer != nil {
		go func() {
			serverDone <- metricsServer.Start(ctx)
		}()
	}

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for the API server to shut down gracefully
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		cancel()
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// newStore creates the credential store selected by configuration.
func newStore(cfg config.StoreConfig) (credstore.Store, error) {
	switch cfg.Backend {
	case "badger":
		return credbadger.NewStore(cfg.Path)
	default:
		return credfs.NewStore(cfg.Path)
	}
}

// getConfigSource returns a description of where the config was loaded
// from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
