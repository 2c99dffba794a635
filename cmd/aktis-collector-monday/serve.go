package main

import (
	"context"
	"os/signal"
	"syscall"

	"aktis-collector-monday/internal/common"
	"aktis-collector-monday/internal/services"

	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve status, run history, on-demand exports and ticket metrics",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides collector.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Collector.Port = servePort
	}

	if !quiet {
		common.PrintBanner(cfg, "Server", common.GetLogFilePath())
	}

	logger.Info().Msg("Initializing services...")

	pipeline, err := services.AssemblePipeline(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build export pipeline")
		return err
	}

	storage, err := services.NewStorage(&cfg.Storage)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize storage")
		return err
	}
	defer storage.Close()
	pipeline.WithStore(storage)

	logger.Info().Msg("Services initialized successfully")

	webServer, err := services.NewWebServer(cfg, pipeline, storage, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create web server")
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := webServer.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start web server")
		return err
	}

	logger.Info().
		Int("port", cfg.Collector.Port).
		Msg("Server running - press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received")

	if err := webServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping web server")
	}

	logger.Info().Msg("Server mode shutdown complete")
	return nil
}
