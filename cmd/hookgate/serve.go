package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/hookgate/internal/pkg/config"
	"github.com/tjfontaine/hookgate/internal/telemetry"
	"github.com/tjfontaine/hookgate/pkg/hookgate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := slog.Default()

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry, os.Stdout, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	gw, err := hookgate.New(
		hookgate.WithLogger(logger),
		hookgate.WithFileConfig(configPath),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gw.Start(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- gw.Wait() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping gateway")
	case err := <-done:
		if err != nil {
			logger.Error("server stopped", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return gw.Shutdown(shutdownCtx)
}
