// Package main is the entry point for the portfolio manager backend.
// It serves the user, banking, stock, portfolio, risk and chatbot APIs
// and runs the cache, checkpoint and backup jobs in the background.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-manager/internal/config"
	"github.com/aristath/portfolio-manager/internal/di"
	"github.com/aristath/portfolio-manager/internal/server"
	"github.com/aristath/portfolio-manager/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// main orchestrates startup:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires databases, repositories, services and jobs
// 4. Starts the scheduler and the HTTP server
// 5. Waits for SIGINT/SIGTERM and shuts down gracefully
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Fallback logger so the configuration error is still reported
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobal(log)

	// Money and scores are emitted as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("quote_provider", cfg.MarketData.Provider).
		Bool("require_auth", cfg.Auth.RequireAuth).
		Msg("Starting portfolio manager")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close resources")
		}
	}()

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	// In-flight requests get up to shutdownTimeout to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Waits for running jobs to finish
	container.Scheduler.Stop()

	log.Info().Msg("Server stopped")
}
