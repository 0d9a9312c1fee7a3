// main.go - metriclens ingestion service
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"metriclens/internal/config"
	"metriclens/internal/logging"
	"metriclens/internal/pipeline"
	"metriclens/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.GetConfig()
	logger := logging.NewLogger(cfg)

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		logger.Error("Failed to build pipeline options", slog.Any("error", err))
		os.Exit(1)
	}

	app := server.New(cfg, logger, opts)

	go func() {
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			logger.Error("Server stopped", slog.Any("error", err))
		}
	}()
	logger.Info("Server started", slog.String("port", cfg.AppPort), slog.String("env", cfg.Environment))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Shutdown error", slog.Any("error", err))
	}
}
