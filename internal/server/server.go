// Package server wires the fiber application and its routes.
package server

import (
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	v1 "metriclens/api/v1"
	"metriclens/internal/config"
	"metriclens/internal/pipeline"
)

// New builds the fiber app with the ingestion routes mounted.
func New(cfg *config.Config, logger *slog.Logger, opts pipeline.Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		BodyLimit:             cfg.MaxUploadSizeBytes(),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: cfg.IsTest(),
	})

	MountRoutes(app, logger, opts)
	return app
}

// MountRoutes attaches all public API routes.
func MountRoutes(app *fiber.App, logger *slog.Logger, opts pipeline.Options) {
	reports := v1.NewReportHandler(logger, opts)

	api := app.Group("/api/v1")
	api.Get("/health", v1.HealthHandler)
	api.Post("/reports", reports.CreateReport)
}
