// Package v1 exposes the public ingestion API: upload a Google Analytics
// CSV export, get the analyzed dashboard model back. The service keeps no
// state between requests.
package v1

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"metriclens/internal/pipeline"
	"metriclens/internal/schema"
)

const (
	errEmptyBody      = "Request body must contain CSV data"
	errMalformedInput = "CSV could not be parsed"
)

// ReportHandler analyzes uploaded CSV exports.
type ReportHandler struct {
	logger *slog.Logger
	opts   pipeline.Options
}

// NewReportHandler creates the handler with shared, immutable pipeline
// options.
func NewReportHandler(logger *slog.Logger, opts pipeline.Options) *ReportHandler {
	return &ReportHandler{logger: logger, opts: opts}
}

// CreateReport accepts a CSV export as the raw request body or as a
// multipart "file" field, runs the analysis pipeline, and returns the
// dashboard model. An optional group_by query overrides the configured
// grouping specs ("source,medium;eventName").
func (h *ReportHandler) CreateReport(c *fiber.Ctx) error {
	h.logger.Info("Received report request", slog.String("path", c.Path()))

	data, err := h.readCSV(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "INVALID_UPLOAD",
		})
	}
	if len(data) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errEmptyBody,
			"code":  "EMPTY_BODY",
		})
	}

	opts := h.opts
	if groupBy := c.Query("group_by"); groupBy != "" {
		opts.GroupBy = parseGroupBy(groupBy)
	}

	model, err := pipeline.Run(h.logger, data, opts)
	if err != nil {
		return h.handleError(c, err)
	}

	h.logger.Info("Report generated", slog.String("reportId", model.ReportID))
	return c.Status(http.StatusOK).JSON(model)
}

func (h *ReportHandler) readCSV(c *fiber.Ctx) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, errors.New("cannot open uploaded file")
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return c.Body(), nil
}

func (h *ReportHandler) handleError(c *fiber.Ctx, err error) error {
	var malformed *schema.MalformedInputError
	if errors.As(err, &malformed) {
		h.logger.Debug("Rejected malformed input", slog.Any("error", err))
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errMalformedInput,
			"code":  "MALFORMED_INPUT",
		})
	}

	var rowLimit *pipeline.RowLimitError
	if errors.As(err, &rowLimit) {
		return c.Status(http.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ROW_LIMIT_EXCEEDED",
		})
	}

	h.logger.Error("Failed to generate report", slog.Any("error", err))
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to generate report",
		"code":  "ANALYSIS_ERROR",
	})
}

// parseGroupBy parses "source,medium;eventName" into grouping specs.
func parseGroupBy(raw string) [][]string {
	var specs [][]string
	for _, spec := range strings.Split(raw, ";") {
		var dims []string
		for _, d := range strings.Split(spec, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dims = append(dims, d)
			}
		}
		if len(dims) > 0 {
			specs = append(specs, dims)
		}
	}
	return specs
}
