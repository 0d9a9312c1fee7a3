// Package pipeline orchestrates one analysis batch: CSV bytes in, dashboard
// model out. Each invocation is independent and shares only immutable
// configuration, so concurrent analyses need no locking.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"metriclens/internal/aggregate"
	"metriclens/internal/config"
	"metriclens/internal/dashboard"
	"metriclens/internal/insight"
	"metriclens/internal/schema"
)

// WarnSchemaMismatch marks a grouping spec that was skipped because a
// requested dimension is absent from the batch schema. Other groupings in
// the same batch still run.
const WarnSchemaMismatch = "schema_mismatch"

// RowLimitError rejects oversized input before normalization starts.
type RowLimitError struct {
	Rows, Limit int
}

func (e *RowLimitError) Error() string {
	return fmt.Sprintf("input has %d rows, exceeding the configured limit of %d", e.Rows, e.Limit)
}

// Options carries everything one batch needs. Build it once and share it;
// nothing in it is mutated by Run.
type Options struct {
	Title         string
	Mapping       schema.Mapping
	GroupBy       [][]string
	PrimaryMetric string
	Derived       []aggregate.DerivedMetric
	Insight       insight.Config
	MaxRows       int
}

// OptionsFromConfig assembles pipeline options from the application config,
// loading the alias-table override when one is configured.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mapping := schema.DefaultMapping()
	if cfg.AliasTablePath != "" {
		loaded, err := schema.LoadMapping(cfg.AliasTablePath)
		if err != nil {
			return Options{}, err
		}
		mapping = loaded
	}

	return Options{
		Title:         "Google Analytics Performance Dashboard",
		Mapping:       mapping,
		GroupBy:       cfg.GroupingSpecs(),
		PrimaryMetric: cfg.PrimaryMetric,
		Derived:       aggregate.DefaultDerivedMetrics(),
		Insight: insight.Config{
			TopN:                     cfg.TopSegments,
			MinShareForConcentration: cfg.MinShareForConcentration,
			AnomalyZScore:            cfg.AnomalyZScore,
		},
		MaxRows: cfg.MaxRows,
	}, nil
}

// Run analyzes one CSV batch and returns the dashboard model. Row-level
// issues degrade the result and surface as warnings; only structurally
// invalid input fails the whole run.
func Run(logger *slog.Logger, data []byte, opts Options) (*dashboard.Model, error) {
	started := time.Now()

	table, err := schema.ParseCSV(data)
	if err != nil {
		return nil, err
	}

	if opts.MaxRows > 0 && len(table.Rows) > opts.MaxRows {
		return nil, &RowLimitError{Rows: len(table.Rows), Limit: opts.MaxRows}
	}

	batch := schema.Normalize(table, opts.Mapping)
	logger.Info("Normalized batch",
		slog.Int("records", len(batch.Records)),
		slog.Int("quarantined", len(batch.Quarantined)),
		slog.Int("warnings", len(batch.Warnings)))

	warnings := append([]schema.Warning{}, batch.Warnings...)

	var inputs []dashboard.SectionInput
	for _, groupBy := range opts.GroupBy {
		results, primary, err := aggregate.Aggregate(batch, groupBy, aggregate.Options{
			PrimaryMetric: opts.PrimaryMetric,
			Derived:       opts.Derived,
		})
		if err != nil {
			var mismatch *aggregate.SchemaMismatchError
			if errors.As(err, &mismatch) {
				logger.Warn("Skipping grouping", slog.Any("groupBy", groupBy), slog.Any("error", err))
				warnings = append(warnings, schema.Warning{
					Code:    WarnSchemaMismatch,
					Message: err.Error(),
				})
				continue
			}
			return nil, fmt.Errorf("aggregation failed: %w", err)
		}

		inputs = append(inputs, dashboard.SectionInput{
			GroupBy:       groupBy,
			PrimaryMetric: primary,
			Results:       results,
			Insights:      insight.Detect(results, primary, opts.Insight),
		})
	}

	sections, err := dashboard.Build(inputs)
	if err != nil {
		// Integrity failures are defects, not user errors.
		return nil, fmt.Errorf("dashboard assembly failed: %w", err)
	}

	model := &dashboard.Model{
		ReportID:    uuid.NewString(),
		Title:       opts.Title,
		GeneratedAt: time.Now().UTC(),
		Summary:     dashboard.ComputeSummary(batch),
		Sections:    sections,
		Warnings:    warnings,
		Quarantined: len(batch.Quarantined),
	}

	logger.Info("Batch analyzed",
		slog.String("reportId", model.ReportID),
		slog.Int("sections", len(model.Sections)),
		slog.Duration("elapsed", time.Since(started)))

	return model, nil
}
