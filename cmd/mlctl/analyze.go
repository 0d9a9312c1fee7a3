package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"metriclens/internal/config"
	"metriclens/internal/export"
	"metriclens/internal/logging"
	"metriclens/internal/pipeline"
)

// AnalyzeCommand processes one CSV export into dashboard files
type AnalyzeCommand struct{}

// Name returns the command name
func (c *AnalyzeCommand) Name() string {
	return "analyze"
}

// Description returns the command description
func (c *AnalyzeCommand) Description() string {
	return "Analyzes a GA CSV export and writes dashboard files"
}

// Execute implements the analyze command
func (c *AnalyzeCommand) Execute(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	outputDir := flags.String("output-dir", "output", "directory to save the dashboard files")
	format := flags.String("format", "all", "output format: json, html, markdown, or all")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() < 1 {
		return fmt.Errorf("usage: %s <file.csv> [-output-dir dir] [-format json|html|markdown|all]", c.Name())
	}
	inputPath := flags.Arg(0)

	formats, err := resolveFormats(*format)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("cannot read input file: %w", err)
	}

	cfg := config.GetConfig()
	logger := logging.NewLogger(cfg)

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	model, err := pipeline.Run(logger, data, opts)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	for _, f := range formats {
		rendered, err := export.Render(model, f)
		if err != nil {
			return fmt.Errorf("failed to render %s output: %w", f, err)
		}

		outputPath := filepath.Join(*outputDir, fmt.Sprintf("%s_dashboard.%s", base, f.Extension()))
		if err := os.WriteFile(outputPath, rendered, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		log.Printf("Exported %s dashboard to: %s", strings.ToUpper(string(f)), outputPath)
	}

	if len(model.Warnings) > 0 {
		log.Printf("Completed with %d warnings (%d rows quarantined)", len(model.Warnings), model.Quarantined)
	}

	return nil
}

func resolveFormats(name string) ([]export.Format, error) {
	if name == "all" {
		return []export.Format{export.FormatJSON, export.FormatHTML, export.FormatMarkdown}, nil
	}

	f, err := export.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return []export.Format{f}, nil
}
