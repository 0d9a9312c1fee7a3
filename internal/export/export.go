// Package export renders a built dashboard model to JSON, Markdown, or a
// self-contained HTML document. All number formatting happens here; the
// model itself stays purely numeric.
package export

import (
	"fmt"

	"github.com/goccy/go-json"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"metriclens/internal/dashboard"
)

// Format selects the output rendering.
type Format string

// Supported export formats
const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatJSON, FormatMarkdown, FormatHTML:
		return Format(name), nil
	}
	return "", fmt.Errorf("unsupported format: %s", name)
}

// Render serializes the model in the requested format.
func Render(model *dashboard.Model, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(model, "", "  ")
	case FormatMarkdown:
		return renderMarkdown(model)
	case FormatHTML:
		return renderHTML(model)
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

// formatValue renders a metric value per its unit hint with grouped
// thousands ("1,200").
func formatValue(p *message.Printer, value float64, unit string) string {
	switch unit {
	case "count":
		return p.Sprintf("%.0f", value)
	case "percent":
		return p.Sprintf("%.2f%%", value*100)
	case "currency":
		return p.Sprintf("$%.2f", value)
	case "duration":
		return p.Sprintf("%.0fs", value)
	default:
		return p.Sprintf("%.2f", value)
	}
}

func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}
