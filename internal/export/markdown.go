package export

import (
	"bytes"
	"fmt"
	"strings"

	"metriclens/internal/dashboard"
)

// unitOf maps a metric name to its display unit. Percent-typed metrics and
// derived rates are stored in [0, 1] and scaled up at render time.
func unitOf(name string) string {
	switch name {
	case "bounceRate", "conversionRate":
		return "percent"
	case "revenue", "revenuePerSession":
		return "currency"
	case "avgSessionDuration":
		return "duration"
	case "sessionsPerUser", "pagesPerSession":
		return "decimal"
	default:
		return "count"
	}
}

func renderMarkdown(model *dashboard.Model) ([]byte, error) {
	p := newPrinter()
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", model.Title)
	fmt.Fprintf(&buf, "*Report %s, generated %s*\n\n", model.ReportID, model.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	buf.WriteString("## Summary\n\n")
	if model.Summary.DateStart != "" {
		fmt.Fprintf(&buf, "Date range: %s to %s\n\n", model.Summary.DateStart, model.Summary.DateEnd)
	}
	buf.WriteString("| Metric | Value |\n|--------|-------|\n")
	for _, kpi := range model.Summary.KPIs {
		fmt.Fprintf(&buf, "| %s | %s |\n", kpi.Name, formatValue(p, kpi.Value, kpi.Unit))
	}
	buf.WriteString("\n")

	for _, section := range model.Sections {
		fmt.Fprintf(&buf, "## %s\n\n", section.Title)

		if len(section.Results) == 0 {
			buf.WriteString("No data.\n\n")
			continue
		}

		metricNames := orderedMetricNames(section)
		buf.WriteString("| " + strings.Join(section.GroupBy, " / ") + " |")
		for _, name := range metricNames {
			buf.WriteString(" " + name + " |")
		}
		buf.WriteString("\n|" + strings.Repeat("---|", len(metricNames)+1) + "\n")

		for _, r := range section.Results {
			buf.WriteString("| " + r.FlatKey() + " |")
			for _, name := range metricNames {
				value, ok := r.Metrics[name]
				if !ok {
					value = r.Derived[name]
				}
				buf.WriteString(" " + formatValue(p, value, unitOf(name)) + " |")
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")

		if len(section.Insights) > 0 {
			buf.WriteString("### Findings\n\n")
			for _, ins := range section.Insights {
				fmt.Fprintf(&buf, "- **%s** %s: %s = %s",
					ins.Kind, strings.Join(ins.Key, " / "), ins.Metric,
					formatValue(p, ins.Value, unitOf(ins.Metric)))
				if ins.Share > 0 {
					fmt.Fprintf(&buf, " (%s of total)", formatValue(p, ins.Share, "percent"))
				}
				if ins.ZScore != 0 {
					fmt.Fprintf(&buf, " (z=%.2f)", ins.ZScore)
				}
				buf.WriteString("\n")
			}
			buf.WriteString("\n")
		}
	}

	if len(model.Warnings) > 0 {
		fmt.Fprintf(&buf, "## Warnings\n\n")
		for _, w := range model.Warnings {
			if w.Row > 0 {
				fmt.Fprintf(&buf, "- row %d: %s\n", w.Row, w.Message)
			} else {
				fmt.Fprintf(&buf, "- %s\n", w.Message)
			}
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// orderedMetricNames picks the section's display columns: primary metric
// first, remaining summed metrics, then derived rates, all in stable order.
func orderedMetricNames(section dashboard.Section) []string {
	if len(section.Results) == 0 {
		return nil
	}

	first := section.Results[0]
	names := make([]string, 0, len(first.Metrics)+len(first.Derived))
	if _, ok := first.Metrics[section.PrimaryMetric]; ok {
		names = append(names, section.PrimaryMetric)
	}
	names = append(names, sortedKeysExcept(first.Metrics, section.PrimaryMetric)...)
	names = append(names, sortedFloatKeys(first.Derived)...)
	return names
}
