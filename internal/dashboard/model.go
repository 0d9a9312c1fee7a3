// Package dashboard assembles aggregation results and insights into the
// serializable model consumed by the rendering and narrative layers. The
// model carries data only; formatting lives in the exporters.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"metriclens/internal/aggregate"
	"metriclens/internal/insight"
	"metriclens/internal/schema"
)

// ModelIntegrityError signals an internal invariant violation: an insight
// referencing a group absent from its section. It marks a defect, never a
// user error, and is unreachable through valid input.
type ModelIntegrityError struct {
	Section string
	Key     string
}

func (e *ModelIntegrityError) Error() string {
	return fmt.Sprintf("section %q: insight references unknown group %q", e.Section, e.Key)
}

// Section holds one grouping's ordered results and its insights.
type Section struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	GroupBy       []string           `json:"groupBy"`
	PrimaryMetric string             `json:"primaryMetric"`
	Results       []aggregate.Result `json:"results"`
	Insights      []insight.Insight  `json:"insights"`
}

// KPI is one headline figure for the summary section.
type KPI struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	// Unit hints the exporter: "count", "percent", "currency", "duration", "decimal".
	Unit string `json:"unit"`
}

// Summary is the batch-level executive overview.
type Summary struct {
	KPIs      []KPI  `json:"kpis"`
	DateStart string `json:"dateStart,omitempty"`
	DateEnd   string `json:"dateEnd,omitempty"`
	RowCount  int    `json:"rowCount"`
}

// Model is the top-level dashboard document. Fully serializable, order
// stable, free of presentation logic.
type Model struct {
	ReportID    string           `json:"reportId"`
	Title       string           `json:"title"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Summary     Summary          `json:"summary"`
	Sections    []Section        `json:"sections"`
	Warnings    []schema.Warning `json:"warnings,omitempty"`
	Quarantined int              `json:"quarantinedRows,omitempty"`
}

// SectionInput is one grouping spec with its computed artifacts.
type SectionInput struct {
	GroupBy       []string
	PrimaryMetric string
	Results       []aggregate.Result
	Insights      []insight.Insight
}

// Build assembles sections in caller order, validating that every insight
// references a group present in its own section.
func Build(inputs []SectionInput) ([]Section, error) {
	sections := make([]Section, 0, len(inputs))
	for _, in := range inputs {
		section := Section{
			ID:            sectionID(in.GroupBy),
			Title:         sectionTitle(in.GroupBy),
			GroupBy:       in.GroupBy,
			PrimaryMetric: in.PrimaryMetric,
			Results:       in.Results,
			Insights:      in.Insights,
		}

		known := make(map[string]bool, len(in.Results))
		for _, r := range in.Results {
			known[r.FlatKey()] = true
		}
		for _, ins := range in.Insights {
			flat := strings.Join(ins.Key, aggregate.KeySeparator)
			if !known[flat] {
				return nil, &ModelIntegrityError{Section: section.ID, Key: flat}
			}
		}

		sections = append(sections, section)
	}
	return sections, nil
}

func sectionID(groupBy []string) string {
	return "by_" + strings.Join(groupBy, "_")
}

func sectionTitle(groupBy []string) string {
	return "By " + strings.Join(groupBy, " / ")
}
