// Package schema turns raw Google Analytics CSV exports into typed records.
// Column names are reconciled against an alias table, metric values are
// coerced per their declared type, and rows that cannot carry any dimension
// are quarantined instead of dropped.
package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NotSet is the sentinel value for dimensions absent from a row,
// matching the placeholder Google Analytics itself uses.
const NotSet = "(not set)"

// MetricType drives how a raw metric value is coerced to a number.
type MetricType string

// Supported metric types
const (
	MetricCount    MetricType = "count"
	MetricDecimal  MetricType = "decimal"
	MetricPercent  MetricType = "percent"
	MetricDuration MetricType = "duration"
	MetricCurrency MetricType = "currency"
)

// DimensionSpec declares a canonical dimension and the raw column names
// that resolve to it.
type DimensionSpec struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// MetricSpec declares a canonical metric, its type, and accepted aliases.
type MetricSpec struct {
	Name    string     `yaml:"name"`
	Type    MetricType `yaml:"type"`
	Aliases []string   `yaml:"aliases"`
}

// Mapping is the column-alias and metric-type configuration for one batch.
// It is immutable once loaded and safe to share across concurrent analyses.
type Mapping struct {
	Dimensions []DimensionSpec `yaml:"dimensions"`
	Metrics    []MetricSpec    `yaml:"metrics"`

	// MandatoryDimensions lists canonical dimensions of which at least one
	// must be present in a row; rows missing all of them are quarantined.
	MandatoryDimensions []string `yaml:"mandatory_dimensions"`
}

// DimensionNames returns the canonical dimension names in declaration order.
func (m Mapping) DimensionNames() []string {
	names := make([]string, len(m.Dimensions))
	for i, d := range m.Dimensions {
		names[i] = d.Name
	}
	return names
}

// MetricNames returns the canonical metric names in declaration order.
func (m Mapping) MetricNames() []string {
	names := make([]string, len(m.Metrics))
	for i, mm := range m.Metrics {
		names[i] = mm.Name
	}
	return names
}

// MetricTypeOf returns the declared type for a canonical metric,
// defaulting to decimal for unknown names.
func (m Mapping) MetricTypeOf(name string) MetricType {
	for _, mm := range m.Metrics {
		if mm.Name == name {
			return mm.Type
		}
	}
	return MetricDecimal
}

// DefaultMapping returns the built-in alias table covering both Universal
// Analytics and GA4 export column spellings.
func DefaultMapping() Mapping {
	return Mapping{
		Dimensions: []DimensionSpec{
			{Name: "source", Aliases: []string{"source", "session source", "session_source", "sessionsource", "first user source"}},
			{Name: "medium", Aliases: []string{"medium", "session medium", "session_medium", "sessionmedium", "first user medium"}},
			{Name: "sourceMedium", Aliases: []string{"source / medium", "source/medium", "session source / medium", "session source/medium"}},
			{Name: "campaign", Aliases: []string{"campaign", "session campaign", "session_campaign", "sessioncampaign"}},
			{Name: "eventName", Aliases: []string{"event name", "eventname", "event_name"}},
			{Name: "date", Aliases: []string{"date", "date range", "daterange", "date range start"}},
		},
		Metrics: []MetricSpec{
			{Name: "users", Type: MetricCount, Aliases: []string{"users", "total users", "totalusers", "total_users", "active users", "activeusers"}},
			{Name: "sessions", Type: MetricCount, Aliases: []string{"sessions", "session count", "sessioncount", "session_count"}},
			{Name: "pageviews", Type: MetricCount, Aliases: []string{"pageviews", "views", "screen page views", "screenpageviews", "screen_page_views"}},
			{Name: "bounceRate", Type: MetricPercent, Aliases: []string{"bounce rate", "bouncerate", "bounce_rate"}},
			{Name: "avgSessionDuration", Type: MetricDuration, Aliases: []string{"avg. session duration", "avg session duration", "avgsessionduration", "average session duration", "averagesessionduration", "avg_session_duration"}},
			{Name: "conversions", Type: MetricCount, Aliases: []string{"conversions", "goal completions", "goalcompletions", "key events", "keyevents"}},
			{Name: "revenue", Type: MetricCurrency, Aliases: []string{"revenue", "total revenue", "totalrevenue", "purchase revenue", "purchaserevenue"}},
			{Name: "eventCount", Type: MetricCount, Aliases: []string{"event count", "eventcount", "event_count"}},
		},
		MandatoryDimensions: []string{"source", "medium", "sourceMedium", "eventName"},
	}
}

// LoadMapping reads a Mapping override from a YAML file.
func LoadMapping(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Mapping{}, fmt.Errorf("failed to read alias table %s: %w", path, err)
	}

	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Mapping{}, fmt.Errorf("failed to parse alias table %s: %w", path, err)
	}

	if len(m.Dimensions) == 0 || len(m.Metrics) == 0 {
		return Mapping{}, fmt.Errorf("alias table %s must declare at least one dimension and one metric", path)
	}

	return m, nil
}
