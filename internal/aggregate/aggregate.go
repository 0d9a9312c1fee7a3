// Package aggregate groups normalized records by dimension tuples and
// computes summed and derived metrics per group. Everything here is a pure
// function of its inputs; results are deterministic for identical input.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"metriclens/internal/schema"
)

// KeySeparator joins dimension values into the flat group key.
const KeySeparator = " / "

// SchemaMismatchError indicates a requested grouping dimension is absent
// from the batch schema. It is fatal for that grouping request only.
type SchemaMismatchError struct {
	Dimension string
	Available []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("grouping dimension %q not present in schema (available: %s)",
		e.Dimension, strings.Join(e.Available, ", "))
}

// Result is one aggregated group: its key tuple, summed metrics, derived
// metrics, and the group's share of the batch total per summed metric.
// Immutable once produced.
type Result struct {
	Key        []string           `json:"key"`
	Metrics    map[string]float64 `json:"metrics"`
	Derived    map[string]float64 `json:"derived"`
	Shares     map[string]float64 `json:"shares"`
	RowCount   int                `json:"rowCount"`
	ZeroDenoms []string           `json:"zeroDenominators,omitempty"`
}

// FlatKey returns the key tuple joined for display and referencing.
func (r Result) FlatKey() string {
	return strings.Join(r.Key, KeySeparator)
}

// DerivedMetric defines a rate computed from finalized sums, never
// incrementally.
type DerivedMetric struct {
	Name        string
	Numerator   string
	Denominator string
	// Scale multiplies the ratio; 1 keeps rates in [0, 1].
	Scale float64
}

// DefaultDerivedMetrics returns the standard GA rate set.
func DefaultDerivedMetrics() []DerivedMetric {
	return []DerivedMetric{
		{Name: "sessionsPerUser", Numerator: "sessions", Denominator: "users", Scale: 1},
		{Name: "pagesPerSession", Numerator: "pageviews", Denominator: "sessions", Scale: 1},
		{Name: "conversionRate", Numerator: "conversions", Denominator: "sessions", Scale: 1},
		{Name: "revenuePerSession", Numerator: "revenue", Denominator: "sessions", Scale: 1},
	}
}

// Options tunes an aggregation run.
type Options struct {
	// PrimaryMetric orders the output (descending). When it is absent from
	// the batch, the summable metric with the highest batch total is used.
	PrimaryMetric string
	Derived       []DerivedMetric
}

// Aggregate groups records by the given dimensions, in key-tuple order, and
// returns one Result per distinct key. Output is ordered descending by the
// primary metric, ties broken lexicographically by key.
func Aggregate(batch *schema.NormalizeResult, groupBy []string, opts Options) ([]Result, string, error) {
	if len(groupBy) == 0 {
		return nil, "", fmt.Errorf("at least one grouping dimension is required")
	}
	for _, dim := range groupBy {
		if !batch.HasDimension(dim) {
			return nil, "", &SchemaMismatchError{Dimension: dim, Available: batch.DimensionNames}
		}
	}

	type group struct {
		key  []string
		sums map[string]float64
		rows int
	}

	groups := map[string]*group{}
	totals := map[string]float64{}

	// Single pass: accumulate exact sums, no intermediate rounding.
	for _, record := range batch.Records {
		key := make([]string, len(groupBy))
		for i, dim := range groupBy {
			key[i] = record.Dimensions[dim]
		}
		flat := strings.Join(key, "\x00")

		g, ok := groups[flat]
		if !ok {
			g = &group{key: key, sums: make(map[string]float64, len(batch.MetricNames))}
			groups[flat] = g
		}
		for _, name := range batch.MetricNames {
			g.sums[name] += record.Metrics[name]
			totals[name] += record.Metrics[name]
		}
		g.rows++
	}

	primary := resolvePrimaryMetric(opts.PrimaryMetric, batch.MetricNames, totals)

	// Derived metrics and shares are computed from finalized sums only.
	results := make([]Result, 0, len(groups))
	for _, g := range groups {
		r := Result{
			Key:      g.key,
			Metrics:  g.sums,
			Derived:  make(map[string]float64, len(opts.Derived)),
			Shares:   make(map[string]float64, len(g.sums)),
			RowCount: g.rows,
		}
		for _, d := range opts.Derived {
			num, den := g.sums[d.Numerator], g.sums[d.Denominator]
			if den == 0 {
				r.Derived[d.Name] = 0
				r.ZeroDenoms = append(r.ZeroDenoms, d.Name)
				continue
			}
			scale := d.Scale
			if scale == 0 {
				scale = 1
			}
			r.Derived[d.Name] = num / den * scale
		}
		for name, sum := range g.sums {
			if total := totals[name]; total > 0 {
				r.Shares[name] = sum / total
			}
		}
		sort.Strings(r.ZeroDenoms)
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i].Metrics[primary], results[j].Metrics[primary]
		if a != b {
			return a > b
		}
		return results[i].FlatKey() < results[j].FlatKey()
	})

	return results, primary, nil
}

// resolvePrimaryMetric keeps ordering well-defined when the configured
// primary metric never appears in the batch: fall back to the metric with
// the highest batch total, ties broken by name.
func resolvePrimaryMetric(configured string, names []string, totals map[string]float64) string {
	for _, name := range names {
		if name == configured {
			return name
		}
	}

	best := configured
	bestTotal := -1.0
	for _, name := range names {
		if totals[name] > bestTotal || (totals[name] == bestTotal && name < best) {
			best, bestTotal = name, totals[name]
		}
	}
	return best
}
