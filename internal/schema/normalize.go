package schema

import (
	"fmt"
	"strings"
)

// Warning codes attached to recoverable row-level issues.
const (
	WarnDuplicateColumn   = "duplicate_column"
	WarnUnparseableMetric = "unparseable_metric"
)

// Quarantine reason codes.
const (
	ReasonMissingDimensions = "missing_dimensions"
)

// Record is one normalized row: dimension values keyed by canonical name
// and the full canonical metric set, zero-filled where the source was silent.
type Record struct {
	Dimensions map[string]string
	Metrics    map[string]float64
}

// Warning is a recoverable issue found while normalizing; it never aborts
// the batch.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Row     int    `json:"row"` // 1-based data row, 0 for header-level warnings
}

// QuarantinedRow holds a row that could not be normalized, with the reason.
type QuarantinedRow struct {
	Row    int               `json:"row"`
	Values map[string]string `json:"values"`
	Reason string            `json:"reason"`
}

// NormalizeResult is everything Normalize produces for one batch.
type NormalizeResult struct {
	Records        []Record
	Quarantined    []QuarantinedRow
	Warnings       []Warning
	DimensionNames []string // canonical dimensions present in this batch, in mapping order
	MetricNames    []string // full canonical metric set, in mapping order
}

// HasDimension reports whether the batch schema contains the dimension.
func (r *NormalizeResult) HasDimension(name string) bool {
	for _, d := range r.DimensionNames {
		if d == name {
			return true
		}
	}
	return false
}

type columnRole int

const (
	roleDimension columnRole = iota
	roleMetric
)

type resolvedColumn struct {
	index     int
	canonical string
	role      columnRole
	metric    MetricType
}

// Normalize resolves the table's columns against the mapping and converts
// every data row into a Record. Rows missing all mandatory dimensions are
// quarantined; metric parse failures become warnings, never errors.
func Normalize(table *Table, mapping Mapping) *NormalizeResult {
	result := &NormalizeResult{
		MetricNames: mapping.MetricNames(),
	}

	columns, headerWarnings := resolveColumns(table.Header, mapping)
	result.Warnings = append(result.Warnings, headerWarnings...)

	// Batch dimension schema: canonical dimensions that resolved in the header.
	resolvedDims := map[string]bool{}
	for _, col := range columns {
		if col.role == roleDimension {
			resolvedDims[col.canonical] = true
		}
	}
	for _, name := range mapping.DimensionNames() {
		if resolvedDims[name] {
			result.DimensionNames = append(result.DimensionNames, name)
		}
	}

	for i, row := range table.Rows {
		rowNum := i + 1

		record := Record{
			Dimensions: make(map[string]string, len(result.DimensionNames)),
			Metrics:    make(map[string]float64, len(result.MetricNames)),
		}
		for _, name := range result.DimensionNames {
			record.Dimensions[name] = NotSet
		}
		for _, name := range result.MetricNames {
			record.Metrics[name] = 0
		}

		hasMandatory := len(mapping.MandatoryDimensions) == 0
		for _, col := range columns {
			if col.index >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[col.index])

			switch col.role {
			case roleDimension:
				if value == "" {
					continue
				}
				record.Dimensions[col.canonical] = value
				if isMandatory(col.canonical, mapping.MandatoryDimensions) {
					hasMandatory = true
				}
			case roleMetric:
				if value == "" {
					continue
				}
				parsed, ok := ParseMetricValue(value, col.metric)
				if !ok {
					result.Warnings = append(result.Warnings, Warning{
						Code:    WarnUnparseableMetric,
						Message: fmt.Sprintf("metric %q value %q is not numeric, using 0", col.canonical, value),
						Row:     rowNum,
					})
					continue
				}
				record.Metrics[col.canonical] = parsed
			}
		}

		if !hasMandatory {
			result.Quarantined = append(result.Quarantined, QuarantinedRow{
				Row:    rowNum,
				Values: rawValues(table.Header, row),
				Reason: ReasonMissingDimensions,
			})
			continue
		}

		result.Records = append(result.Records, record)
	}

	synthesizeSourceMedium(result)

	return result
}

// synthesizeSourceMedium builds the combined "sourceMedium" dimension when
// the export carries source and medium as separate columns, mirroring the
// "google / cpc" spelling GA uses for its own combined column.
func synthesizeSourceMedium(result *NormalizeResult) {
	if !result.HasDimension("source") || !result.HasDimension("medium") || result.HasDimension("sourceMedium") {
		return
	}

	result.DimensionNames = append(result.DimensionNames, "sourceMedium")
	for i := range result.Records {
		r := &result.Records[i]
		r.Dimensions["sourceMedium"] = r.Dimensions["source"] + " / " + r.Dimensions["medium"]
	}
}

// resolveColumns matches raw header names to canonical identifiers.
// Matching is case- and whitespace-insensitive. When two raw columns resolve
// to the same canonical name the last one wins, flagged as a warning.
func resolveColumns(header []string, mapping Mapping) ([]resolvedColumn, []Warning) {
	aliasIndex := map[string]resolvedColumn{}
	for _, d := range mapping.Dimensions {
		for _, alias := range d.Aliases {
			aliasIndex[foldColumnName(alias)] = resolvedColumn{canonical: d.Name, role: roleDimension}
		}
	}
	for _, m := range mapping.Metrics {
		for _, alias := range m.Aliases {
			aliasIndex[foldColumnName(alias)] = resolvedColumn{canonical: m.Name, role: roleMetric, metric: m.Type}
		}
	}

	var warnings []Warning
	byCanonical := map[string]int{} // canonical name -> position in columns
	var columns []resolvedColumn

	for i, raw := range header {
		match, ok := aliasIndex[foldColumnName(raw)]
		if !ok {
			continue
		}
		match.index = i

		if pos, seen := byCanonical[match.canonical]; seen {
			warnings = append(warnings, Warning{
				Code:    WarnDuplicateColumn,
				Message: fmt.Sprintf("column %q duplicates %q, keeping the last occurrence", raw, match.canonical),
			})
			columns[pos] = match
			continue
		}

		byCanonical[match.canonical] = len(columns)
		columns = append(columns, match)
	}

	return columns, warnings
}

// foldColumnName lowercases a raw column name and strips the separators GA
// variants disagree on, so "Session Source / Medium" and
// "session_source/medium" fold to the same key.
func foldColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '_', '-', '/', '.':
			return -1
		}
		return r
	}, name)
}

func isMandatory(name string, mandatory []string) bool {
	for _, m := range mandatory {
		if m == name {
			return true
		}
	}
	return false
}

func rawValues(header, row []string) map[string]string {
	values := make(map[string]string, len(row))
	for i, cell := range row {
		if i < len(header) {
			values[header[i]] = cell
		}
	}
	return values
}
