package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metriclens/internal/schema"
)

func TestNormalizeResolvesAliasesCaseInsensitively(t *testing.T) {
	table := &schema.Table{
		Header: []string{"Session Source", "SESSION MEDIUM", "Sessions"},
		Rows: [][]string{
			{"google", "cpc", "100"},
		},
	}

	result := schema.Normalize(table, schema.DefaultMapping())

	require.Len(t, result.Records, 1)
	assert.Equal(t, "google", result.Records[0].Dimensions["source"])
	assert.Equal(t, "cpc", result.Records[0].Dimensions["medium"])
	assert.Equal(t, float64(100), result.Records[0].Metrics["sessions"])
}

func TestNormalizeZeroFillsMissingMetrics(t *testing.T) {
	table := &schema.Table{
		Header: []string{"Source", "Sessions"},
		Rows: [][]string{
			{"google", "10"},
		},
	}
	mapping := schema.DefaultMapping()

	result := schema.Normalize(table, mapping)

	require.Len(t, result.Records, 1)
	for _, name := range mapping.MetricNames() {
		_, ok := result.Records[0].Metrics[name]
		assert.True(t, ok, "metric %q should be present", name)
	}
	assert.Equal(t, float64(0), result.Records[0].Metrics["revenue"])
	assert.Equal(t, float64(0), result.Records[0].Metrics["users"])
}

func TestNormalizeDefaultsAbsentDimensionsToNotSet(t *testing.T) {
	table := &schema.Table{
		Header: []string{"Source", "Medium", "Sessions"},
		Rows: [][]string{
			{"google", "", "10"},
		},
	}

	result := schema.Normalize(table, schema.DefaultMapping())

	require.Len(t, result.Records, 1)
	assert.Equal(t, schema.NotSet, result.Records[0].Dimensions["medium"])
}

func TestNormalizeParsesThousandsSeparators(t *testing.T) {
	table := &schema.Table{
		Header: []string{"Source", "Sessions"},
		Rows: [][]string{
			{"google", "1,200"},
		},
	}

	result := schema.Normalize(table, schema.DefaultMapping())

	require.Len(t, result.Records, 1)
	assert.Equal(t, float64(1200), result.Records[0].Metrics["sessions"])
}

func TestNormalizeParsesPercentMetrics(t *testing.T) {
	table := &schema.Table{
		Header: []string{"Source", "Bounce Rate"},
		Rows: [][]string{
			{"google", "15%"},
		},
	}

	result := schema.Normalize(table, schema.DefaultMapping())

	require.Len(t, result.Records, 1)
	assert.InDelta(t, 0.15, result.Records[0].Metrics["bounceRate"], 1e-9)
}

func TestNormalizeUnparseableMetricBecomesZeroWithWarning(t *testing.T) {
	table := &schema.Table{
		Header: []string{"Source", "Sessions"},
		Rows: [][]string{
			{"google", "N/A"},
		},
	}

	result := schema.Normalize(table, schema.DefaultMapping())

	require.Len(t, result.Records, 1)
	assert.Equal(t, float64(0), result.Records[0].Metrics["sessions"])

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, schema.WarnUnparseableMetric, result.Warnings[0].Code)
	assert.Equal(t, 1, result.Warnings[0].Row)
}

func TestNormalizeQuarantinesRowsMissingAllMandatoryDimensions(t *testing.T) {
	table := &schema.Table{
		Header: []string{"Source", "Sessions"},
		Rows: [][]string{
			{"google", "10"},
			{"", "20"},
		},
	}

	result := schema.Normalize(table, schema.DefaultMapping())

	require.Len(t, result.Records, 1)
	require.Len(t, result.Quarantined, 1)
	assert.Equal(t, 2, result.Quarantined[0].Row)
	assert.Equal(t, schema.ReasonMissingDimensions, result.Quarantined[0].Reason)
}

func TestNormalizeDuplicateColumnLastWinsWithWarning(t *testing.T) {
	table := &schema.Table{
		Header: []string{"Source", "Session Source", "Sessions"},
		Rows: [][]string{
			{"first", "second", "10"},
		},
	}

	result := schema.Normalize(table, schema.DefaultMapping())

	require.Len(t, result.Records, 1)
	assert.Equal(t, "second", result.Records[0].Dimensions["source"])

	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, schema.WarnDuplicateColumn, result.Warnings[0].Code)
}

func TestNormalizeSynthesizesSourceMedium(t *testing.T) {
	table := &schema.Table{
		Header: []string{"Source", "Medium", "Sessions"},
		Rows: [][]string{
			{"google", "organic", "10"},
		},
	}

	result := schema.Normalize(table, schema.DefaultMapping())

	require.Len(t, result.Records, 1)
	assert.True(t, result.HasDimension("sourceMedium"))
	assert.Equal(t, "google / organic", result.Records[0].Dimensions["sourceMedium"])
}

func TestNormalizeCombinedSourceMediumColumn(t *testing.T) {
	table := &schema.Table{
		Header: []string{"Source / Medium", "Sessions"},
		Rows: [][]string{
			{"google / cpc", "10"},
		},
	}

	result := schema.Normalize(table, schema.DefaultMapping())

	require.Len(t, result.Records, 1)
	assert.Equal(t, "google / cpc", result.Records[0].Dimensions["sourceMedium"])
	assert.False(t, result.HasDimension("source"))
}

func TestNormalizeEmptyTableYieldsNoRecordsNoError(t *testing.T) {
	table := &schema.Table{
		Header: []string{"Source", "Sessions"},
	}

	result := schema.Normalize(table, schema.DefaultMapping())

	assert.Empty(t, result.Records)
	assert.Empty(t, result.Quarantined)
	assert.Empty(t, result.Warnings)
}
