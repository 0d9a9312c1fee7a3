package aggregate_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metriclens/internal/aggregate"
	"metriclens/internal/schema"
)

func normalizeRows(t *testing.T, header []string, rows [][]string) *schema.NormalizeResult {
	t.Helper()
	return schema.Normalize(&schema.Table{Header: header, Rows: rows}, schema.DefaultMapping())
}

func TestAggregateGroupsAndOrdersByPrimaryMetric(t *testing.T) {
	batch := normalizeRows(t,
		[]string{"Source", "Medium", "Sessions"},
		[][]string{
			{"google", "cpc", "1,200"},
			{"google", "organic", "300"},
			{"bing", "cpc", "50"},
		})

	results, primary, err := aggregate.Aggregate(batch, []string{"source", "medium"}, aggregate.Options{
		PrimaryMetric: "sessions",
	})
	require.NoError(t, err)

	assert.Equal(t, "sessions", primary)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"google", "cpc"}, results[0].Key)
	assert.Equal(t, float64(1200), results[0].Metrics["sessions"])
	assert.Equal(t, []string{"google", "organic"}, results[1].Key)
	assert.Equal(t, []string{"bing", "cpc"}, results[2].Key)

	// Shares of the 1550 total
	assert.InDelta(t, 1200.0/1550.0, results[0].Shares["sessions"], 1e-9)
}

func TestAggregateMergesDuplicateKeys(t *testing.T) {
	batch := normalizeRows(t,
		[]string{"Source", "Sessions", "Users"},
		[][]string{
			{"google", "100", "80"},
			{"google", "50", "20"},
			{"bing", "30", "25"},
		})

	results, _, err := aggregate.Aggregate(batch, []string{"source"}, aggregate.Options{PrimaryMetric: "sessions"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, float64(150), results[0].Metrics["sessions"])
	assert.Equal(t, float64(100), results[0].Metrics["users"])
	assert.Equal(t, 2, results[0].RowCount)
}

func TestAggregateTieBreaksLexicographically(t *testing.T) {
	batch := normalizeRows(t,
		[]string{"Source", "Sessions"},
		[][]string{
			{"zeta", "100"},
			{"alpha", "100"},
			{"mid", "100"},
		})

	results, _, err := aggregate.Aggregate(batch, []string{"source"}, aggregate.Options{PrimaryMetric: "sessions"})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "alpha", results[0].Key[0])
	assert.Equal(t, "mid", results[1].Key[0])
	assert.Equal(t, "zeta", results[2].Key[0])
}

func TestAggregateUnknownDimensionIsSchemaMismatch(t *testing.T) {
	batch := normalizeRows(t,
		[]string{"Source", "Sessions"},
		[][]string{{"google", "10"}})

	_, _, err := aggregate.Aggregate(batch, []string{"country"}, aggregate.Options{PrimaryMetric: "sessions"})
	require.Error(t, err)

	var mismatch *aggregate.SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "country", mismatch.Dimension)
}

func TestAggregateDerivedMetricsFromFinalizedSums(t *testing.T) {
	batch := normalizeRows(t,
		[]string{"Source", "Sessions", "Conversions"},
		[][]string{
			{"google", "100", "3"},
			{"google", "100", "2"},
		})

	results, _, err := aggregate.Aggregate(batch, []string{"source"}, aggregate.Options{
		PrimaryMetric: "sessions",
		Derived:       aggregate.DefaultDerivedMetrics(),
	})
	require.NoError(t, err)

	require.Len(t, results, 1)
	// 5 conversions over 200 sessions, computed after summation
	assert.InDelta(t, 0.025, results[0].Derived["conversionRate"], 1e-9)
}

func TestAggregateZeroDenominatorYieldsFlaggedZero(t *testing.T) {
	batch := normalizeRows(t,
		[]string{"Source", "Conversions"},
		[][]string{{"google", "5"}})

	results, _, err := aggregate.Aggregate(batch, []string{"source"}, aggregate.Options{
		PrimaryMetric: "conversions",
		Derived:       aggregate.DefaultDerivedMetrics(),
	})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, float64(0), results[0].Derived["conversionRate"])
	assert.Contains(t, results[0].ZeroDenoms, "conversionRate")
}

func TestAggregateSumConservation(t *testing.T) {
	batch := normalizeRows(t,
		[]string{"Source", "Medium", "Sessions", "Revenue"},
		[][]string{
			{"google", "cpc", "123", "10.50"},
			{"google", "organic", "456", "0.25"},
			{"bing", "cpc", "789", "99.99"},
			{"bing", "organic", "12", "1.01"},
		})

	var wantSessions, wantRevenue float64
	for _, r := range batch.Records {
		wantSessions += r.Metrics["sessions"]
		wantRevenue += r.Metrics["revenue"]
	}

	results, _, err := aggregate.Aggregate(batch, []string{"source"}, aggregate.Options{PrimaryMetric: "sessions"})
	require.NoError(t, err)

	var gotSessions, gotRevenue float64
	for _, r := range results {
		gotSessions += r.Metrics["sessions"]
		gotRevenue += r.Metrics["revenue"]
	}
	assert.InDelta(t, wantSessions, gotSessions, 1e-9)
	assert.InDelta(t, wantRevenue, gotRevenue, 1e-9)
}

func TestAggregateFallsBackToHighestVolumeMetric(t *testing.T) {
	batch := normalizeRows(t,
		[]string{"Source", "Users", "Pageviews"},
		[][]string{
			{"google", "10", "500"},
			{"bing", "90", "100"},
		})

	// "sessions" exists in the canonical schema but is zero everywhere;
	// it is still a valid primary. Request a metric that does not exist.
	results, primary, err := aggregate.Aggregate(batch, []string{"source"}, aggregate.Options{
		PrimaryMetric: "nonexistent",
	})
	require.NoError(t, err)

	assert.Equal(t, "pageviews", primary)
	assert.Equal(t, "google", results[0].Key[0])
}

func TestAggregateDeterministicAcrossRuns(t *testing.T) {
	batch := normalizeRows(t,
		[]string{"Source", "Medium", "Sessions"},
		[][]string{
			{"a", "x", "5"}, {"b", "y", "5"}, {"c", "z", "5"},
			{"d", "x", "5"}, {"e", "y", "5"}, {"f", "z", "5"},
		})

	first, _, err := aggregate.Aggregate(batch, []string{"source", "medium"}, aggregate.Options{PrimaryMetric: "sessions"})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, _, err := aggregate.Aggregate(batch, []string{"source", "medium"}, aggregate.Options{PrimaryMetric: "sessions"})
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestAggregateEmptyBatch(t *testing.T) {
	batch := normalizeRows(t, []string{"Source", "Sessions"}, nil)

	results, _, err := aggregate.Aggregate(batch, []string{"source"}, aggregate.Options{PrimaryMetric: "sessions"})
	require.NoError(t, err)
	assert.Empty(t, results)
}
