package insight_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metriclens/internal/aggregate"
	"metriclens/internal/insight"
	"metriclens/internal/schema"
)

func aggregateRows(t *testing.T, rows [][]string) []aggregate.Result {
	t.Helper()
	batch := schema.Normalize(&schema.Table{
		Header: []string{"Source", "Medium", "Sessions"},
		Rows:   rows,
	}, schema.DefaultMapping())

	results, _, err := aggregate.Aggregate(batch, []string{"source", "medium"}, aggregate.Options{
		PrimaryMetric: "sessions",
	})
	require.NoError(t, err)
	return results
}

func findByKind(insights []insight.Insight, kind insight.Kind) []insight.Insight {
	var found []insight.Insight
	for _, ins := range insights {
		if ins.Kind == kind {
			found = append(found, ins)
		}
	}
	return found
}

func TestDetectConcentration(t *testing.T) {
	results := aggregateRows(t, [][]string{
		{"google", "cpc", "1,200"},
		{"google", "organic", "300"},
		{"bing", "cpc", "50"},
	})

	insights := insight.Detect(results, "sessions", insight.Config{
		TopN:                     5,
		MinShareForConcentration: 0.4,
		AnomalyZScore:            2.0,
	})

	concentration := findByKind(insights, insight.KindConcentration)
	require.Len(t, concentration, 1)
	assert.Equal(t, []string{"google", "cpc"}, concentration[0].Key)
	assert.InDelta(t, 1200.0/1550.0, concentration[0].Share, 1e-3)
}

func TestDetectShareWithinBounds(t *testing.T) {
	results := aggregateRows(t, [][]string{
		{"google", "cpc", "100"},
		{"bing", "organic", "100"},
	})

	insights := insight.Detect(results, "sessions", insight.DefaultConfig())
	for _, ins := range findByKind(insights, insight.KindConcentration) {
		assert.GreaterOrEqual(t, ins.Share, 0.0)
		assert.LessOrEqual(t, ins.Share, 1.0)
	}
}

func TestDetectTopAndBottomSegments(t *testing.T) {
	results := aggregateRows(t, [][]string{
		{"a", "x", "500"},
		{"b", "x", "400"},
		{"c", "x", "300"},
		{"d", "x", "200"},
		{"e", "x", "100"},
		{"f", "x", "10"},
	})

	insights := insight.Detect(results, "sessions", insight.Config{
		TopN:                     2,
		MinShareForConcentration: 0.9,
		AnomalyZScore:            10,
	})

	top := findByKind(insights, insight.KindTopSegment)
	require.Len(t, top, 2)
	assert.Equal(t, []string{"a", "x"}, top[0].Key)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, []string{"b", "x"}, top[1].Key)

	bottom := findByKind(insights, insight.KindBottomSegment)
	require.Len(t, bottom, 2)
	assert.Equal(t, []string{"f", "x"}, bottom[0].Key)
	assert.Equal(t, 1, bottom[0].Rank)
}

func TestDetectTopSegmentsDoNotOverlapBottom(t *testing.T) {
	results := aggregateRows(t, [][]string{
		{"a", "x", "300"},
		{"b", "x", "200"},
		{"c", "x", "100"},
	})

	insights := insight.Detect(results, "sessions", insight.Config{
		TopN:                     5,
		MinShareForConcentration: 0.99,
		AnomalyZScore:            10,
	})

	assert.Len(t, findByKind(insights, insight.KindTopSegment), 3)
	assert.Empty(t, findByKind(insights, insight.KindBottomSegment))
}

func TestDetectAnomaly(t *testing.T) {
	rows := [][]string{
		{"outlier", "x", "1000"},
	}
	// Nine unremarkable groups around 100 sessions
	for _, s := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"} {
		rows = append(rows, []string{s, "x", "100"})
	}
	results := aggregateRows(t, rows)

	insights := insight.Detect(results, "sessions", insight.Config{
		TopN:                     0,
		MinShareForConcentration: 1.1,
		AnomalyZScore:            2.0,
	})

	anomalies := findByKind(insights, insight.KindAnomaly)
	require.Len(t, anomalies, 1)
	assert.Equal(t, []string{"outlier", "x"}, anomalies[0].Key)
	assert.Greater(t, anomalies[0].ZScore, 2.0)
}

func TestDetectAnomalySkippedBelowThreeGroups(t *testing.T) {
	results := aggregateRows(t, [][]string{
		{"a", "x", "1000"},
		{"b", "x", "1"},
	})

	insights := insight.Detect(results, "sessions", insight.Config{
		TopN:                     0,
		MinShareForConcentration: 1.1,
		AnomalyZScore:            0.1,
	})

	assert.Empty(t, findByKind(insights, insight.KindAnomaly))
}

func TestDetectUniformGroupsProduceNoAnomaly(t *testing.T) {
	results := aggregateRows(t, [][]string{
		{"a", "x", "100"},
		{"b", "x", "100"},
		{"c", "x", "100"},
	})

	insights := insight.Detect(results, "sessions", insight.Config{
		TopN:                     0,
		MinShareForConcentration: 1.1,
		AnomalyZScore:            0.5,
	})

	assert.Empty(t, findByKind(insights, insight.KindAnomaly))
}

func TestDetectEmptyResults(t *testing.T) {
	assert.Empty(t, insight.Detect(nil, "sessions", insight.DefaultConfig()))
}

func TestDetectDeterministicOrdering(t *testing.T) {
	results := aggregateRows(t, [][]string{
		{"a", "x", "100"},
		{"b", "x", "100"},
		{"c", "x", "100"},
		{"d", "x", "100"},
	})

	first := insight.Detect(results, "sessions", insight.DefaultConfig())
	for i := 0; i < 10; i++ {
		require.Equal(t, first, insight.Detect(results, "sessions", insight.DefaultConfig()))
	}
}
