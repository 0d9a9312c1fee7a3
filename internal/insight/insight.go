// Package insight scans aggregation results for notable segments:
// top and bottom performers, traffic concentration, and statistical
// outliers. The detector never fails on well-formed results; checks that
// lack sample size are skipped rather than erroring.
package insight

import (
	"math"
	"sort"

	"metriclens/internal/aggregate"
)

// Kind tags one finding. The set is closed; new analyses add new kinds.
type Kind string

// Insight kinds
const (
	KindTopSegment    Kind = "top-segment"
	KindBottomSegment Kind = "bottom-segment"
	KindConcentration Kind = "concentration"
	KindAnomaly       Kind = "anomaly"
)

// Minimum group count for the anomaly check; below this the standard
// deviation is meaningless.
const minAnomalySampleSize = 3

// Config holds the detection thresholds.
type Config struct {
	TopN                     int
	MinShareForConcentration float64
	AnomalyZScore            float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		TopN:                     5,
		MinShareForConcentration: 0.4,
		AnomalyZScore:            2.0,
	}
}

// Insight is one structured finding. Fields, not prose: the narrative layer
// downstream turns these into text.
type Insight struct {
	Kind   Kind     `json:"kind"`
	Key    []string `json:"key"`
	Metric string   `json:"metric"`
	Value  float64  `json:"value"`
	// Score ranks insights within a section; higher is more notable.
	Score float64 `json:"score"`
	Rank  int     `json:"rank,omitempty"`
	// Share is set for concentration findings, in [0, 1].
	Share float64 `json:"share,omitempty"`
	// ZScore is set for anomaly findings.
	ZScore float64 `json:"zScore,omitempty"`
}

// Detect runs all checks over one grouping's results, ranked by the primary
// metric. Output ordering is deterministic: score descending, ties broken
// lexicographically by key, same rule the aggregation engine uses.
func Detect(results []aggregate.Result, primaryMetric string, cfg Config) []Insight {
	if len(results) == 0 {
		return nil
	}

	var insights []Insight
	insights = append(insights, detectTopBottom(results, primaryMetric, cfg.TopN)...)
	insights = append(insights, detectConcentration(results, primaryMetric, cfg.MinShareForConcentration)...)
	insights = append(insights, detectAnomalies(results, primaryMetric, cfg.AnomalyZScore)...)

	sort.SliceStable(insights, func(i, j int) bool {
		if insights[i].Score != insights[j].Score {
			return insights[i].Score > insights[j].Score
		}
		return flatKey(insights[i].Key) < flatKey(insights[j].Key)
	})

	return insights
}

// detectTopBottom emits one insight per top-N and bottom-N group by the
// primary metric. Results arrive already ordered descending.
func detectTopBottom(results []aggregate.Result, metric string, topN int) []Insight {
	if topN <= 0 {
		return nil
	}

	var insights []Insight

	n := topN
	if n > len(results) {
		n = len(results)
	}
	for i := 0; i < n; i++ {
		r := results[i]
		insights = append(insights, Insight{
			Kind:   KindTopSegment,
			Key:    r.Key,
			Metric: metric,
			Value:  r.Metrics[metric],
			Score:  r.Shares[metric],
			Rank:   i + 1,
		})
	}

	// Bottom segments only make sense when they do not overlap the top set.
	if len(results) > topN {
		m := topN
		if m > len(results)-n {
			m = len(results) - n
		}
		for i := 0; i < m; i++ {
			r := results[len(results)-1-i]
			insights = append(insights, Insight{
				Kind:   KindBottomSegment,
				Key:    r.Key,
				Metric: metric,
				Value:  r.Metrics[metric],
				Score:  1 - r.Shares[metric],
				Rank:   i + 1,
			})
		}
	}

	return insights
}

// detectConcentration flags any single group holding at least the configured
// share of the batch total.
func detectConcentration(results []aggregate.Result, metric string, minShare float64) []Insight {
	var insights []Insight
	for _, r := range results {
		share := r.Shares[metric]
		if share >= minShare && share > 0 {
			insights = append(insights, Insight{
				Kind:   KindConcentration,
				Key:    r.Key,
				Metric: metric,
				Value:  r.Metrics[metric],
				Score:  share,
				Share:  share,
			})
		}
	}
	return insights
}

// detectAnomalies flags groups whose primary metric deviates from the mean
// by at least the configured z-score. Skipped below three groups.
func detectAnomalies(results []aggregate.Result, metric string, zThreshold float64) []Insight {
	if len(results) < minAnomalySampleSize {
		return nil
	}

	mean, stddev := meanStddev(results, metric)
	if stddev == 0 {
		return nil
	}

	var insights []Insight
	for _, r := range results {
		z := (r.Metrics[metric] - mean) / stddev
		if math.Abs(z) >= zThreshold {
			insights = append(insights, Insight{
				Kind:   KindAnomaly,
				Key:    r.Key,
				Metric: metric,
				Value:  r.Metrics[metric],
				Score:  math.Abs(z),
				ZScore: z,
			})
		}
	}
	return insights
}

func meanStddev(results []aggregate.Result, metric string) (float64, float64) {
	n := float64(len(results))

	var sum float64
	for _, r := range results {
		sum += r.Metrics[metric]
	}
	mean := sum / n

	var variance float64
	for _, r := range results {
		d := r.Metrics[metric] - mean
		variance += d * d
	}
	variance /= n

	return mean, math.Sqrt(variance)
}

func flatKey(key []string) string {
	flat := ""
	for i, part := range key {
		if i > 0 {
			flat += aggregate.KeySeparator
		}
		flat += part
	}
	return flat
}
