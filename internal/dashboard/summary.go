package dashboard

import (
	"metriclens/internal/schema"
)

// ComputeSummary derives the batch-level executive overview from normalized
// records: totals for volume metrics, means for rate metrics, and the
// standard derived figures.
func ComputeSummary(batch *schema.NormalizeResult) Summary {
	summary := Summary{RowCount: len(batch.Records)}

	var users, sessions, pageviews, conversions, revenue float64
	var bounceSum, durationSum float64
	for _, r := range batch.Records {
		users += r.Metrics["users"]
		sessions += r.Metrics["sessions"]
		pageviews += r.Metrics["pageviews"]
		conversions += r.Metrics["conversions"]
		revenue += r.Metrics["revenue"]
		bounceSum += r.Metrics["bounceRate"]
		durationSum += r.Metrics["avgSessionDuration"]
	}

	summary.KPIs = []KPI{
		{Name: "totalUsers", Value: users, Unit: "count"},
		{Name: "totalSessions", Value: sessions, Unit: "count"},
		{Name: "totalPageviews", Value: pageviews, Unit: "count"},
		{Name: "totalConversions", Value: conversions, Unit: "count"},
		{Name: "totalRevenue", Value: revenue, Unit: "currency"},
	}

	if n := float64(len(batch.Records)); n > 0 {
		summary.KPIs = append(summary.KPIs,
			KPI{Name: "avgBounceRate", Value: bounceSum / n, Unit: "percent"},
			KPI{Name: "avgSessionDuration", Value: durationSum / n, Unit: "duration"},
		)
	}

	// Derived rates come from finalized totals only.
	pagesPerSession, conversionRate := 0.0, 0.0
	if sessions > 0 {
		pagesPerSession = pageviews / sessions
		conversionRate = conversions / sessions
	}
	summary.KPIs = append(summary.KPIs,
		KPI{Name: "pagesPerSession", Value: pagesPerSession, Unit: "decimal"},
		KPI{Name: "conversionRate", Value: conversionRate, Unit: "percent"},
	)

	if batch.HasDimension("date") {
		summary.DateStart, summary.DateEnd = dateRange(batch)
	}

	return summary
}

// dateRange finds the lexicographic min and max of the date dimension,
// which is correct for the YYYYMMDD and YYYY-MM-DD formats GA exports use.
func dateRange(batch *schema.NormalizeResult) (string, string) {
	var start, end string
	for _, r := range batch.Records {
		d := r.Dimensions["date"]
		if d == schema.NotSet || d == "" {
			continue
		}
		if start == "" || d < start {
			start = d
		}
		if d > end {
			end = d
		}
	}
	return start, end
}
