package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"metriclens/internal/dashboard"
)

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 20px; background: #f5f5f5; }
.dashboard { max-width: 1200px; margin: 0 auto; }
.section { background: white; border-radius: 8px; padding: 24px; margin-bottom: 20px; box-shadow: 0 1px 3px rgba(0,0,0,0.1); }
.section h2 { font-size: 1.4rem; color: #1a73e8; margin-top: 0; }
.kpi-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 16px; }
.kpi { background: #f8f9fa; padding: 16px; border-radius: 8px; text-align: center; }
.kpi .value { font-size: 1.6rem; font-weight: bold; color: #1a73e8; }
.kpi .name { font-size: 0.8rem; color: #666; margin-top: 6px; }
.finding { padding: 10px 12px; margin: 6px 0; border-radius: 4px; background: #e8f0fe; border-left: 4px solid #1a73e8; }
.finding.anomaly { background: #fce8e6; border-left-color: #ea4335; }
.finding.concentration { background: #fef7e0; border-left-color: #fbbc04; }
table { width: 100%; border-collapse: collapse; margin-top: 12px; }
th, td { padding: 10px 12px; text-align: left; border-bottom: 1px solid #eee; }
th { background: #f8f9fa; font-weight: 600; }
.meta { color: #666; font-size: 0.85rem; }
</style>
</head>
<body>
<div class="dashboard">
<h1>{{.Title}}</h1>
<p class="meta">Report {{.ReportID}} &middot; generated {{.Generated}}</p>
<div class="section">
<h2>Summary</h2>
{{if .DateRange}}<p class="meta">{{.DateRange}}</p>{{end}}
<div class="kpi-grid">
{{range .KPIs}}<div class="kpi"><div class="value">{{.Value}}</div><div class="name">{{.Name}}</div></div>
{{end}}</div>
</div>
{{range .Sections}}<div class="section">
<h2>{{.Title}}</h2>
{{range .Findings}}<div class="finding {{.Kind}}"><strong>{{.Kind}}</strong> {{.Text}}</div>
{{end}}<table>
<tr><th>{{.KeyHeader}}</th>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr><td>{{.Key}}</td>{{range .Values}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
</div>
{{end}}{{if .Warnings}}<div class="section">
<h2>Warnings</h2>
<ul>{{range .Warnings}}<li>{{.}}</li>{{end}}</ul>
</div>
{{end}}</div>
</body>
</html>
`

type htmlKPI struct {
	Name  string
	Value string
}

type htmlFinding struct {
	Kind string
	Text string
}

type htmlRow struct {
	Key    string
	Values []string
}

type htmlSection struct {
	Title     string
	KeyHeader string
	Columns   []string
	Rows      []htmlRow
	Findings  []htmlFinding
}

type htmlData struct {
	Title     string
	ReportID  string
	Generated string
	DateRange string
	KPIs      []htmlKPI
	Sections  []htmlSection
	Warnings  []string
}

func renderHTML(model *dashboard.Model) ([]byte, error) {
	tmpl, err := template.New("dashboard").Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
	}

	p := newPrinter()
	data := htmlData{
		Title:     model.Title,
		ReportID:  model.ReportID,
		Generated: model.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
	}
	if model.Summary.DateStart != "" {
		data.DateRange = model.Summary.DateStart + " to " + model.Summary.DateEnd
	}
	for _, kpi := range model.Summary.KPIs {
		data.KPIs = append(data.KPIs, htmlKPI{Name: kpi.Name, Value: formatValue(p, kpi.Value, kpi.Unit)})
	}

	for _, section := range model.Sections {
		hs := htmlSection{
			Title:     section.Title,
			KeyHeader: strings.Join(section.GroupBy, " / "),
			Columns:   orderedMetricNames(section),
		}
		for _, r := range section.Results {
			row := htmlRow{Key: r.FlatKey()}
			for _, name := range hs.Columns {
				value, ok := r.Metrics[name]
				if !ok {
					value = r.Derived[name]
				}
				row.Values = append(row.Values, formatValue(p, value, unitOf(name)))
			}
			hs.Rows = append(hs.Rows, row)
		}
		for _, ins := range section.Insights {
			text := fmt.Sprintf("%s: %s = %s", strings.Join(ins.Key, " / "), ins.Metric,
				formatValue(p, ins.Value, unitOf(ins.Metric)))
			if ins.Share > 0 {
				text += fmt.Sprintf(" (%s of total)", formatValue(p, ins.Share, "percent"))
			}
			if ins.ZScore != 0 {
				text += fmt.Sprintf(" (z=%.2f)", ins.ZScore)
			}
			hs.Findings = append(hs.Findings, htmlFinding{Kind: string(ins.Kind), Text: text})
		}
		data.Sections = append(data.Sections, hs)
	}

	for _, w := range model.Warnings {
		if w.Row > 0 {
			data.Warnings = append(data.Warnings, fmt.Sprintf("row %d: %s", w.Row, w.Message))
		} else {
			data.Warnings = append(data.Warnings, w.Message)
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render dashboard template: %w", err)
	}
	return buf.Bytes(), nil
}
