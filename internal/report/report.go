package report

import (
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/rotisserie/eris"

	"PolicyScan/internal/calculator"
	"PolicyScan/internal/model"
)

// policyRow is one line of the policy table.
type policyRow struct {
	ID       string
	Name     string
	Category string
	Premium  string
	Coverage string
	Expiry   string
	Status   string
	DaysLeft string
}

type premiumRow struct {
	Category string
	Amount   string
}

type view struct {
	Date         string
	Rating       model.Rating
	Score        int
	Gaps         []string
	Suggestions  []string
	Strengths    []string
	Rules        []model.RuleResult
	Policies     []policyRow
	ByCategory   []premiumRow
	TotalPremium string
}

const reportTemplate = `# Portfolio Analysis on {{ .Date }}

Overall rating: **{{ .Rating }}** (score {{ .Score }}/100)

{{- if .Gaps }}

## Coverage Gaps
{{ range .Gaps }}
- {{ . }}
{{- end }}
{{- end }}

{{- if .Suggestions }}

## Recommendations
{{ range .Suggestions }}
- {{ . }}
{{- end }}
{{- end }}

{{- if .Strengths }}

## Strengths
{{ range .Strengths }}
- {{ . }}
{{- end }}
{{- end }}

{{- if .Rules }}

## Rule Breakdown

| Rule | Score |
|:---|---:|
{{- range .Rules }}
| {{ .Rule }} | {{ signed .ScoreDelta }} |
{{- end }}
| **Total** | **{{ .Score }}** |
{{- end }}

{{- if .Policies }}

## Policies

| ID | Name | Type | Premium | Coverage | Expiry | Status | Days Left |
|:---|:---|:---|---:|---:|:---|:---|---:|
{{- range .Policies }}
| {{ .ID }} | {{ .Name }} | {{ .Category }} | {{ .Premium }} | {{ .Coverage }} | {{ .Expiry }} | {{ .Status }} | {{ .DaysLeft }} |
{{- end }}
| **Total** | | | **{{ .TotalPremium }}** | | | | |
{{- end }}

{{- if .ByCategory }}

## Premium by Type

| Type | Annual Premium |
|:---|---:|
{{- range .ByCategory }}
| {{ .Category }} | {{ .Amount }} |
{{- end }}
{{- end }}
`

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"signed": func(n int) string {
		if n > 0 {
			return "+" + strconv.Itoa(n)
		}
		return strconv.Itoa(n)
	},
}).Parse(reportTemplate))

// Markdown renders an analysis and the policies behind it. windowDays decides which
// policies are shown as expiring.
func Markdown(a *model.PortfolioAnalysis, policies []model.PolicyRecord, now time.Time, windowDays int) (string, error) {
	v := view{
		Date:         now.Format(model.DateLayout),
		Rating:       a.OverallRating,
		Score:        a.Score,
		Gaps:         a.CoverageGaps,
		Suggestions:  a.Suggestions,
		Strengths:    a.Strengths,
		Rules:        a.Rules,
		TotalPremium: "$" + calculator.FormatAmount(calculator.TotalPremium(policies)),
	}
	for _, p := range policies {
		row := policyRow{
			ID:       cell(p.ID),
			Name:     cell(p.Name),
			Category: p.Category().Label(),
			Premium:  "$" + calculator.FormatAmount(p.Premium),
			Coverage: "-",
			Expiry:   "-",
			Status:   string(calculator.ExpiryStatus(p.ExpiryDate, now, windowDays)),
			DaysLeft: "-",
		}
		if p.HasCoverage() {
			row.Coverage = "$" + calculator.FormatAmount(p.Coverage.Decimal)
		}
		if p.ExpiryDate != nil {
			row.Expiry = p.ExpiryDate.Format(model.DateLayout)
			row.DaysLeft = strconv.Itoa(calculator.DaysRemaining(*p.ExpiryDate, now))
		}
		v.Policies = append(v.Policies, row)
	}

	byCategory := calculator.PremiumByCategory(policies)
	cats := make([]model.Category, 0, len(byCategory))
	for c := range byCategory {
		cats = append(cats, c)
	}
	// Largest spend first; ties by name for stable output.
	sort.Slice(cats, func(i, j int) bool {
		if cmp := byCategory[cats[i]].Cmp(byCategory[cats[j]]); cmp != 0 {
			return cmp > 0
		}
		return cats[i] < cats[j]
	})
	for _, c := range cats {
		v.ByCategory = append(v.ByCategory, premiumRow{
			Category: c.Label(),
			Amount:   "$" + calculator.FormatAmount(byCategory[c]),
		})
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, v); err != nil {
		return "", eris.Wrap(err, "report: execute template")
	}
	return b.String(), nil
}

// cell escapes text for use inside a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// Render formats markdown for the terminal, wrapping at width columns.
func Render(md string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", eris.Wrap(err, "report: create renderer")
	}
	out, err := r.Render(md)
	if err != nil {
		return "", eris.Wrap(err, "report: render markdown")
	}
	return out, nil
}
