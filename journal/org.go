package journal

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/tradebook/pnl"
)

var runOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "(none)"
		}
		return t.UTC().Format("2006-01-02")
	},
	"short": shortID,
	"or": func(s, def string) string {
		if s == "" {
			return def
		}
		return s
	},
	"positions": func(m map[string]pnl.Position) string {
		return formatPositionsOrg(m)
	},
}

var runOrgTmpl = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// FormatRunOrg renders a run as an Org-mode block.
func FormatRunOrg(r Run) (string, error) {
	buf := new(bytes.Buffer)
	if err := runOrgTmpl.Execute(buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteOrg renders the run to r.OrgPath.
func (r *Run) WriteOrg() error {
	if r.OrgPath == "" {
		return fmt.Errorf("run %s: org path not set", r.RunID)
	}
	s, err := FormatRunOrg(*r)
	if err != nil {
		return err
	}
	return os.WriteFile(r.OrgPath, []byte(s), 0644)
}

const RunOrgTemplate = `* PNL RUN: {{or .Symbol "all symbols"}} ({{short .RunID}})
:PROPERTIES:
:RUN_ID:        {{.RunID}}
:SOURCE:        {{or .Source "(source?)"}}
:SYMBOL:        {{or .Symbol "*"}}
:STRATEGY:      {{or .Strategy "*"}}
:START_DATE:    {{date .Summary.Start}}
:END_DATE:      {{date .Summary.End}}
:TRADES:        {{.Summary.Trades}}
:CLOSED:        {{.Summary.ClosedTrades}}
:WINS:          {{.Summary.WinningTrades}}
:LOSSES:        {{.Summary.LosingTrades}}
:REJECTED:      {{.Rejected}}
:WIN_RATE:      {{printf "%.2f" .Summary.WinRate}}
:TOTAL_PROFIT:  {{.Summary.TotalProfit.StringFixed 2}}
:CREATED:       [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Total Profit:     *{{.Summary.TotalProfit.StringFixed 2}}*
- Gross Profit:     *{{.Summary.GrossProfit.StringFixed 2}}*
- Gross Loss:       *{{.Summary.GrossLoss.StringFixed 2}}*
- Win Rate:         *{{printf "%.2f" .Summary.WinRate}}%*
- Profit Factor:    *{{if ne .Summary.ProfitFactor 0.0}}{{printf "%.2f" .Summary.ProfitFactor}}{{else}}(no losses){{end}}*
- Max Drawdown:     *{{.Summary.MaxDrawdown.StringFixed 2}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Summary.WinningTrades}} |
| Losses  | {{.Summary.LosingTrades}} |
| Closed  | {{.Summary.ClosedTrades}} |
| Total   | {{.Summary.Trades}} |
{{- if .Positions }}

** Open Positions
{{ positions .Positions }}
{{- end }}
{{- if .EventsCSV }}

** PnL Series
[[file:{{.EventsCSV}}]]
{{- end }}
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`

// FormatEventsOrg renders a PnL series as an Org table.
func FormatEventsOrg(events []pnl.Event) string {
	var b strings.Builder
	b.WriteString("| Seq | Time | Symbol | Trade PnL | Cumulative |\n")
	b.WriteString("|-----+------+--------+-----------+------------|\n")
	for _, ev := range events {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			ev.Seq,
			ev.Time.UTC().Format(time.RFC3339),
			ev.Symbol,
			ev.TradePnL.StringFixed(2),
			ev.CumulativePnL.StringFixed(2),
		)
	}
	return b.String()
}

func formatPositionsOrg(m map[string]pnl.Position) string {
	syms := make([]string, 0, len(m))
	for s, p := range m {
		if !p.Flat() {
			syms = append(syms, s)
		}
	}
	if len(syms) == 0 {
		return "- all flat"
	}
	sort.Strings(syms)

	var b strings.Builder
	b.WriteString("| Symbol | Quantity | Avg Price |\n")
	b.WriteString("|--------+----------+-----------|")
	for _, s := range syms {
		p := m[s]
		fmt.Fprintf(&b, "\n| %s | %s | %s |", s, p.Quantity.String(), p.AvgPrice.StringFixed(2))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
