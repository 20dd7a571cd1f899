package journal

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/tradereplay/sim"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block with the facts in
// a PROPERTIES drawer and empty narrative sections.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s (%s)\n", t.Symbol, shortID(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":SESSION_ID: %s\n", t.SessionID)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":STRATEGY: %s\n", t.Strategy)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.2f\n", t.EntryPrice)
	fmt.Fprintf(&b, ":EXIT_PRICE: %.2f\n", t.ExitPrice)
	fmt.Fprintf(&b, ":ENTRY: %s\n", orgStamp(t.EntryTime, t.EntryKey))
	fmt.Fprintf(&b, ":EXIT: %s\n", orgStamp(t.ExitTime, t.ExitKey))
	fmt.Fprintf(&b, ":REALIZED_PL: %s\n", t.RealizedPL.StringFixed(2))
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func orgStamp(t time.Time, key string) string {
	if t.IsZero() {
		return key
	}
	return t.UTC().Format(time.RFC3339)
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}

// SessionReport summarizes a finished replay for an Org journal.
type SessionReport struct {
	SessionID  string
	Created    time.Time
	Symbol     string
	Strategy   string
	Resolution string
	DataSource string
	Start      string
	End        string
	Bars       int

	PnL   sim.PnL
	Stats sim.Stats

	Notes []string
}

var reportFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var reportTemplate = template.Must(template.New("session").Funcs(reportFuncs).Parse(SessionOrgTemplate))

// WriteOrg renders the report with SessionOrgTemplate.
func (r *SessionReport) WriteOrg(w io.Writer) error {
	return reportTemplate.Execute(w, r)
}

const SessionOrgTemplate = `* REPLAY: {{.Strategy}} {{.Symbol}} {{if .Resolution}}{{.Resolution}}{{else}}(resolution?){{end}}
:PROPERTIES:
:SESSION_ID:  {{.SessionID}}
:STRATEGY:    {{.Strategy}}
:SYMBOL:      {{.Symbol}}
:RESOLUTION:  {{.Resolution}}
:DATA_SOURCE: {{if .DataSource}}{{.DataSource}}{{else}}(source?){{end}}
:START:       {{.Start}}
:END:         {{.End}}
:BARS:        {{.Bars}}
:REALIZED:    {{.PnL.Realized.StringFixed 2}}
:OPEN:        {{.PnL.Open.StringFixed 2}}
:TOTAL:       {{.PnL.Total.StringFixed 2}}
:TRADES:      {{.Stats.Trades}}
:WINS:        {{.Stats.Wins}}
:LOSSES:      {{.Stats.Losses}}
:WIN_RATE:    {{printf "%.2f" (mul100 .Stats.WinRate)}}
:PROFIT_FAC:  {{if ne .Stats.ProfitFactor 0.0}}{{printf "%.2f" .Stats.ProfitFactor}}{{else}}(profit-factor?){{end}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Realized P/L:     *{{.PnL.Realized.StringFixed 2}}*
- Open P/L:         *{{.PnL.Open.StringFixed 2}}*
- Total P/L:        *{{.PnL.Total.StringFixed 2}}*
- Win Rate:         *{{printf "%.2f" (mul100 .Stats.WinRate)}}%*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Stats.Wins}} |
| Losses  | {{.Stats.Losses}} |
| Open    | {{.PnL.OpenPositions}} |
| Total   | {{.Stats.Trades}} |
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
