package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/market"
	"github.com/rustyeddy/tradebook/pnl"
)

const rule = "--------------------------------------------------"

func PrintRun(w io.Writer, r journal.Run) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " PnL Run")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	fmt.Fprintf(w, "Source:        %s\n", r.Source)
	if r.Symbol != "" {
		fmt.Fprintf(w, "Symbol:        %s\n", r.Symbol)
	}
	if r.Strategy != "" {
		fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	}

	s := r.Summary
	if !s.Start.IsZero() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Period")
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Start:         %s\n", s.Start.Format(time.RFC3339))
		fmt.Fprintf(w, "End:           %s\n", s.End.Format(time.RFC3339))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Trades:        %d\n", s.Trades)
	fmt.Fprintf(w, "Closed:        %d\n", s.ClosedTrades)
	fmt.Fprintf(w, "Wins:          %d\n", s.WinningTrades)
	fmt.Fprintf(w, "Losses:        %d\n", s.LosingTrades)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", s.WinRate)
	if r.Rejected > 0 {
		fmt.Fprintf(w, "Rejected:      %d\n", r.Rejected)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Realized PnL")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total Profit:  %s\n", s.TotalProfit.StringFixed(2))
	fmt.Fprintf(w, "Gross Profit:  %s\n", s.GrossProfit.StringFixed(2))
	fmt.Fprintf(w, "Gross Loss:    %s\n", s.GrossLoss.StringFixed(2))
	if s.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", s.ProfitFactor)
	}
	if s.MaxDrawdown.IsPositive() {
		fmt.Fprintf(w, "Max Drawdown:  %s\n", s.MaxDrawdown.StringFixed(2))
	}

	PrintPositions(w, r.Positions)

	if r.EventsCSV != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "PnL Series:    %s\n", r.EventsCSV)
	}
	if r.OrgPath != "" {
		fmt.Fprintf(w, "Org Report:    %s\n", r.OrgPath)
	}

	if len(r.Notes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Observations")
		fmt.Fprintln(w, rule)
		for _, note := range r.Notes {
			fmt.Fprintf(w, "- %s\n", note)
		}
	}

	fmt.Fprintln(w)
}

// PrintPositions lists the open positions; flat ones are omitted.
func PrintPositions(w io.Writer, positions map[string]pnl.Position) {
	syms := make([]string, 0, len(positions))
	for s, p := range positions {
		if !p.Flat() {
			syms = append(syms, s)
		}
	}
	if len(syms) == 0 {
		return
	}
	sort.Strings(syms)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Open Positions")
	fmt.Fprintln(w, rule)
	for _, s := range syms {
		p := positions[s]
		side := "LONG"
		if p.Side() < 0 {
			side = "SHORT"
		}
		fmt.Fprintf(w, "%-12s %-5s %12s @ %s\n", s, side, p.Quantity.Abs().String(), p.AvgPrice.StringFixed(2))
	}
}

// PrintRuns writes one line per run, newest first as given.
func PrintRuns(w io.Writer, runs []journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	fmt.Fprintf(w, "%-26s  %-20s  %6s  %6s  %8s  %14s\n", "RUN ID", "CREATED", "TRADES", "CLOSED", "WIN %", "TOTAL PROFIT")
	for _, r := range runs {
		fmt.Fprintf(w, "%-26s  %-20s  %6d  %6d  %8.2f  %14s\n",
			r.RunID,
			r.Created.UTC().Format(time.RFC3339),
			r.Summary.Trades,
			r.Summary.ClosedTrades,
			r.Summary.WinRate,
			r.Summary.TotalProfit.StringFixed(2),
		)
	}
}

// PrintEvents writes the PnL series as an aligned table.
func PrintEvents(w io.Writer, events []pnl.Event) {
	fmt.Fprintf(w, "%5s  %-20s  %-12s  %14s  %14s\n", "SEQ", "TIME", "SYMBOL", "TRADE PNL", "CUMULATIVE")
	for _, ev := range events {
		fmt.Fprintf(w, "%5d  %-20s  %-12s  %14s  %14s\n",
			ev.Seq,
			ev.Time.UTC().Format(time.RFC3339),
			ev.Symbol,
			ev.TradePnL.StringFixed(2),
			ev.CumulativePnL.StringFixed(2),
		)
	}
}

// PrintTrades writes a trade list, one trade per line.
func PrintTrades(w io.Writer, trades []market.Trade) {
	for _, t := range trades {
		fmt.Fprintln(w, t.String())
	}
}
