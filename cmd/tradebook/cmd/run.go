package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rustyeddy/tradebook/internal/logging"
	"github.com/rustyeddy/tradebook/internal/metrics"
	"github.com/rustyeddy/tradebook/internal/report"
	"github.com/rustyeddy/tradebook/internal/runner"
	"github.com/rustyeddy/tradebook/internal/trace"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute realized PnL from a trade log",
	Long: `Book a trade log against average-cost positions and print the
realized PnL summary.

Trades come from a CSV file (default) or from trades previously imported
into the SQLite journal (--from-journal).

Examples:
  tradebook run -i trades.csv
  tradebook run -i trades.csv --symbol NIFTY --sort --events pnl.csv
  tradebook run --from-journal --strategy pairs-1 --record`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runInput       string
	runFromJournal bool
	runDBPath      string
	runSymbol      string
	runStrategy    string
	runSort        bool
	runSkipInvalid bool
	runEventsCSV   string
	runOrgPath     string
	runRecord      bool
	runJSON        bool
	runNotes       []string
)

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVarP(&runInput, "input", "i", "", "CSV trade log (overrides source.path)")
	f.BoolVar(&runFromJournal, "from-journal", false, "read trades from the SQLite journal")
	f.StringVarP(&runDBPath, "db", "d", "", "SQLite journal DB (overrides journal.db_path)")
	f.StringVar(&runSymbol, "symbol", "", "only book trades in this symbol")
	f.StringVar(&runStrategy, "strategy", "", "only book trades from this strategy id")
	f.BoolVar(&runSort, "sort", false, "stable-sort trades by time first")
	f.BoolVar(&runSkipInvalid, "skip-invalid", false, "skip malformed trades instead of failing")
	f.StringVar(&runEventsCSV, "events", "", "write the PnL series to this CSV file")
	f.StringVar(&runOrgPath, "org", "", "write an Org-mode report to this file")
	f.BoolVar(&runRecord, "record", false, "record the run in the journal")
	f.BoolVar(&runJSON, "json", false, "print the result as JSON")
	f.StringArrayVar(&runNotes, "note", nil, "observation to attach to the run (repeatable)")
}

// applyRunFlags folds explicitly set flags into the loaded config.
func applyRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if runInput != "" {
		cfg.Source.Type = "csv"
		cfg.Source.Path = runInput
	}
	if runFromJournal {
		cfg.Source.Type = "sqlite"
	}
	if runDBPath != "" {
		cfg.Journal.DBPath = runDBPath
	}
	if flags.Changed("symbol") {
		cfg.Source.Symbol = runSymbol
	}
	if flags.Changed("strategy") {
		cfg.Source.Strategy = runStrategy
	}
	if flags.Changed("sort") {
		cfg.Source.Sort = runSort
	}
	if flags.Changed("skip-invalid") {
		cfg.Engine.SkipInvalid = runSkipInvalid
	}
	if runEventsCSV != "" {
		cfg.Journal.EventsCSV = runEventsCSV
	}
	if runOrgPath != "" {
		cfg.Journal.OrgPath = runOrgPath
	}
	if flags.Changed("record") {
		cfg.Journal.Enabled = runRecord
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	applyRunFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := context.Background()

	tracer, err := trace.New(cfg.Tracing, cmd.ErrOrStderr(), version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer tracer.Shutdown(ctx)

	var j *journal.SQLite
	if cfg.Source.Type == "sqlite" || cfg.Journal.Enabled {
		j, err = journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer j.Close()
	}

	var (
		feed   journal.TradeFeed
		source string
	)
	switch cfg.Source.Type {
	case "sqlite":
		source = cfg.Journal.DBPath
		feed, err = j.Feed(ctx, journal.Filter{})
	default:
		source = cfg.Source.Path
		feed, err = journal.OpenCSVFeed(cfg.Source.Path)
	}
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	r := &runner.Runner{
		Feed:    feed,
		Metrics: metrics.NewMetrics(),
		Tracer:  tracer,
		Log:     logging.Component(log, "runner"),
		Options: runner.Options{
			Source:      source,
			Filter:      journal.Filter{Symbol: cfg.Source.Symbol, Strategy: cfg.Source.Strategy},
			Sort:        cfg.Source.Sort,
			SkipInvalid: cfg.Engine.SkipInvalid,
			EventsCSV:   cfg.Journal.EventsCSV,
			OrgPath:     cfg.Journal.OrgPath,
			Notes:       runNotes,
		},
	}
	if cfg.Journal.Enabled {
		r.Journal = j
	}

	out, err := r.Run(ctx)
	if err != nil {
		return err
	}

	if runJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out.Result)
	}
	report.PrintRun(cmd.OutOrStdout(), out.Run)
	return nil
}
