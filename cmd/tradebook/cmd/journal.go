package cmd

import (
	"context"
	"fmt"

	"github.com/rustyeddy/tradebook/internal/report"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the SQLite journal",
	Long: `Query and display runs and trades recorded in the SQLite journal.

Subcommands:
  runs    - List recorded runs, newest first
  run     - Show one run and its PnL series
  trades  - List imported trades

Examples:
  tradebook journal runs
  tradebook journal run 01HN3Z9C6X8Q4R2T7V5W0YBDEF --events
  tradebook journal trades --symbol NIFTY`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List imported trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalTrades,
}

var (
	journalDBPath   string
	journalEvents   bool
	journalOrg      bool
	journalSymbol   string
	journalStrategy string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalRunCmd)
	journalCmd.AddCommand(journalTradesCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "SQLite journal DB (overrides journal.db_path)")
	journalRunCmd.Flags().BoolVar(&journalEvents, "events", false, "also print the PnL series")
	journalRunCmd.Flags().BoolVar(&journalOrg, "org", false, "print as Org-mode")
	journalTradesCmd.Flags().StringVar(&journalSymbol, "symbol", "", "filter by symbol")
	journalTradesCmd.Flags().StringVar(&journalStrategy, "strategy", "", "filter by strategy id")
}

func openJournal() (*journal.SQLite, error) {
	path := cfg.Journal.DBPath
	if journalDBPath != "" {
		path = journalDBPath
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(context.Background())
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	report.PrintRuns(cmd.OutOrStdout(), runs)
	return nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := context.Background()
	run, err := j.GetRun(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	w := cmd.OutOrStdout()
	if journalOrg {
		s, err := journal.FormatRunOrg(run)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, s)
	} else {
		report.PrintRun(w, run)
	}

	if !journalEvents {
		return nil
	}
	events, err := j.ListEventsByRunID(ctx, run.RunID)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	if journalOrg {
		fmt.Fprintln(w, journal.FormatEventsOrg(events))
	} else {
		report.PrintEvents(w, events)
	}
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := j.ListTrades(context.Background(), journal.Filter{Symbol: journalSymbol, Strategy: journalStrategy})
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	report.PrintTrades(cmd.OutOrStdout(), trades)
	return nil
}
