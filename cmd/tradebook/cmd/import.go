package cmd

import (
	"context"
	"fmt"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <trades.csv>...",
	Short: "Import CSV trade logs into the SQLite journal",
	Long: `Load one or more CSV trade logs into the journal's trades table.
Each file is imported in a single transaction; a malformed row aborts that
file and nothing from it is stored.

Example:
  tradebook import -d tradebook.sqlite trades-2024-01.csv trades-2024-02.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var importDBPath string

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importDBPath, "db", "d", "", "SQLite journal DB (overrides journal.db_path)")
}

func runImport(cmd *cobra.Command, args []string) error {
	dbPath := cfg.Journal.DBPath
	if importDBPath != "" {
		dbPath = importDBPath
	}

	j, err := journal.NewSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	ctx := context.Background()
	total := 0
	for _, path := range args {
		feed, err := journal.OpenCSVFeed(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		trades, err := journal.ReadAll(feed)
		if err != nil {
			return fmt.Errorf("read trades: %w", err)
		}

		n, err := j.RecordTrades(ctx, trades)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		log.WithField("file", path).WithField("trades", n).Info("imported")
		total += n
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d trades into %s\n", total, dbPath)
	return nil
}
