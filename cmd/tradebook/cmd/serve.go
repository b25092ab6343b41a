package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/tradebook/internal/logging"
	"github.com/rustyeddy/tradebook/internal/metrics"
	"github.com/rustyeddy/tradebook/internal/server"
	"github.com/rustyeddy/tradebook/internal/trace"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the PnL engine over HTTP",
	Long: `Start an HTTP server exposing:

  GET  /healthz            liveness and journal status
  GET  /metrics            Prometheus metrics
  POST /api/v1/pnl         book a JSON trade list, return events and summary
  GET  /api/v1/runs        recorded runs (requires the journal)
  GET  /api/v1/runs/{id}   one run with its PnL series

Example:
  tradebook serve --addr :8080 --journal`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr    string
	serveJournal bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveJournal, "journal", false, "open the SQLite journal for the run endpoints")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := server.Options{
		Metrics:     metrics.NewMetrics(),
		Log:         logging.Component(log, "server"),
		SkipInvalid: cfg.Engine.SkipInvalid,
	}

	if serveJournal || cfg.Journal.Enabled {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer j.Close()
		opts.Journal = j
	}

	tracer, err := trace.New(cfg.Tracing, cmd.ErrOrStderr(), version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer tracer.Shutdown(context.Background())
	opts.Tracer = tracer

	return server.New(opts).ListenAndServe(ctx, addr)
}
