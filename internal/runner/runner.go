package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradebook/internal/logging"
	"github.com/rustyeddy/tradebook/internal/metrics"
	"github.com/rustyeddy/tradebook/internal/trace"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/pkg/id"
	"github.com/rustyeddy/tradebook/pnl"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Options controls how a run reads its trades and where it writes results.
type Options struct {
	// Source labels the run in the journal, e.g. the CSV path.
	Source string
	Filter journal.Filter

	// Sort stable-sorts trades by time before booking them.
	Sort        bool
	SkipInvalid bool

	EventsCSV string
	OrgPath   string
	Notes     []string
}

// Runner drives the PnL engine over a trade feed. Journal, Metrics and
// Tracer are optional.
type Runner struct {
	Feed    journal.TradeFeed
	Journal *journal.SQLite
	Metrics *metrics.Metrics
	Tracer  *trace.Tracer
	Log     *logrus.Entry
	Options Options
}

// Output pairs the journal record of a run with the full engine result.
type Output struct {
	Run    journal.Run
	Result *pnl.Result
}

// Run executes one PnL computation:
//  1. drain the feed through the filter
//  2. optionally sort by time
//  3. fold the trades through a fresh engine
//  4. write the events CSV / org report and journal the run when configured
func (r *Runner) Run(ctx context.Context) (Output, error) {
	if r.Feed == nil {
		return Output{}, errors.New("runner: Feed is required")
	}
	log := r.Log
	if log == nil {
		log = logging.Discard()
	}
	tracer := r.Tracer
	if tracer == nil {
		tracer = trace.Noop()
	}

	ctx, span := tracer.StartSpan(ctx, "pnl.run")
	defer span.End()

	out, err := r.run(ctx, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if r.Metrics != nil {
			r.Metrics.RunFailed()
		}
		return Output{}, err
	}

	s := out.Run.Summary
	span.SetAttributes(
		attribute.String("run_id", out.Run.RunID),
		attribute.Int("trades", s.Trades),
		attribute.Int("closed_trades", s.ClosedTrades),
		attribute.Int("rejected", out.Run.Rejected),
	)
	return out, nil
}

func (r *Runner) run(ctx context.Context, log *logrus.Entry) (Output, error) {
	opts := r.Options

	trades, err := journal.ReadAll(journal.FilteredFeed{TradeFeed: r.Feed, Filter: opts.Filter})
	if err != nil {
		return Output{}, fmt.Errorf("read trades: %w", err)
	}
	if opts.Sort {
		journal.SortByTime(trades)
	}

	runID := id.New()
	log = log.WithField("run_id", runID).WithFields(trace.Fields(ctx))
	log.WithFields(logrus.Fields{
		"source": opts.Source,
		"trades": len(trades),
	}).Info("run started")

	engine := pnl.NewEngine(pnl.WithSkipInvalid(opts.SkipInvalid), pnl.WithLogger(log))

	start := time.Now()
	res, err := engine.Process(trades)
	if err != nil {
		return Output{}, err
	}
	elapsed := time.Since(start)

	run := journal.Run{
		RunID:     runID,
		Created:   time.Now().UTC(),
		Source:    opts.Source,
		Symbol:    opts.Filter.Symbol,
		Strategy:  opts.Filter.Strategy,
		Summary:   res.Summary,
		Rejected:  len(res.Rejected),
		Positions: res.Positions,
		OrgPath:   opts.OrgPath,
		EventsCSV: opts.EventsCSV,
		Notes:     opts.Notes,
	}

	if r.Metrics != nil {
		r.Metrics.ObserveRun(
			res.Summary.Trades,
			len(res.Rejected),
			res.Summary.ClosedTrades,
			res.Summary.TotalProfit.InexactFloat64(),
			elapsed.Seconds(),
		)
	}

	if opts.EventsCSV != "" {
		if err := journal.WriteEventsCSV(opts.EventsCSV, res.Events); err != nil {
			return Output{}, fmt.Errorf("write events: %w", err)
		}
	}
	if opts.OrgPath != "" {
		if err := run.WriteOrg(); err != nil {
			return Output{}, fmt.Errorf("write org: %w", err)
		}
	}

	if r.Journal != nil {
		commit := time.Now()
		if err := r.Journal.RecordRun(ctx, run, res.Events); err != nil {
			return Output{}, fmt.Errorf("record run: %w", err)
		}
		if r.Metrics != nil {
			r.Metrics.JournalCommitDur.Observe(time.Since(commit).Seconds())
		}
	}

	log.WithFields(logrus.Fields{
		"closed":       res.Summary.ClosedTrades,
		"rejected":     len(res.Rejected),
		"total_profit": res.Summary.TotalProfit.String(),
		"elapsed":      elapsed,
	}).Info("run finished")

	return Output{Run: run, Result: res}, nil
}
