package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/tradebook/pnl"
)

// RecordRun stores a run together with its events and final positions.
func (j *SQLite) RecordRun(ctx context.Context, r Run, events []pnl.Event) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s := r.Summary
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, created, source, symbol, strategy, trades, closed_trades, winning_trades,
		 losing_trades, rejected, win_rate, total_profit, gross_profit, gross_loss,
		 profit_factor, max_drawdown, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Source, r.Symbol, r.Strategy,
		s.Trades, s.ClosedTrades, s.WinningTrades, s.LosingTrades, r.Rejected,
		s.WinRate, s.TotalProfit, s.GrossProfit, s.GrossLoss,
		s.ProfitFactor, s.MaxDrawdown, s.Start.UTC(), s.End.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, ev := range events {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pnl_events (run_id, seq, time, symbol, trade_pnl, cumulative_pnl)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.RunID, ev.Seq, ev.Time.UTC(), ev.Symbol, ev.TradePnL, ev.CumulativePnL,
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", ev.Seq, err)
		}
	}

	for sym, p := range r.Positions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO positions (run_id, symbol, quantity, avg_price, cost_basis)
			VALUES (?, ?, ?, ?, ?)`,
			r.RunID, sym, p.Quantity, p.AvgPrice, p.Cost,
		)
		if err != nil {
			return fmt.Errorf("insert position %s: %w", sym, err)
		}
	}

	return tx.Commit()
}

const runColumns = `run_id, created, source, symbol, strategy, trades, closed_trades,
	winning_trades, losing_trades, rejected, win_rate, total_profit, gross_profit,
	gross_loss, profit_factor, max_drawdown, start_time, end_time`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	s := &r.Summary
	err := row.Scan(
		&r.RunID, &r.Created, &r.Source, &r.Symbol, &r.Strategy,
		&s.Trades, &s.ClosedTrades, &s.WinningTrades, &s.LosingTrades, &r.Rejected,
		&s.WinRate, &s.TotalProfit, &s.GrossProfit, &s.GrossLoss,
		&s.ProfitFactor, &s.MaxDrawdown, &s.Start, &s.End,
	)
	return r, err
}

// GetRun loads a run and its final positions.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("run %q %w", runID, ErrNotFound)
		}
		return Run{}, err
	}

	r.Positions, err = j.listPositions(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns every recorded run, newest first. Positions are not loaded.
func (j *SQLite) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEventsByRunID returns the events of a run in sequence order.
func (j *SQLite) ListEventsByRunID(ctx context.Context, runID string) ([]pnl.Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, time, symbol, trade_pnl, cumulative_pnl
		FROM pnl_events
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pnl.Event
	for rows.Next() {
		var ev pnl.Event
		if err := rows.Scan(&ev.Seq, &ev.Time, &ev.Symbol, &ev.TradePnL, &ev.CumulativePnL); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) listPositions(ctx context.Context, runID string) (map[string]pnl.Position, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT symbol, quantity, avg_price, cost_basis
		FROM positions
		WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]pnl.Position)
	for rows.Next() {
		var (
			sym string
			p   pnl.Position
		)
		if err := rows.Scan(&sym, &p.Quantity, &p.AvgPrice, &p.Cost); err != nil {
			return nil, err
		}
		out[sym] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
