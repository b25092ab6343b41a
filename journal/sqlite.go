package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/tradebook/market"
	"github.com/rustyeddy/tradebook/pkg/id"
)

// SQLite stores imported trades and the results of PnL runs.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	j, err := NewSQLiteFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// NewSQLiteFromDB wraps an already opened handle and applies the schema.
func NewSQLiteFromDB(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// RecordTrade stores t and returns its trade ID. Trades without an ID get a
// ULID stamped with their execution time.
func (j *SQLite) RecordTrade(ctx context.Context, t market.Trade) (string, error) {
	return recordTrade(ctx, j.db, t)
}

// RecordTrades stores all trades in one transaction.
func (j *SQLite) RecordTrades(ctx context.Context, trades []market.Trade) (int, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for i, t := range trades {
		if _, err := recordTrade(ctx, tx, t); err != nil {
			if t.Line > 0 {
				return 0, fmt.Errorf("trade %d (line %d): %w", i, t.Line, err)
			}
			return 0, fmt.Errorf("trade %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(trades), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func recordTrade(ctx context.Context, db execer, t market.Trade) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	tradeID := t.ID
	if tradeID == "" {
		tradeID = id.NewAt(t.Time)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO trades
		(trade_id, strategy_id, time, symbol, action, quantity, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tradeID, t.StrategyID, t.Time.UTC(), t.Symbol, string(t.Action),
		t.Quantity, t.Price,
	)
	if err != nil {
		return "", err
	}
	return tradeID, nil
}

// ListTrades returns matching trades ordered by execution time, ties in
// insertion order.
func (j *SQLite) ListTrades(ctx context.Context, f Filter) ([]market.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, strategy_id, time, symbol, action, quantity, price
		FROM trades
		WHERE (? = '' OR symbol = ?) AND (? = '' OR strategy_id = ?)
		ORDER BY time ASC, rowid ASC`,
		f.Symbol, f.Symbol, f.Strategy, f.Strategy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Trade
	for rows.Next() {
		var (
			t      market.Trade
			action string
		)
		if err := rows.Scan(
			&t.ID,
			&t.StrategyID,
			&t.Time,
			&t.Symbol,
			&action,
			&t.Quantity,
			&t.Price,
		); err != nil {
			return nil, err
		}
		if t.Action, err = market.ParseAction(action); err != nil {
			return nil, fmt.Errorf("trade %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Feed returns the matching trades as a TradeFeed.
func (j *SQLite) Feed(ctx context.Context, f Filter) (TradeFeed, error) {
	trades, err := j.ListTrades(ctx, f)
	if err != nil {
		return nil, err
	}
	return NewSliceFeed(trades), nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
