package journal

// Money and quantities are stored as TEXT so decimals survive unrounded.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	strategy_id TEXT NOT NULL DEFAULT '',
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL CHECK (action IN ('BUY', 'SELL')),
	quantity TEXT NOT NULL,
	price TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol, time);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	source TEXT NOT NULL,
	symbol TEXT NOT NULL DEFAULT '',
	strategy TEXT NOT NULL DEFAULT '',
	trades INTEGER NOT NULL,
	closed_trades INTEGER NOT NULL,
	winning_trades INTEGER NOT NULL,
	losing_trades INTEGER NOT NULL,
	rejected INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	total_profit TEXT NOT NULL,
	gross_profit TEXT NOT NULL,
	gross_loss TEXT NOT NULL,
	profit_factor REAL NOT NULL,
	max_drawdown TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS pnl_events (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	seq INTEGER NOT NULL,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	trade_pnl TEXT NOT NULL,
	cumulative_pnl TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS positions (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	symbol TEXT NOT NULL,
	quantity TEXT NOT NULL,
	avg_price TEXT NOT NULL,
	cost_basis TEXT NOT NULL DEFAULT '0',
	PRIMARY KEY (run_id, symbol)
);
`
