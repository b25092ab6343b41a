package pnl

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary aggregates the events of one run.
//
// WinRate is a percentage in [0, 100] and is 0 when nothing was closed.
// ProfitFactor is GrossProfit/GrossLoss and is 0 when there were no losses.
// MaxDrawdown is the largest peak-to-trough drop of the cumulative PnL curve,
// measured from a starting value of zero.
type Summary struct {
	Trades        int             `json:"trades"`
	ClosedTrades  int             `json:"closed_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	WinRate       float64         `json:"win_rate"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	GrossLoss     decimal.Decimal `json:"gross_loss"`
	ProfitFactor  float64         `json:"profit_factor"`
	MaxDrawdown   decimal.Decimal `json:"max_drawdown"`
	Start         time.Time       `json:"start"`
	End           time.Time       `json:"end"`
}
