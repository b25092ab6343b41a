package pnl

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradebook/market"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidTrade wraps every precondition failure on an input trade.
	ErrInvalidTrade = errors.New("invalid trade")

	// ErrInconsistent means a ledger invariant was about to be broken.
	ErrInconsistent = errors.New("ledger inconsistency")
)

// Event is the realized PnL attributable to one trade.
type Event struct {
	Seq           int             `json:"seq"`
	Time          time.Time       `json:"timestamp"`
	Symbol        string          `json:"symbol"`
	TradePnL      decimal.Decimal `json:"trade_pnl"`
	CumulativePnL decimal.Decimal `json:"cumulative_pnl"`
}

// Run is the accumulator for a single left-to-right pass over a trade
// sequence. It owns its ledger; never share a Run between computations.
type Run struct {
	ledger *Ledger
	events []Event

	total       decimal.Decimal
	peak        decimal.Decimal
	maxDD       decimal.Decimal
	grossProfit decimal.Decimal
	grossLoss   decimal.Decimal

	closed int
	wins   int
	losses int
}

func NewRun() *Run {
	return &Run{ledger: NewLedger()}
}

// Apply books one trade against the ledger and returns its event.
// An invalid trade leaves the run untouched.
func (r *Run) Apply(t market.Trade) (Event, error) {
	if err := t.Validate(); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidTrade, err)
	}

	pos := r.ledger.Get(t.Symbol)
	realized, err := settle(pos, t.Action.Sign(), t.Quantity, t.Price)
	if err != nil {
		return Event{}, fmt.Errorf("%s: %w", t.Symbol, err)
	}

	r.total = r.total.Add(realized)
	ev := Event{
		Seq:           len(r.events) + 1,
		Time:          t.Time,
		Symbol:        t.Symbol,
		TradePnL:      realized,
		CumulativePnL: r.total,
	}
	r.events = append(r.events, ev)
	r.tally(realized)

	return ev, nil
}

func (r *Run) tally(realized decimal.Decimal) {
	switch realized.Sign() {
	case 1:
		r.closed++
		r.wins++
		r.grossProfit = r.grossProfit.Add(realized)
	case -1:
		r.closed++
		r.losses++
		r.grossLoss = r.grossLoss.Sub(realized)
	}

	if r.total.GreaterThan(r.peak) {
		r.peak = r.total
	}
	if dd := r.peak.Sub(r.total); dd.GreaterThan(r.maxDD) {
		r.maxDD = dd
	}
}

// Events returns the events emitted so far, in input order.
func (r *Run) Events() []Event {
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Position returns a copy of the current position in symbol.
func (r *Run) Position(symbol string) Position {
	return *r.ledger.Get(symbol)
}

func (r *Run) Positions() map[string]Position {
	return r.ledger.Snapshot()
}

func (r *Run) Summary() Summary {
	s := Summary{
		Trades:        len(r.events),
		ClosedTrades:  r.closed,
		WinningTrades: r.wins,
		LosingTrades:  r.losses,
		TotalProfit:   r.total,
		GrossProfit:   r.grossProfit,
		GrossLoss:     r.grossLoss,
		MaxDrawdown:   r.maxDD,
	}
	if r.closed > 0 {
		s.WinRate = float64(r.wins) / float64(r.closed) * 100
	}
	if r.grossLoss.IsPositive() {
		s.ProfitFactor = r.grossProfit.Div(r.grossLoss).InexactFloat64()
	}
	if n := len(r.events); n > 0 {
		s.Start = r.events[0].Time
		s.End = r.events[n-1].Time
	}
	return s
}

// costScale bounds the digits kept when a partial close releases a share
// of a cost basis that does not divide evenly. The residue stays in the
// basis, so a position closed out in full realizes exactly.
const costScale = 16

// settle applies a fill of qty at price to pos. side is +1 for a buy and
// -1 for a sell; both directions share this one path. It returns the PnL
// realized by the part of the fill that reduced existing exposure.
func settle(pos *Position, side int, qty, price decimal.Decimal) (decimal.Decimal, error) {
	dir := decimal.NewFromInt(int64(side))
	held := pos.Quantity.Abs()

	if pos.Side() == -side {
		closed := decimal.Min(held, qty)
		released := pos.Cost
		if closed.LessThan(held) {
			released = pos.Cost.Mul(closed).DivRound(held, costScale)
		}
		realized := closed.Mul(price).Sub(released).Mul(decimal.NewFromInt(int64(pos.Side())))

		quantity := pos.Quantity.Add(closed.Mul(dir))
		avg, cost := pos.AvgPrice, pos.Cost.Sub(released)
		if quantity.IsZero() {
			avg, cost = decimal.Zero, decimal.Zero
		}

		// flip: whatever is left after flattening opens the other side
		if remaining := qty.Sub(closed); remaining.IsPositive() {
			quantity = remaining.Mul(dir)
			avg, cost = price, remaining.Mul(price)
		}

		pos.Quantity, pos.AvgPrice, pos.Cost = quantity, avg, cost
		return realized, nil
	}

	magnitude := held.Add(qty)
	if !magnitude.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: average over non-positive quantity %s", ErrInconsistent, magnitude)
	}
	cost := pos.Cost.Add(qty.Mul(price))
	avg := cost.Div(magnitude)
	if avg.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative average price %s", ErrInconsistent, avg)
	}

	pos.Quantity = pos.Quantity.Add(qty.Mul(dir))
	pos.AvgPrice, pos.Cost = avg, cost
	return decimal.Zero, nil
}
