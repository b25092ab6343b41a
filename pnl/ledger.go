package pnl

import "github.com/shopspring/decimal"

// Position is the open exposure in one symbol.
// Quantity is signed: positive long, negative short, zero flat.
// AvgPrice is the cost basis per unit and Cost the total basis of the open
// quantity; both are zero whenever the position is flat.
type Position struct {
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	Cost     decimal.Decimal `json:"cost_basis"`
}

// Side returns +1 long, -1 short, 0 flat.
func (p Position) Side() int {
	return p.Quantity.Sign()
}

func (p Position) Flat() bool {
	return p.Quantity.IsZero()
}

// Ledger maps symbols to positions for the lifetime of one run.
type Ledger struct {
	positions map[string]*Position
}

func NewLedger() *Ledger {
	return &Ledger{positions: make(map[string]*Position)}
}

// Get returns the position for symbol, inserting a flat one if absent.
func (l *Ledger) Get(symbol string) *Position {
	p, ok := l.positions[symbol]
	if !ok {
		p = &Position{}
		l.positions[symbol] = p
	}
	return p
}

// Snapshot copies the current positions.
func (l *Ledger) Snapshot() map[string]Position {
	out := make(map[string]Position, len(l.positions))
	for s, p := range l.positions {
		out[s] = *p
	}
	return out
}
