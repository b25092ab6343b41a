package market

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Action is the side of an executed trade.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

var ErrUnknownAction = errors.New("unknown action")

// ParseAction is case-sensitive: only "BUY" and "SELL" are accepted.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.TrimSpace(s)); a {
	case Buy, Sell:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Sign returns +1 for BUY, -1 for SELL and 0 for anything else.
func (a Action) Sign() int {
	switch a {
	case Buy:
		return 1
	case Sell:
		return -1
	}
	return 0
}

func (a Action) Valid() bool {
	return a.Sign() != 0
}

func (a Action) String() string {
	return string(a)
}

// Trade is a single executed fill.
type Trade struct {
	ID         string          `json:"id,omitempty"`
	StrategyID string          `json:"strategy_id,omitempty"`
	Time       time.Time       `json:"timestamp"`
	Symbol     string          `json:"symbol"`
	Action     Action          `json:"action"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`

	// Line is the 1-based row the trade was read from, 0 when unknown.
	Line int `json:"line,omitempty"`
}

// Validate checks the fields the PnL engine depends on.
func (t Trade) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return errors.New("symbol is required")
	}
	if !t.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, string(t.Action))
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be positive, got %s", t.Quantity)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("price must be positive, got %s", t.Price)
	}
	return nil
}

func (t Trade) String() string {
	return fmt.Sprintf("%s %s %s %s @ %s",
		t.Time.UTC().Format(time.RFC3339), t.Action, t.Quantity, t.Symbol, t.Price)
}
