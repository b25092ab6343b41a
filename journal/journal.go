package journal

import (
	"errors"
	"sort"
	"time"

	"github.com/rustyeddy/tradebook/market"
	"github.com/rustyeddy/tradebook/pnl"
)

var ErrNotFound = errors.New("not found")

// TradeFeed yields trades one at a time, in the order they should be booked.
// Implementations return (ok=false, err=nil) at EOF.
type TradeFeed interface {
	Next() (t market.Trade, ok bool, err error)
	Close() error
}

// Filter narrows a trade log to one symbol and/or one strategy.
// Empty fields match everything.
type Filter struct {
	Symbol   string
	Strategy string
}

func (f Filter) Match(t market.Trade) bool {
	if f.Symbol != "" && t.Symbol != f.Symbol {
		return false
	}
	if f.Strategy != "" && t.StrategyID != f.Strategy {
		return false
	}
	return true
}

// Run is one recorded PnL computation over a trade log.
type Run struct {
	RunID    string
	Created  time.Time
	Source   string
	Symbol   string
	Strategy string

	Summary   pnl.Summary
	Rejected  int
	Positions map[string]pnl.Position

	OrgPath   string
	EventsCSV string
	Notes     []string
}

// ReadAll drains feed and closes it.
func ReadAll(feed TradeFeed) ([]market.Trade, error) {
	defer feed.Close()

	var out []market.Trade
	for {
		t, ok, err := feed.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, t)
	}
}

// SortByTime orders trades by execution time, keeping the original order
// of trades that share a timestamp.
func SortByTime(trades []market.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Time.Before(trades[j].Time)
	})
}

// SliceFeed serves trades from memory.
type SliceFeed struct {
	trades []market.Trade
	pos    int
}

func NewSliceFeed(trades []market.Trade) *SliceFeed {
	return &SliceFeed{trades: trades}
}

func (f *SliceFeed) Next() (market.Trade, bool, error) {
	if f.pos >= len(f.trades) {
		return market.Trade{}, false, nil
	}
	t := f.trades[f.pos]
	f.pos++
	return t, true, nil
}

func (f *SliceFeed) Close() error { return nil }

// FilteredFeed drops trades that do not match Filter.
type FilteredFeed struct {
	TradeFeed
	Filter Filter
}

func (f FilteredFeed) Next() (market.Trade, bool, error) {
	for {
		t, ok, err := f.TradeFeed.Next()
		if err != nil || !ok {
			return t, ok, err
		}
		if f.Filter.Match(t) {
			return t, true, nil
		}
	}
}
