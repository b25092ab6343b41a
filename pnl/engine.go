// Package pnl turns an ordered sequence of executed trades into a realized
// PnL series using average-cost position tracking.
package pnl

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/tradebook/market"
	"github.com/sirupsen/logrus"
)

// Rejection is a trade that failed validation and was skipped. Index is the
// position in the processed sequence; Line and TradeID point back at the
// source row.
type Rejection struct {
	Index   int          `json:"index"`
	Line    int          `json:"line,omitempty"`
	TradeID string       `json:"trade_id,omitempty"`
	Trade   market.Trade `json:"trade"`
	Reason  string       `json:"reason"`
}

// Result is everything one call to Process produces.
type Result struct {
	Events    []Event             `json:"events"`
	Summary   Summary             `json:"summary"`
	Positions map[string]Position `json:"positions"`
	Rejected  []Rejection         `json:"rejected,omitempty"`
}

// Engine holds processing options only. Each Process call gets a fresh
// ledger, so one Engine may be used from several goroutines.
type Engine struct {
	skipInvalid bool
	log         *logrus.Entry
}

type Option func(*Engine)

// WithSkipInvalid makes Process record malformed trades in Result.Rejected
// and carry on, instead of failing the whole run.
func WithSkipInvalid(skip bool) Option {
	return func(e *Engine) { e.skipInvalid = skip }
}

func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{log: logrus.NewEntry(logrus.StandardLogger())}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process folds trades, in order, into events and a summary.
func (e *Engine) Process(trades []market.Trade) (*Result, error) {
	run := NewRun()
	var rejected []Rejection

	for i, t := range trades {
		if _, err := run.Apply(t); err != nil {
			if e.skipInvalid && errors.Is(err, ErrInvalidTrade) {
				e.log.WithError(err).WithFields(logrus.Fields{
					"index":    i,
					"line":     t.Line,
					"trade_id": t.ID,
					"symbol":   t.Symbol,
					"action":   t.Action,
				}).Warn("skipping trade")
				rejected = append(rejected, Rejection{
					Index:   i,
					Line:    t.Line,
					TradeID: t.ID,
					Trade:   t,
					Reason:  err.Error(),
				})
				continue
			}
			return nil, fmt.Errorf("trade %d: %w", i, err)
		}
	}

	return &Result{
		Events:    run.Events(),
		Summary:   run.Summary(),
		Positions: run.Positions(),
		Rejected:  rejected,
	}, nil
}
