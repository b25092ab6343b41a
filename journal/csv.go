package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/tradebook/market"
	"github.com/rustyeddy/tradebook/pnl"
	"github.com/shopspring/decimal"
)

// Trade logs written by the execution adapter also carry strategy_id,
// trade_id, fees and balance columns; those are optional or ignored.
var requiredColumns = []string{"timestamp", "symbol", "action", "quantity", "price"}

// CSVFeed reads trades from a trade log with a header row.
type CSVFeed struct {
	r    *csv.Reader
	c    io.Closer
	name string
	cols map[string]int
}

// OpenCSVFeed opens a trade log file.
func OpenCSVFeed(path string) (*CSVFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	feed, err := NewCSVFeed(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	feed.c = f
	return feed, nil
}

// NewCSVFeed reads the header from r. name is used in error messages.
func NewCSVFeed(r io.Reader, name string) (*CSVFeed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: missing header", name)
		}
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", name, c)
		}
	}

	return &CSVFeed{r: cr, name: name, cols: cols}, nil
}

func (f *CSVFeed) Next() (market.Trade, bool, error) {
	for {
		rec, err := f.r.Read()
		if errors.Is(err, io.EOF) {
			return market.Trade{}, false, nil
		}
		if err != nil {
			// csv.ParseError already carries the line number
			return market.Trade{}, false, fmt.Errorf("%s: %w", f.name, err)
		}
		if blank(rec) {
			continue
		}

		line, _ := f.r.FieldPos(0)
		t, err := f.parse(rec)
		if err != nil {
			return market.Trade{}, false, fmt.Errorf("%s:%d: %w", f.name, line, err)
		}
		t.Line = line
		return t, true, nil
	}
}

func (f *CSVFeed) field(rec []string, col string) string {
	i, ok := f.cols[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// parse fails only on an unreadable timestamp, which would leave the row
// unordered. Every other field is passed through as read so Trade.Validate
// can reject the trade; a quantity or price that is not a number reads as 0.
func (f *CSVFeed) parse(rec []string) (market.Trade, error) {
	var (
		t   market.Trade
		err error
	)

	if t.Time, err = market.ParseTime(f.field(rec, "timestamp")); err != nil {
		return t, err
	}
	t.Symbol = f.field(rec, "symbol")
	t.StrategyID = f.field(rec, "strategy_id")
	t.ID = f.field(rec, "trade_id")
	t.Action = market.Action(f.field(rec, "action"))
	t.Quantity = number(f.field(rec, "quantity"))
	t.Price = number(f.field(rec, "price"))
	return t, nil
}

func number(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (f *CSVFeed) Close() error {
	if f.c == nil {
		return nil
	}
	return f.c.Close()
}

func blank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// EventsHeader is the column layout of an exported PnL series.
var EventsHeader = []string{"seq", "time", "symbol", "trade_pnl", "cumulative_pnl"}

// EventsCSV writes a PnL series as CSV.
type EventsCSV struct {
	w *csv.Writer
	c io.Closer
}

// CreateEventsCSV truncates path and writes the header.
func CreateEventsCSV(path string) (*EventsCSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	ew, err := NewEventsCSV(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	ew.c = f
	return ew, nil
}

func NewEventsCSV(w io.Writer) (*EventsCSV, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(EventsHeader); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return &EventsCSV{w: cw}, nil
}

func (j *EventsCSV) RecordEvent(ev pnl.Event) error {
	return j.w.Write([]string{
		fmt.Sprint(ev.Seq),
		ev.Time.UTC().Format(time.RFC3339),
		ev.Symbol,
		ev.TradePnL.String(),
		ev.CumulativePnL.String(),
	})
}

func (j *EventsCSV) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return err
	}
	if j.c != nil {
		return j.c.Close()
	}
	return nil
}

// WriteEventsCSV writes all events to path.
func WriteEventsCSV(path string, events []pnl.Event) error {
	ew, err := CreateEventsCSV(path)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := ew.RecordEvent(ev); err != nil {
			ew.Close()
			return err
		}
	}
	return ew.Close()
}
