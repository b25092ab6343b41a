package pnl

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/tradebook/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	if !dec(want).Equal(got) {
		assert.Fail(t, fmt.Sprintf("want %s, got %s", want, got), msgAndArgs...)
	}
}

func trade(i int, symbol string, action market.Action, qty, price string) market.Trade {
	return market.Trade{
		Time:     t0.Add(time.Duration(i) * time.Minute),
		Symbol:   symbol,
		Action:   action,
		Quantity: dec(qty),
		Price:    dec(price),
	}
}

func process(t *testing.T, trades ...market.Trade) *Result {
	t.Helper()
	res, err := NewEngine().Process(trades)
	require.NoError(t, err)
	require.Len(t, res.Events, len(trades))
	return res
}

func TestFlatRoundTrip(t *testing.T) {
	t.Parallel()

	res := process(t,
		trade(0, "NIFTY", market.Buy, "7", "101.25"),
		trade(1, "NIFTY", market.Sell, "7", "101.25"),
	)

	assertDec(t, "0", res.Events[1].TradePnL)
	pos := res.Positions["NIFTY"]
	assertDec(t, "0", pos.Quantity)
	assertDec(t, "0", pos.AvgPrice)
	assert.True(t, pos.Flat())

	assert.Equal(t, 0, res.Summary.ClosedTrades)
	assert.Equal(t, 0.0, res.Summary.WinRate)
}

func TestSimpleLongProfit(t *testing.T) {
	t.Parallel()

	res := process(t,
		trade(0, "NIFTY", market.Buy, "10", "100"),
		trade(1, "NIFTY", market.Sell, "10", "110"),
	)

	assertDec(t, "0", res.Events[0].TradePnL)
	assertDec(t, "100", res.Events[1].TradePnL)
	assertDec(t, "100", res.Events[1].CumulativePnL)

	s := res.Summary
	assert.Equal(t, 1, s.ClosedTrades)
	assert.Equal(t, 1, s.WinningTrades)
	assert.Equal(t, 100.0, s.WinRate)
	assertDec(t, "100", s.TotalProfit)
}

func TestSimpleShortProfit(t *testing.T) {
	t.Parallel()

	res := process(t,
		trade(0, "BANKNIFTY", market.Sell, "5", "100"),
		trade(1, "BANKNIFTY", market.Buy, "5", "90"),
	)

	assertDec(t, "0", res.Events[0].TradePnL)
	assertDec(t, "50", res.Events[1].TradePnL)
	assert.Equal(t, 100.0, res.Summary.WinRate)
	assert.True(t, res.Positions["BANKNIFTY"].Flat())
}

func TestPartialClose(t *testing.T) {
	t.Parallel()

	res := process(t,
		trade(0, "NIFTY", market.Buy, "10", "100"),
		trade(1, "NIFTY", market.Sell, "4", "120"),
	)

	assertDec(t, "80", res.Events[1].TradePnL)
	pos := res.Positions["NIFTY"]
	assertDec(t, "6", pos.Quantity)
	assertDec(t, "100", pos.AvgPrice)
}

func TestFlipLongToShort(t *testing.T) {
	t.Parallel()

	res := process(t,
		trade(0, "NIFTY", market.Buy, "5", "100"),
		trade(1, "NIFTY", market.Sell, "8", "90"),
	)

	assertDec(t, "-50", res.Events[1].TradePnL)
	pos := res.Positions["NIFTY"]
	assertDec(t, "-3", pos.Quantity)
	assertDec(t, "90", pos.AvgPrice)
	assert.Equal(t, -1, pos.Side())

	assert.Equal(t, 1, res.Summary.ClosedTrades)
	assert.Equal(t, 0, res.Summary.WinningTrades)
	assert.Equal(t, 1, res.Summary.LosingTrades)
	assert.Equal(t, 0.0, res.Summary.WinRate)
}

func TestFlipShortToLong(t *testing.T) {
	t.Parallel()

	res := process(t,
		trade(0, "NIFTY", market.Sell, "4", "200"),
		trade(1, "NIFTY", market.Buy, "10", "150"),
	)

	assertDec(t, "200", res.Events[1].TradePnL)
	pos := res.Positions["NIFTY"]
	assertDec(t, "6", pos.Quantity)
	assertDec(t, "150", pos.AvgPrice)
}

func TestWeightedAverageOnAdd(t *testing.T) {
	t.Parallel()

	t.Run("long", func(t *testing.T) {
		res := process(t,
			trade(0, "NIFTY", market.Buy, "5", "100"),
			trade(1, "NIFTY", market.Buy, "5", "120"),
		)
		assertDec(t, "0", res.Events[1].TradePnL)
		pos := res.Positions["NIFTY"]
		assertDec(t, "10", pos.Quantity)
		assertDec(t, "110", pos.AvgPrice)
	})

	t.Run("short", func(t *testing.T) {
		res := process(t,
			trade(0, "NIFTY", market.Sell, "5", "100"),
			trade(1, "NIFTY", market.Sell, "15", "80"),
		)
		pos := res.Positions["NIFTY"]
		assertDec(t, "-20", pos.Quantity)
		assertDec(t, "85", pos.AvgPrice)

		// covering part of the short realizes against the blended basis
		res = process(t,
			trade(0, "NIFTY", market.Sell, "5", "100"),
			trade(1, "NIFTY", market.Sell, "15", "80"),
			trade(2, "NIFTY", market.Buy, "10", "75"),
		)
		assertDec(t, "100", res.Events[2].TradePnL)
		pos = res.Positions["NIFTY"]
		assertDec(t, "-10", pos.Quantity)
		assertDec(t, "85", pos.AvgPrice)
	})
}

func TestReopenAfterFlattenUsesFreshBasis(t *testing.T) {
	t.Parallel()

	res := process(t,
		trade(0, "NIFTY", market.Buy, "10", "100"),
		trade(1, "NIFTY", market.Sell, "10", "90"),
		trade(2, "NIFTY", market.Buy, "2", "50"),
		trade(3, "NIFTY", market.Sell, "2", "60"),
	)

	pnls := []string{"0", "-100", "0", "20"}
	cums := []string{"0", "-100", "-100", "-80"}
	for i, ev := range res.Events {
		assertDec(t, pnls[i], ev.TradePnL, "event %d", i)
		assertDec(t, cums[i], ev.CumulativePnL, "event %d", i)
	}

	s := res.Summary
	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 2, s.ClosedTrades)
	assert.Equal(t, 1, s.WinningTrades)
	assert.Equal(t, 50.0, s.WinRate)
	assertDec(t, "-80", s.TotalProfit)
	assertDec(t, "20", s.GrossProfit)
	assertDec(t, "100", s.GrossLoss)
	assert.InDelta(t, 0.2, s.ProfitFactor, 1e-12)
	assertDec(t, "100", s.MaxDrawdown)
	assert.True(t, s.Start.Equal(t0))
	assert.True(t, s.End.Equal(t0.Add(3*time.Minute)))
}

func TestNonTerminatingAverageRealizesExactly(t *testing.T) {
	t.Parallel()

	t.Run("full close", func(t *testing.T) {
		res := process(t,
			trade(0, "NIFTY", market.Buy, "1", "100"),
			trade(1, "NIFTY", market.Buy, "2", "100.5"),
			trade(2, "NIFTY", market.Sell, "3", "101"),
		)
		assert.Equal(t, "2", res.Events[2].TradePnL.String())
		assert.Equal(t, "2", res.Summary.TotalProfit.String())
		assert.True(t, res.Positions["NIFTY"].Cost.IsZero())
	})

	t.Run("partial closes", func(t *testing.T) {
		res := process(t,
			trade(0, "NIFTY", market.Buy, "1", "100"),
			trade(1, "NIFTY", market.Buy, "2", "100.5"),
			trade(2, "NIFTY", market.Sell, "1", "101"),
			trade(3, "NIFTY", market.Sell, "2", "101"),
		)
		assertDec(t, "0.6666666666666667", res.Events[2].TradePnL)
		assertDec(t, "1.3333333333333333", res.Events[3].TradePnL)
		assertDec(t, "2", res.Events[3].CumulativePnL)
		assert.True(t, res.Positions["NIFTY"].Flat())
	})

	t.Run("close at the average is not a closed trade", func(t *testing.T) {
		res := process(t,
			trade(0, "NIFTY", market.Buy, "3", "100"),
			trade(1, "NIFTY", market.Buy, "3", "101"),
			trade(2, "NIFTY", market.Sell, "6", "100.5"),
		)
		assertDec(t, "0", res.Events[2].TradePnL)
		assert.Equal(t, 0, res.Summary.ClosedTrades)
	})
}

func TestPositionCarriesCostBasis(t *testing.T) {
	t.Parallel()

	run := NewRun()
	for _, tr := range []market.Trade{
		trade(0, "NIFTY", market.Buy, "4", "100"),
		trade(1, "NIFTY", market.Buy, "2", "130"),
		trade(2, "NIFTY", market.Sell, "3", "120"),
	} {
		_, err := run.Apply(tr)
		require.NoError(t, err)
	}
	pos := run.Position("NIFTY")
	assertDec(t, "3", pos.Quantity)
	assertDec(t, "110", pos.AvgPrice)
	assertDec(t, "330", pos.Cost)

	// a flip opens the new side at the fill price
	_, err := run.Apply(trade(3, "NIFTY", market.Sell, "5", "90"))
	require.NoError(t, err)
	pos = run.Position("NIFTY")
	assertDec(t, "-2", pos.Quantity)
	assertDec(t, "90", pos.AvgPrice)
	assertDec(t, "180", pos.Cost)
}

func TestEmptyInput(t *testing.T) {
	t.Parallel()

	for _, trades := range [][]market.Trade{nil, {}} {
		res, err := NewEngine().Process(trades)
		require.NoError(t, err)
		assert.Empty(t, res.Events)
		assert.NotNil(t, res.Events)
		assert.Empty(t, res.Positions)

		s := res.Summary
		assert.Equal(t, 0, s.Trades)
		assert.Equal(t, 0, s.ClosedTrades)
		assert.Equal(t, 0, s.WinningTrades)
		assert.Equal(t, 0.0, s.WinRate)
		assert.Equal(t, 0.0, s.ProfitFactor)
		assertDec(t, "0", s.TotalProfit)
		assert.True(t, s.Start.IsZero())
	}
}

func TestSymbolsAreIndependent(t *testing.T) {
	t.Parallel()

	a := []market.Trade{
		trade(0, "A", market.Buy, "10", "100"),
		trade(2, "A", market.Sell, "4", "120"),
		trade(4, "A", market.Sell, "9", "95"),
		trade(6, "A", market.Buy, "5", "90"),
	}
	b := []market.Trade{
		trade(1, "B", market.Sell, "3", "50"),
		trade(3, "B", market.Sell, "3", "56"),
		trade(5, "B", market.Buy, "6", "40"),
		trade(7, "B", market.Buy, "1", "41"),
	}

	var mixed []market.Trade
	for i := range a {
		mixed = append(mixed, a[i], b[i])
	}

	all := process(t, mixed...)
	onlyA := process(t, a...)
	onlyB := process(t, b...)

	var gotA, gotB []decimal.Decimal
	for _, ev := range all.Events {
		switch ev.Symbol {
		case "A":
			gotA = append(gotA, ev.TradePnL)
		case "B":
			gotB = append(gotB, ev.TradePnL)
		}
	}

	require.Len(t, gotA, len(onlyA.Events))
	require.Len(t, gotB, len(onlyB.Events))
	for i, ev := range onlyA.Events {
		assert.True(t, ev.TradePnL.Equal(gotA[i]), "A event %d", i)
	}
	for i, ev := range onlyB.Events {
		assert.True(t, ev.TradePnL.Equal(gotB[i]), "B event %d", i)
	}

	assert.True(t, all.Positions["A"].Quantity.Equal(onlyA.Positions["A"].Quantity))
	assert.True(t, all.Positions["A"].AvgPrice.Equal(onlyA.Positions["A"].AvgPrice))
	assert.True(t, all.Positions["B"].Quantity.Equal(onlyB.Positions["B"].Quantity))
	assert.True(t, all.Positions["B"].AvgPrice.Equal(onlyB.Positions["B"].AvgPrice))

	want := onlyA.Summary.TotalProfit.Add(onlyB.Summary.TotalProfit)
	assert.True(t, want.Equal(all.Summary.TotalProfit))
	assert.Equal(t, onlyA.Summary.ClosedTrades+onlyB.Summary.ClosedTrades, all.Summary.ClosedTrades)
}

func TestInvalidTradeFailsRun(t *testing.T) {
	t.Parallel()

	trades := []market.Trade{
		trade(0, "NIFTY", market.Buy, "10", "100"),
		trade(1, "NIFTY", market.Sell, "0", "110"),
	}

	_, err := NewEngine().Process(trades)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTrade)
	assert.Contains(t, err.Error(), "trade 1")
}

func TestInvalidTradeSkipped(t *testing.T) {
	t.Parallel()

	trades := []market.Trade{
		trade(0, "NIFTY", market.Buy, "10", "100"),
		trade(1, "NIFTY", market.Sell, "0", "110"),
		trade(2, "NIFTY", market.Action("sell"), "10", "110"),
		trade(3, "NIFTY", market.Sell, "10", "-1"),
		trade(4, "NIFTY", market.Sell, "10", "110"),
	}

	res, err := NewEngine(WithSkipInvalid(true)).Process(trades)
	require.NoError(t, err)

	require.Len(t, res.Rejected, 3)
	assert.Equal(t, 1, res.Rejected[0].Index)
	assert.Equal(t, 2, res.Rejected[1].Index)
	assert.Equal(t, 3, res.Rejected[2].Index)
	assert.Contains(t, res.Rejected[1].Reason, "unknown action")

	require.Len(t, res.Events, 2)
	assertDec(t, "100", res.Events[1].TradePnL)
	assert.Equal(t, 2, res.Events[1].Seq)
	assert.True(t, res.Positions["NIFTY"].Flat())
}

func TestRejectionPointsAtSourceRow(t *testing.T) {
	t.Parallel()

	bad := trade(1, "NIFTY", market.Action("buy"), "10", "100")
	bad.Line, bad.ID = 7, "T-7"

	res, err := NewEngine(WithSkipInvalid(true)).Process([]market.Trade{
		trade(0, "NIFTY", market.Buy, "10", "100"),
		bad,
	})
	require.NoError(t, err)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 1, res.Rejected[0].Index)
	assert.Equal(t, 7, res.Rejected[0].Line)
	assert.Equal(t, "T-7", res.Rejected[0].TradeID)

	_, err = NewEngine().Process([]market.Trade{bad})
	require.ErrorIs(t, err, ErrInvalidTrade)
	assert.ErrorIs(t, err, market.ErrUnknownAction)
}

func TestRunApplyLeavesLedgerOnError(t *testing.T) {
	t.Parallel()

	run := NewRun()
	_, err := run.Apply(trade(0, "NIFTY", market.Buy, "10", "100"))
	require.NoError(t, err)

	_, err = run.Apply(trade(1, "NIFTY", market.Sell, "-5", "100"))
	require.ErrorIs(t, err, ErrInvalidTrade)

	pos := run.Position("NIFTY")
	assertDec(t, "10", pos.Quantity)
	assertDec(t, "100", pos.AvgPrice)
	assert.Len(t, run.Events(), 1)
}

func TestSettleRejectsNonPositiveMagnitude(t *testing.T) {
	t.Parallel()

	pos := &Position{}
	_, err := settle(pos, 1, dec("-1"), dec("100"))
	require.ErrorIs(t, err, ErrInconsistent)
	assert.True(t, pos.Flat())
	assertDec(t, "0", pos.AvgPrice)
}

func TestEngineSharedAcrossGoroutines(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	trades := []market.Trade{
		trade(0, "NIFTY", market.Buy, "10", "100"),
		trade(1, "NIFTY", market.Sell, "4", "120"),
		trade(2, "NIFTY", market.Sell, "10", "90"),
	}

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Process(trades)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res)
		assertDec(t, "20", res.Summary.TotalProfit)
		pos := res.Positions["NIFTY"]
		assertDec(t, "-4", pos.Quantity)
		assertDec(t, "90", pos.AvgPrice)
	}
}
