package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"BUY", Buy, false},
		{"SELL", Sell, false},
		{" SELL ", Sell, false},
		{"buy", "", true},
		{"Sell", "", true},
		{"HOLD", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownAction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActionSign(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, Buy.Sign())
	assert.Equal(t, -1, Sell.Sign())
	assert.Equal(t, 0, Action("HOLD").Sign())
	assert.False(t, Action("").Valid())
}

func TestTradeValidate(t *testing.T) {
	t.Parallel()

	good := Trade{
		Time:     time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC),
		Symbol:   "NIFTY",
		Action:   Buy,
		Quantity: decimal.NewFromInt(10),
		Price:    decimal.NewFromInt(100),
	}
	require.NoError(t, good.Validate())

	tests := []struct {
		name   string
		mutate func(*Trade)
		errMsg string
	}{
		{"empty symbol", func(tr *Trade) { tr.Symbol = " " }, "symbol is required"},
		{"bad action", func(tr *Trade) { tr.Action = "buy" }, "unknown action"},
		{"zero quantity", func(tr *Trade) { tr.Quantity = decimal.Zero }, "quantity must be positive"},
		{"negative quantity", func(tr *Trade) { tr.Quantity = decimal.NewFromInt(-1) }, "quantity must be positive"},
		{"zero price", func(tr *Trade) { tr.Price = decimal.Zero }, "price must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := good
			tt.mutate(&tr)
			err := tr.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 3, 15, 9, 15, 0, 0, time.UTC)

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"1710494100000", want, false},
		{"2024-03-15T09:15:00Z", want, false},
		{"2024-03-15T14:45:00+05:30", want, false},
		{"2024-03-15T09:15:00", want, false},
		{"2024-03-15 09:15:00", want, false},
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"", time.Time{}, true},
		{"yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}
