package pnl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerGetCreatesFlatPosition(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	assert.Empty(t, l.Snapshot())

	p := l.Get("NIFTY")
	assert.True(t, p.Flat())
	assert.True(t, p.AvgPrice.IsZero())
	assert.Len(t, l.Snapshot(), 1)

	// same pointer on the second lookup
	p.Quantity = dec("3")
	assert.Same(t, p, l.Get("NIFTY"))
	assertDec(t, "3", l.Get("NIFTY").Quantity)
}

func TestLedgerSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.Get("B").Quantity = dec("-2")
	l.Get("A").Quantity = dec("5")

	snap := l.Snapshot()
	assert.Len(t, snap, 2)
	assertDec(t, "5", snap["A"].Quantity)

	l.Get("A").Quantity = dec("1")
	assertDec(t, "5", snap["A"].Quantity)
	assert.Equal(t, -1, snap["B"].Side())
}
