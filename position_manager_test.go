package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionManagerAddRegistersOpenPosition(t *testing.T) {
	pm := newPositionManager("bot1", "user1", 0.001)
	now := time.Unix(0, 0)
	p := pm.Add("BTCUSDT", SideLong, 100, 2, 110, 90, 1.5, 0.2, now)

	require.Len(t, pm.Open(), 1)
	assert.Equal(t, p, pm.Open()[0])
	assert.Equal(t, PositionOpen, p.Status)
	assert.Equal(t, "bot1", p.BotID)
	assert.Equal(t, "user1", p.UserID)
}

// TestPositionManagerCloseReconstructsGrossPnL locks in the documented
// non-bug behavior (spec.md §9): Trade.PnL is net + entryFee + exitFee
// rather than computed directly from (exit-entry)*qty.
func TestPositionManagerCloseReconstructsGrossPnL(t *testing.T) {
	pm := newPositionManager("bot1", "user1", 0.001)
	opened := time.Unix(0, 0)
	p := pm.Add("BTCUSDT", SideLong, 100, 2, 110, 90, 1.5, 0.2, opened)

	closedAt := opened.Add(90 * time.Second)
	trade := pm.Close(p, 110, ExitTarget, closedAt)

	exitFee := 110.0 * 2 * 0.001
	net := profit(100, 110, 2, 0.2, 0.001, true)

	assert.InDelta(t, net, trade.NetPnL, 1e-9)
	assert.InDelta(t, exitFee, trade.ExitFee, 1e-9)
	assert.InDelta(t, net+p.EntryFee+exitFee, trade.PnL, 1e-9)
	assert.Equal(t, 1, trade.DurationMinutes) // 90s truncates to 1 minute
	assert.Equal(t, ExitTarget, trade.ExitReason)
	assert.Equal(t, PositionClosed, p.Status)
	require.NotNil(t, p.ClosedAt)
	assert.Empty(t, pm.Open())
}

func TestPositionManagerUnrealizedPnLSumsOpenPositions(t *testing.T) {
	pm := newPositionManager("bot1", "user1", 0.001)
	now := time.Unix(0, 0)
	pm.Add("BTCUSDT", SideLong, 100, 1, 110, 90, 1.5, 0, now)
	pm.Add("BTCUSDT", SideShort, 100, 1, 90, 110, 1.5, 0, now)

	// long gains, short loses at a higher price
	pnl := pm.UnrealizedPnL(105)
	longLeg := profit(100, 105, 1, 0, 0.001, true)
	shortLeg := profit(100, 105, 1, 0, 0.001, false)
	assert.InDelta(t, longLeg+shortLeg, pnl, 1e-9)
}

func TestPositionManagerTrailingStopNeverMovesBackwardLong(t *testing.T) {
	pm := newPositionManager("bot1", "user1", 0.001)
	now := time.Unix(0, 0)
	p := pm.Add("BTCUSDT", SideLong, 100, 1, 120, 90, 2.0, 0, now)

	// activation = atr(2.0) * 1.0 = 2.0; price 103 clears it
	pm.UpdateTrailingStop(p, 103, 2.0, 1.0, 1.0)
	require.NotNil(t, p.TrailingStop)
	first := *p.TrailingStop
	assert.InDelta(t, 101.0, first, 1e-9) // 103 - 2.0

	// price retreats to 99: candidate (97) is below current stop -> must not move backward
	pm.UpdateTrailingStop(p, 99, 2.0, 1.0, 1.0)
	assert.InDelta(t, first, *p.TrailingStop, 1e-9)

	// price advances further: stop ratchets up
	pm.UpdateTrailingStop(p, 110, 2.0, 1.0, 1.0)
	assert.InDelta(t, 108.0, *p.TrailingStop, 1e-9)
}

func TestPositionManagerTrailingStopNeverMovesBackwardShort(t *testing.T) {
	pm := newPositionManager("bot1", "user1", 0.001)
	now := time.Unix(0, 0)
	p := pm.Add("BTCUSDT", SideShort, 100, 1, 80, 110, 2.0, 0, now)

	pm.UpdateTrailingStop(p, 97, 2.0, 1.0, 1.0)
	require.NotNil(t, p.TrailingStop)
	first := *p.TrailingStop
	assert.InDelta(t, 99.0, first, 1e-9) // 97 + 2.0

	// price retreats (rises): candidate is above current stop -> must not move backward
	pm.UpdateTrailingStop(p, 101, 2.0, 1.0, 1.0)
	assert.InDelta(t, first, *p.TrailingStop, 1e-9)

	// price advances further (drops): stop ratchets down
	pm.UpdateTrailingStop(p, 90, 2.0, 1.0, 1.0)
	assert.InDelta(t, 92.0, *p.TrailingStop, 1e-9)
}

func TestPositionManagerTrailingStopBelowActivationDoesNothing(t *testing.T) {
	pm := newPositionManager("bot1", "user1", 0.001)
	now := time.Unix(0, 0)
	p := pm.Add("BTCUSDT", SideLong, 100, 1, 120, 90, 2.0, 0, now)

	pm.UpdateTrailingStop(p, 101, 2.0, 1.0, 1.0) // profit=1 < activation=2
	assert.Nil(t, p.TrailingStop)
}

func TestPositionManagerOpenReturnsSnapshotCopy(t *testing.T) {
	pm := newPositionManager("bot1", "user1", 0.001)
	now := time.Unix(0, 0)
	pm.Add("BTCUSDT", SideLong, 100, 1, 110, 90, 1.5, 0, now)

	snapshot := pm.Open()
	pm.Add("BTCUSDT", SideLong, 101, 1, 111, 91, 1.5, 0, now)

	assert.Len(t, snapshot, 1)
	assert.Len(t, pm.Open(), 2)
}
