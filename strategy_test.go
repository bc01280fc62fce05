package main

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway is a hand-written stand-in for ExchangeGateway, in the
// style the teacher's broker_paper.go used for Broker.
type fakeGateway struct {
	lot       LotSizeFilter
	orders    []*PlacedOrder
	rejectNext bool
	placeErr  error
}

func (f *fakeGateway) Name() string { return "fake" }
func (f *fakeGateway) GetTicker(ctx context.Context, symbol string) (float64, bool, error) {
	return 0, false, nil
}
func (f *fakeGateway) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	return nil, nil
}
func (f *fakeGateway) PlaceOrder(ctx context.Context, symbol string, side Side, qty float64, tradeSide TradeSide, reduceOnly bool) (*PlacedOrder, error) {
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	if f.rejectNext {
		f.rejectNext = false
		return nil, nil
	}
	order := &PlacedOrder{ID: "order-1", Symbol: symbol, Side: side, Quantity: qty}
	f.orders = append(f.orders, order)
	return order, nil
}
func (f *fakeGateway) GetOpenPositions(ctx context.Context, symbol string) ([]ExternalPosition, error) {
	return nil, nil
}
func (f *fakeGateway) GetLotSizeFilter(ctx context.Context, symbol string) (LotSizeFilter, error) {
	return f.lot, nil
}
func (f *fakeGateway) GetAccountBalance(ctx context.Context) (float64, bool, error) {
	return 0, false, nil
}

func testStrategyConfig() BotConfig {
	return BotConfig{
		BotID:    "bot1",
		UserID:   "user1",
		Exchange: "bitunix",
		Trading:  TradingConfig{Symbol: "BTCUSDT", Leverage: 2},
		Timeframe: TimeframeConfig{CandleSize: "1m", UpdateInterval: 5},
		ATR:     ATRConfig{Period: 2, EntryMultiplier: 1.0, TargetMultiplier: 2.0, StopLossMultiplier: 1.0},
		Budget: BudgetConfig{
			AllocatedAmount: 10000,
			MaxPositionPct:  0.9,
			SizingLevels: []PositionSizingLevel{
				{ATRMultiplier: 1.0, BudgetPercentage: 0.05},
			},
		},
		Exit: TrailingStopConfig{Enabled: true, ActivationATRMultiplier: 1.0, TrailDistanceATRMultiplier: 1.0},
		Fees: FeeConfig{Maker: 0.0002, Taker: 0.0006},
	}
}

func newTestStrategy(t *testing.T, gw *fakeGateway) *Strategy {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	s, err := newStrategy(context.Background(), testStrategyConfig(), gw, logger)
	require.NoError(t, err)
	return s
}

// primeATR drives enough candles through Update to make the ATR
// calculator ready, ending on the highest tick (110) so recentHigh is 110.
func primeATR(s *Strategy, start time.Time) {
	prices := []float64{100, 105, 103, 110}
	t := start
	for _, p := range prices {
		s.Update(p, t)
		t = t.Add(61 * time.Second)
	}
}

func TestStrategyCheckEntryNilWhenATRNotReady(t *testing.T) {
	gw := &fakeGateway{lot: LotSizeFilter{MinQty: 0.001, MaxQty: 100, StepSize: 0.001}}
	s := newTestStrategy(t, gw)
	s.Update(100, time.Unix(0, 0))
	assert.Nil(t, s.CheckEntry(100))
}

func TestStrategyCheckEntryTriggersOnDip(t *testing.T) {
	gw := &fakeGateway{lot: LotSizeFilter{MinQty: 0.001, MaxQty: 100, StepSize: 0.001}}
	s := newTestStrategy(t, gw)
	start := time.Unix(0, 0)
	primeATR(s, start)

	require.True(t, s.atrCalc.IsReady())
	dipPrice := s.recentHigh - s.atrCalc.Trigger(s.atrCalc.AdjustMultiplier(s.cfg.ATR.EntryMultiplier)) - 1

	sig := s.CheckEntry(dipPrice)
	require.NotNil(t, sig)
	assert.Equal(t, SideBuy, sig.Side)
	assert.Greater(t, sig.Quantity, 0.0)
	assert.Greater(t, sig.Target, dipPrice)
	assert.Less(t, sig.StopLoss, dipPrice)
}

func TestStrategyCheckEntryNoDipReturnsNil(t *testing.T) {
	gw := &fakeGateway{lot: LotSizeFilter{MinQty: 0.001, MaxQty: 100, StepSize: 0.001}}
	s := newTestStrategy(t, gw)
	start := time.Unix(0, 0)
	primeATR(s, start)

	assert.Nil(t, s.CheckEntry(s.recentHigh)) // no drop at all
}

func TestStrategyExecuteEntryRegistersPositionAndReservesBudget(t *testing.T) {
	gw := &fakeGateway{lot: LotSizeFilter{MinQty: 0.001, MaxQty: 100, StepSize: 0.001}}
	s := newTestStrategy(t, gw)
	start := time.Unix(0, 0)
	primeATR(s, start)
	dipPrice := s.recentHigh - s.atrCalc.Trigger(s.atrCalc.AdjustMultiplier(s.cfg.ATR.EntryMultiplier)) - 1
	sig := s.CheckEntry(dipPrice)
	require.NotNil(t, sig)

	usedBefore := s.budget.UsedBudget()
	pos := s.ExecuteEntry(context.Background(), sig, start)
	require.NotNil(t, pos)

	assert.Len(t, s.pos.Open(), 1)
	assert.Greater(t, s.budget.UsedBudget(), usedBefore)
	assert.Equal(t, sig.Quantity, pos.Quantity)
	assert.Equal(t, dipPrice, s.recentHigh) // recent high resets to fill price
}

func TestStrategyExecuteEntryRejectedOrderRegistersNothing(t *testing.T) {
	gw := &fakeGateway{lot: LotSizeFilter{MinQty: 0.001, MaxQty: 100, StepSize: 0.001}, rejectNext: true}
	s := newTestStrategy(t, gw)
	start := time.Unix(0, 0)
	primeATR(s, start)
	dipPrice := s.recentHigh - s.atrCalc.Trigger(s.atrCalc.AdjustMultiplier(s.cfg.ATR.EntryMultiplier)) - 1
	sig := s.CheckEntry(dipPrice)
	require.NotNil(t, sig)

	pos := s.ExecuteEntry(context.Background(), sig, start)
	assert.Nil(t, pos)
	assert.Empty(t, s.pos.Open())
}

func TestStrategyCheckExitsTargetAndStop(t *testing.T) {
	gw := &fakeGateway{lot: LotSizeFilter{MinQty: 0.001, MaxQty: 100, StepSize: 0.001}}
	s := newTestStrategy(t, gw)
	now := time.Unix(0, 0)
	s.pos.Add("BTCUSDT", SideLong, 100, 1, 110, 90, 1.0, 0, now)

	assert.Empty(t, s.CheckExits(105))
	exits := s.CheckExits(110)
	require.Len(t, exits, 1)
	assert.Equal(t, ExitTarget, exits[0].reason)

	exits = s.CheckExits(89)
	require.Len(t, exits, 1)
	assert.Equal(t, ExitStopLoss, exits[0].reason)
}

func TestStrategyExecuteExitClosesAndReleasesBudget(t *testing.T) {
	gw := &fakeGateway{lot: LotSizeFilter{MinQty: 0.001, MaxQty: 100, StepSize: 0.001}}
	s := newTestStrategy(t, gw)
	now := time.Unix(0, 0)
	pos := s.pos.Add("BTCUSDT", SideLong, 100, 1, 110, 90, 1.0, 0.1, now)
	s.budget.Reserve(50)

	trade := s.ExecuteExit(context.Background(), pos, 110, ExitTarget, now.Add(time.Minute))
	require.NotNil(t, trade)
	assert.Empty(t, s.pos.Open())
	assert.Less(t, s.budget.UsedBudget(), 50.0)
}

func TestStrategyUpdateTrailingStopsNoopWhenDisabled(t *testing.T) {
	gw := &fakeGateway{lot: LotSizeFilter{MinQty: 0.001, MaxQty: 100, StepSize: 0.001}}
	s := newTestStrategy(t, gw)
	s.cfg.Exit.Enabled = false
	now := time.Unix(0, 0)
	pos := s.pos.Add("BTCUSDT", SideLong, 100, 1, 120, 80, 1.0, 0, now)
	primeATR(s, now)

	s.UpdateTrailingStops(110)
	assert.Nil(t, pos.TrailingStop)
}

func TestStrategyUnrealizedPnLDelegatesToPositionManager(t *testing.T) {
	gw := &fakeGateway{lot: LotSizeFilter{MinQty: 0.001, MaxQty: 100, StepSize: 0.001}}
	s := newTestStrategy(t, gw)
	now := time.Unix(0, 0)
	s.pos.Add("BTCUSDT", SideLong, 100, 1, 120, 80, 1.0, 0, now)

	assert.InDelta(t, s.pos.UnrealizedPnL(105), s.UnrealizedPnL(105), 1e-9)
}
